package fundgz

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/bobmcallan/navwatch/internal/models"
)

var callbackPattern = regexp.MustCompile(`jsonpgz\((\{.*?\})\);?`)

// flexFloat64 accepts numbers and numeric strings; upstream sends both.
// NaN and infinities are rejected.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
			return fmt.Errorf("cannot parse %q as float64", s)
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

type payload struct {
	FundCode string      `json:"fundcode"`
	Name     string      `json:"name"`
	NAVDate  string      `json:"jzrq"`
	NAV      flexFloat64 `json:"dwjz"`
	EstNAV   flexFloat64 `json:"gsz"`
	EstRate  flexFloat64 `json:"gszzl"`
	EstTime  string      `json:"gztime"`
}

// ParseReference extracts the snapshot from a jsonpgz({...}); body.
// A missing callback, bad JSON or a non-positive NAV is a parse mismatch.
func ParseReference(body []byte) (*models.ReferenceSnapshot, error) {
	m := callbackPattern.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("%w: no jsonpgz callback", models.ErrParseMismatch)
	}

	var p payload
	if err := json.Unmarshal(m[1], &p); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrParseMismatch, err)
	}
	if p.NAV <= 0 {
		return nil, fmt.Errorf("%w: missing dwjz", models.ErrParseMismatch)
	}

	return &models.ReferenceSnapshot{
		Code:          p.FundCode,
		Name:          p.Name,
		BaselineNAV:   float64(p.NAV),
		BaselineDate:  p.NAVDate,
		ReferenceNAV:  float64(p.EstNAV),
		ReferenceRate: float64(p.EstRate),
		Timestamp:     p.EstTime,
	}, nil
}
