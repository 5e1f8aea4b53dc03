package tencent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bobmcallan/navwatch/internal/models"
)

var recordPattern = regexp.MustCompile(`v_([A-Za-z0-9_]+)="([^"]*)"`)

// Field positions within a ~ separated record.
const (
	fieldName       = 1
	fieldCurrent    = 3
	fieldPriorClose = 4
)

// ParseQuotes extracts quote records from a UTF-8 body. When want is non-empty
// only those symbols are kept.
func ParseQuotes(body []byte, want []string) map[string]models.Quote {
	var filter map[string]bool
	if len(want) > 0 {
		filter = make(map[string]bool, len(want))
		for _, s := range want {
			filter[s] = true
		}
	}

	quotes := make(map[string]models.Quote)
	for _, m := range recordPattern.FindAllSubmatch(body, -1) {
		symbol := string(m[1])
		if filter != nil && !filter[symbol] {
			continue
		}

		fields := strings.Split(string(m[2]), "~")
		if len(fields) <= fieldPriorClose {
			continue
		}
		current, err := strconv.ParseFloat(strings.TrimSpace(fields[fieldCurrent]), 64)
		if err != nil {
			continue
		}
		prior, err := strconv.ParseFloat(strings.TrimSpace(fields[fieldPriorClose]), 64)
		if err != nil {
			continue
		}

		quotes[symbol] = models.Quote{
			Symbol:     symbol,
			Name:       fields[fieldName],
			Current:    current,
			PriorClose: prior,
		}
	}
	return quotes
}
