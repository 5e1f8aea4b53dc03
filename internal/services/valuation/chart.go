package valuation

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/navwatch/internal/models"
)

// RenderHistoryChart renders an intraday line chart of estimated NAV.
// day supplies the date and timezone the HH:mm buckets belong to.
// Returns raw PNG bytes.
func RenderHistoryChart(points []*models.HistoryPoint, title string, day time.Time) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d: %w", len(points), models.ErrInsufficientHistory)
	}

	xValues := make([]time.Time, 0, len(points))
	yValues := make([]float64, 0, len(points))
	for _, p := range points {
		t, err := time.ParseInLocation("15:04", p.TimeStr, day.Location())
		if err != nil {
			continue
		}
		xValues = append(xValues, time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()))
		yValues = append(yValues, p.EstimatedNAV)
	}
	if len(xValues) < 2 {
		return nil, fmt.Errorf("need at least 2 valid data points, got %d: %w", len(xValues), models.ErrInsufficientHistory)
	}

	navSeries := chart.TimeSeries{
		Name: "Estimated NAV",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("dc2626"), // red-600
			StrokeWidth: 2,
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).In(day.Location()).Format("15:04")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.4f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{navSeries},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
