package eastmoney

import (
	"regexp"
	"strconv"

	"github.com/bobmcallan/navwatch/internal/models"
)

var (
	symbolPattern  = regexp.MustCompile(`>(\d{6})</a>`)
	percentPattern = regexp.MustCompile(`<td class='tor'>([\d.]+)%</td>`)

	stockRowPattern = regexp.MustCompile(`股票占净比.*?<td class='tor'>([\d.]+)%</td>`)
	bondRowPattern  = regexp.MustCompile(`债券占净比.*?<td class='tor'>([\d.]+)%</td>`)
)

// ParseHoldings pairs symbol anchors with percentage cells in document order.
// Pairing stops when either stream runs out or max pairs are collected.
func ParseHoldings(body []byte, max int) []models.Holding {
	symbols := symbolPattern.FindAllSubmatch(body, -1)
	percents := percentPattern.FindAllSubmatch(body, -1)

	n := min(len(symbols), len(percents))
	if max > 0 {
		n = min(n, max)
	}

	holdings := make([]models.Holding, 0, n)
	for i := 0; i < n; i++ {
		weight, err := strconv.ParseFloat(string(percents[i][1]), 64)
		if err != nil {
			continue
		}
		holdings = append(holdings, models.Holding{
			Symbol:        ExchangeSymbol(string(symbols[i][1])),
			WeightPercent: weight,
		})
	}
	return holdings
}

// ParseAssetWeights reads the stock and bond rows of the allocation table.
// A missing row takes the supplied default and is flagged as such.
func ParseAssetWeights(body []byte, stockDefault, bondDefault float64) *models.AssetWeights {
	w := &models.AssetWeights{}

	if v, ok := firstPercent(stockRowPattern, body); ok {
		w.StockPercent = v
	} else {
		w.StockPercent = stockDefault
		w.StockDefault = true
	}

	if v, ok := firstPercent(bondRowPattern, body); ok {
		w.BondPercent = v
	} else {
		w.BondPercent = bondDefault
		w.BondDefault = true
	}

	return w
}

func firstPercent(re *regexp.Regexp, body []byte) (float64, bool) {
	m := re.FindSubmatch(body)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ExchangeSymbol maps a six-digit security code to the quote feed symbol.
// 6xxxxx trades in Shanghai, 0xxxxx and 3xxxxx in Shenzhen.
func ExchangeSymbol(code string) string {
	if code == "" {
		return code
	}
	switch code[0] {
	case '0', '3':
		return "sz" + code
	default:
		return "sh" + code
	}
}
