package core

import (
	"math"

	m "stockdash/models"
)

// ComputeDailyReturns turns closing prices into fractional day over day changes.
// The first date has no predecessor and is dropped, a missing price on either
// side leaves that one cell missing instead of dropping the row.
func ComputeDailyReturns(prices *m.PriceTable) *m.ReturnsTable {
	if prices.Len() < 2 {
		return &m.ReturnsTable{Table: m.NewTable(nil, prices.Symbols)}
	}

	res := m.NewTable(prices.Dates[1:], prices.Symbols)
	for _, symbol := range prices.Symbols {
		closes := prices.Column(symbol)
		returns := res.Series[symbol]
		for i := 1; i < len(closes); i++ {
			// NaN in either price carries through the arithmetic
			returns[i-1] = (closes[i] - closes[i-1]) / closes[i-1]
		}
	}

	return &m.ReturnsTable{Table: res}
}

// ComputeCumulativeReturns compounds daily returns per symbol, (1+r1)(1+r2)...(1+ri) - 1.
// Missing returns stay missing and are skipped by the running product.
func ComputeCumulativeReturns(returns *m.ReturnsTable) *m.CumulativeReturnsTable {
	res := m.NewTable(returns.Dates, returns.Symbols)
	for _, symbol := range returns.Symbols {
		growth := 1.0
		cumulative := res.Series[symbol]
		for i, r := range returns.Column(symbol) {
			if math.IsNaN(r) {
				continue
			}
			growth *= 1 + r
			cumulative[i] = growth - 1
		}
	}

	return &m.CumulativeReturnsTable{Table: res}
}
