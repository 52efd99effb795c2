package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/guregu/null/v6"
)

var (
	// ErrNoPriceData means the fetched table has no rows or no symbols to work with
	ErrNoPriceData = errors.New("no usable price data")

	// ErrMissingPriceField means the source answered without a closing price field
	ErrMissingPriceField = errors.New("no closing price field in price data")
)

// Table is a date indexed set of float series, one per symbol.
// Missing cells are NaN. Symbols keeps the order the caller asked for.
type Table struct {
	Dates   []time.Time
	Symbols []string
	Series  map[string][]float64
}

// PriceTable holds closing prices, rows are trading dates ascending
type PriceTable struct {
	Table
}

// ReturnsTable holds the fractional day over day change, one row fewer than its PriceTable
type ReturnsTable struct {
	Table
}

// CumulativeReturnsTable holds compounded growth since the first return row
type CumulativeReturnsTable struct {
	Table
}

// NewPriceTable validates the shape of fetched prices once, everything downstream trusts it
func NewPriceTable(dates []time.Time, symbols []string, series map[string][]float64) (*PriceTable, error) {
	if len(dates) == 0 || len(symbols) == 0 {
		return nil, ErrNoPriceData
	}

	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("error building price table, dates must be ascending and unique (%s after %s)", dates[i].Format(time.DateOnly), dates[i-1].Format(time.DateOnly))
		}
	}

	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		if seen[symbol] {
			return nil, fmt.Errorf("error building price table, duplicate symbol %s", symbol)
		}
		seen[symbol] = true

		column, ok := series[symbol]
		if !ok {
			return nil, fmt.Errorf("error building price table, symbol %s: %w", symbol, ErrMissingPriceField)
		}
		if len(column) != len(dates) {
			return nil, fmt.Errorf("error building price table, symbol %s has %d prices for %d dates", symbol, len(column), len(dates))
		}
	}

	return &PriceTable{Table{
		Dates:   slices.Clone(dates),
		Symbols: slices.Clone(symbols),
		Series:  cloneSeries(symbols, series),
	}}, nil
}

// NewTable allocates a table with every cell set to NaN
func NewTable(dates []time.Time, symbols []string) Table {
	series := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		column := make([]float64, len(dates))
		for i := range column {
			column[i] = math.NaN()
		}
		series[symbol] = column
	}

	return Table{
		Dates:   slices.Clone(dates),
		Symbols: slices.Clone(symbols),
		Series:  series,
	}
}

// Len is the number of date rows
func (t Table) Len() int {
	return len(t.Dates)
}

func (t Table) Empty() bool {
	return len(t.Dates) == 0
}

// Column returns the series for a symbol, nil when the symbol is unknown
func (t Table) Column(symbol string) []float64 {
	return t.Series[symbol]
}

// At returns the cell for a symbol on row i, NaN when out of range
func (t Table) At(symbol string, i int) float64 {
	column := t.Series[symbol]
	if i < 0 || i >= len(column) {
		return math.NaN()
	}
	return column[i]
}

type tableJson struct {
	Dates  []string                `json:"dates"`
	Series map[string][]null.Float `json:"series"`
}

// MarshalJSON writes dates as YYYY-MM-DD and missing cells as null
func (t Table) MarshalJSON() ([]byte, error) {
	out := tableJson{
		Dates:  make([]string, len(t.Dates)),
		Series: make(map[string][]null.Float, len(t.Symbols)),
	}

	for i, d := range t.Dates {
		out.Dates[i] = d.Format(time.DateOnly)
	}

	for _, symbol := range t.Symbols {
		column := t.Series[symbol]
		values := make([]null.Float, len(column))
		for i, v := range column {
			values[i] = null.NewFloat(v, !math.IsNaN(v) && !math.IsInf(v, 0))
		}
		out.Series[symbol] = values
	}

	return json.Marshal(out)
}

func cloneSeries(symbols []string, series map[string][]float64) map[string][]float64 {
	res := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		res[symbol] = slices.Clone(series[symbol])
	}
	return res
}
