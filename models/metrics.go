package models

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/mat"
)

// CorrelationMatrix is a symmetric symbol x symbol matrix of pearson coefficients
type CorrelationMatrix struct {
	Symbols []string
	Matrix  *mat.SymDense
	index   map[string]int
}

func NewCorrelationMatrix(symbols []string, matrix *mat.SymDense) *CorrelationMatrix {
	index := make(map[string]int, len(symbols))
	for i, s := range symbols {
		index[s] = i
	}

	return &CorrelationMatrix{
		Symbols: slices.Clone(symbols),
		Matrix:  matrix,
		index:   index,
	}
}

// At returns the coefficient for a symbol pair, false if either symbol is unknown
func (cm *CorrelationMatrix) At(a, b string) (float64, bool) {
	i, ok := cm.index[a]
	if !ok {
		return math.NaN(), false
	}
	j, ok := cm.index[b]
	if !ok {
		return math.NaN(), false
	}
	return cm.Matrix.At(i, j), true
}

// MarshalJSON writes {"A": {"A": 1, "B": 0.5}, ...}, undefined coefficients as null
func (cm *CorrelationMatrix) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]null.Float, len(cm.Symbols))
	for i, a := range cm.Symbols {
		row := make(map[string]null.Float, len(cm.Symbols))
		for j, b := range cm.Symbols {
			v := cm.Matrix.At(i, j)
			row[b] = null.NewFloat(v, !math.IsNaN(v))
		}
		out[a] = row
	}
	return json.Marshal(out)
}

// SharpeRatios maps a symbol to its per period sharpe ratio, zero variance shows up as NaN or +/-Inf
type SharpeRatios map[string]float64

// MarshalJSON keeps non finite ratios visible as "NaN", "+Inf" or "-Inf"
func (sr SharpeRatios) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(sr))
	for symbol, v := range sr {
		switch {
		case math.IsNaN(v):
			out[symbol] = "NaN"
		case math.IsInf(v, 1):
			out[symbol] = "+Inf"
		case math.IsInf(v, -1):
			out[symbol] = "-Inf"
		default:
			out[symbol] = v
		}
	}
	return json.Marshal(out)
}

// FormatSharpe renders a ratio for reports, non finite values as-is
func FormatSharpe(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	default:
		return strconv.FormatFloat(v, 'f', 4, 64)
	}
}

// Warning is a non fatal note about a computed value
type Warning struct {
	Symbol  string `json:"symbol"`
	Message string `json:"message"`
}

// AnalysisResult is everything the pipeline hands to a renderer
type AnalysisResult struct {
	Symbols           []string                `json:"symbols"`
	Start             time.Time               `json:"start"`
	End               time.Time               `json:"end"`
	RiskFreeRate      float64                 `json:"riskFreeRate"`
	StockData         StockData               `json:"stockData"`
	Prices            *PriceTable             `json:"prices"`
	Returns           *ReturnsTable           `json:"returns"`
	CumulativeReturns *CumulativeReturnsTable `json:"cumulativeReturns"`
	Correlation       *CorrelationMatrix      `json:"correlation,omitempty"`
	Sharpe            SharpeRatios            `json:"sharpe"`
	Warnings          []Warning               `json:"warnings"`
}

// HasCorrelation is false for single symbol requests
func (ar *AnalysisResult) HasCorrelation() bool {
	return ar.Correlation != nil
}
