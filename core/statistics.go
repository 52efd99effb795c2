package core

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	ex "stockdash/extensions"
	m "stockdash/models"
)

// DefaultRiskFreeRate is applied per period, the same unit as the daily returns
const DefaultRiskFreeRate = 0.01

// ComputeCorrelation builds the pearson correlation matrix of the return columns.
// Each pair only uses the rows where both symbols have a return (pairwise complete).
// Returns false when there is nothing to correlate, ie one symbol or fewer.
func ComputeCorrelation(returns *m.ReturnsTable) (*m.CorrelationMatrix, bool) {
	n := len(returns.Symbols)
	if n <= 1 {
		return nil, false
	}

	corrMatrix := mat.NewSymDense(n, nil)
	for i := range n {
		x := returns.Column(returns.Symbols[i])
		for j := range i + 1 {
			y := returns.Column(returns.Symbols[j])
			corrMatrix.SetSym(i, j, PairwiseCorrelation(x, y))
		}
	}

	return m.NewCorrelationMatrix(returns.Symbols, corrMatrix), true
}

// PairwiseCorrelation is the pearson coefficient over rows where x and y are both defined.
// NaN with fewer than two such rows or when either side has no variance.
func PairwiseCorrelation(x, y []float64) float64 {
	xs, ys := completePairs(x, y)
	if len(xs) < 2 {
		return math.NaN()
	}

	// variance and covariance share the same summation in gonum, so identical
	// series give cov == var exactly and the ratio lands on 1
	varX := stat.Variance(xs, nil)
	varY := stat.Variance(ys, nil)
	if varX == 0 || varY == 0 || !ex.IsFinite(varX) || !ex.IsFinite(varY) {
		return math.NaN()
	}

	corr := stat.Covariance(xs, ys, nil) / math.Sqrt(varX*varY)
	return math.Max(-1, math.Min(1, corr))
}

func completePairs(x, y []float64) ([]float64, []float64) {
	n := ex.Min(len(x), len(y))
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := range n {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// ComputeSharpe is (mean - riskFreeRate) / sample std dev per symbol over its defined returns.
// Zero variance is not an error, the ratio comes back NaN or +/-Inf.
// Every symbol gets an entry, an empty returns table maps each one to NaN.
func ComputeSharpe(returns *m.ReturnsTable, riskFreeRate float64) m.SharpeRatios {
	res := make(m.SharpeRatios, len(returns.Symbols))
	for _, symbol := range returns.Symbols {
		res[symbol] = SharpeRatio(ex.DefinedValues(returns.Column(symbol)), riskFreeRate)
	}

	return res
}

// SharpeRatio of a single return series, sample (N-1) standard deviation
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	if len(returns) == 1 {
		// sample std dev is undefined for one observation
		return math.NaN()
	}

	mean, stdDev := stat.MeanStdDev(returns, nil)
	return (mean - riskFreeRate) / stdDev
}
