package core

import (
	"errors"
	"fmt"

	ex "stockdash/extensions"
	m "stockdash/models"
)

// ComputeMetrics runs the whole metrics pipeline over one price table:
// daily returns -> cumulative returns -> correlation (more than one symbol only) -> sharpe.
// Nothing here touches the network or logs, it is safe to call from anywhere.
func ComputeMetrics(prices *m.PriceTable, riskFreeRate float64) (*m.AnalysisResult, error) {
	if prices == nil || prices.Empty() || len(prices.Symbols) == 0 {
		return nil, newPipelineError(NoDataError, m.ErrNoPriceData, "error computing metrics")
	}

	returns := ComputeDailyReturns(prices)
	cumulativeReturns := ComputeCumulativeReturns(returns)
	sharpe := ComputeSharpe(returns, riskFreeRate)

	res := &m.AnalysisResult{
		Symbols:           prices.Symbols,
		Start:             prices.Dates[0],
		End:               prices.Dates[prices.Len()-1],
		RiskFreeRate:      riskFreeRate,
		Prices:            prices,
		Returns:           returns,
		CumulativeReturns: cumulativeReturns,
		Sharpe:            sharpe,
		Warnings:          sharpeWarnings(prices.Symbols, sharpe),
	}

	if corr, ok := ComputeCorrelation(returns); ok {
		res.Correlation = corr
	}

	return res, nil
}

func sharpeWarnings(symbols []string, sharpe m.SharpeRatios) []m.Warning {
	warnings := []m.Warning{}
	for _, symbol := range symbols {
		v, ok := sharpe[symbol]
		if !ok || ex.IsFinite(v) {
			continue
		}
		warnings = append(warnings, m.Warning{
			Symbol:  symbol,
			Message: fmt.Sprintf("sharpe ratio for %s is %s, daily returns have zero or undefined variance", symbol, m.FormatSharpe(v)),
		})
	}
	return warnings
}

// classifyFetchError maps what came back from a price source onto the request error kinds
func classifyFetchError(err error, symbol string) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, m.ErrMissingPriceField) || errors.Is(err, m.ErrNoPriceData) {
		return newPipelineError(NoDataError, err, "no usable price data for %s", symbol)
	}
	return newPipelineError(UnexpectedError, err, "error fetching prices for %s", symbol)
}
