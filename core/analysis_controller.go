package core

import (
	"strings"
	"time"

	ex "stockdash/extensions"
	m "stockdash/models"
)

// ParseSymbols splits a comma separated list, trimming, upper casing and dropping blanks and repeats
func ParseSymbols(input string) []string {
	parts := strings.Split(input, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.ToUpper(strings.TrimSpace(p)); s != "" {
			symbols = append(symbols, s)
		}
	}
	return ex.Distinct(symbols)
}

// NewAnalysisRequest builds a validated request, dates are inclusive calendar days
func NewAnalysisRequest(symbols []string, start, end time.Time, riskFreeRate float64) (m.AnalysisRequest, error) {
	req := m.AnalysisRequest{
		Symbols:      symbols,
		Start:        ex.DateOnly(start),
		End:          ex.DateOnly(end),
		RiskFreeRate: riskFreeRate,
	}
	return req, ValidateRequest(req)
}

// ValidateRequest catches input problems before anything is fetched
func ValidateRequest(req m.AnalysisRequest) error {
	if len(req.Symbols) == 0 {
		return newPipelineError(InputError, nil, "please enter at least one stock symbol")
	}
	for _, s := range req.Symbols {
		if strings.TrimSpace(s) == "" {
			return newPipelineError(InputError, nil, "stock symbols cannot be blank")
		}
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return newPipelineError(InputError, nil, "both a start and an end date are required")
	}
	if req.Start.After(req.End) {
		return newPipelineError(InputError, nil, "start date %s is after end date %s", ex.FmtShort(req.Start), ex.FmtShort(req.End))
	}
	return nil
}

// RunAnalysis validates, fetches and computes one request. Every error is terminal for
// the request and comes back as a *PipelineError, nothing partial is returned with it.
func (sc *ServiceContext) RunAnalysis(req m.AnalysisRequest) (*m.AnalysisResult, error) {
	start := time.Now()
	logger := sc.logger()

	if err := ValidateRequest(req); err != nil {
		logger.Warnf("Rejected analysis request: %v", err)
		return nil, err
	}

	logger.Infof("Received request to analyze %v from %s to %s", req.Symbols, ex.FmtShort(req.Start), ex.FmtShort(req.End))

	logger.Infof("Fetching prices from %s (time: %v)", sc.sourceName(), time.Since(start))
	data, err := sc.FetchStockData(req)
	if err != nil {
		logger.Errorf("Error fetching prices for %v: %v", req.Symbols, err)
		return nil, err
	}

	prices, err := BuildPriceTable(req.Symbols, data.Rows(req.Symbols), req.Start, req.End)
	if err != nil {
		logger.Errorf("Error building price table for %v: %v", req.Symbols, err)
		return nil, err
	}

	logger.Infof("Computing metrics over %d rows (time: %v)", prices.Len(), time.Since(start))
	res, err := ComputeMetrics(prices, req.RiskFreeRate)
	if err != nil {
		logger.Errorf("Error computing metrics for %v: %v", req.Symbols, err)
		return nil, err
	}

	res.Start, res.End = req.Start, req.End
	res.StockData = data

	logger.Infof("Analysis of %v completed with %d warnings (time: %v)", req.Symbols, len(res.Warnings), time.Since(start))
	return res, nil
}

func (sc *ServiceContext) sourceName() string {
	if sc.PriceSource == nil {
		return "none"
	}
	return sc.PriceSource.Name()
}
