package core

import (
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	ex "stockdash/extensions"
	m "stockdash/models"
)

// FetchPriceTable pulls every requested symbol from the price source and lines them up
// into one PriceTable.
func (sc *ServiceContext) FetchPriceTable(req m.AnalysisRequest) (*m.PriceTable, error) {
	data, err := sc.FetchStockData(req)
	if err != nil {
		return nil, err
	}
	return BuildPriceTable(req.Symbols, data.Rows(req.Symbols), req.Start, req.End)
}

// FetchStockData pulls the raw rows for every requested symbol, trimmed to [start, end] and
// sorted by date. Symbols are fetched concurrently, the first failure cancels the rest.
// A symbol the source knows nothing about maps to an empty slice.
func (sc *ServiceContext) FetchStockData(req m.AnalysisRequest) (m.StockData, error) {
	if sc.PriceSource == nil {
		return nil, newPipelineError(UnexpectedError, nil, "error fetching prices, no price source configured")
	}

	workers := sc.FetchWorkers
	if workers <= 0 {
		workers = DefaultFetchWorkers
	}

	// one slot per goroutine
	series := make([][]*m.TimeSeriesData, len(req.Symbols))

	g, ctx := errgroup.WithContext(sc.ctx())
	g.SetLimit(ex.Min(workers, ex.Max(len(req.Symbols), 1)))

	for i, symbol := range req.Symbols {
		g.Go(func() error {
			rows, err := sc.PriceSource.GetDailyPrices(ctx, symbol, req.Start, req.End)
			if err != nil {
				return classifyFetchError(err, symbol)
			}

			sc.logger().Debugf("fetched %d rows for %s from %s", len(rows), symbol, sc.PriceSource.Name())
			series[i] = trimRows(rows, req.Start, req.End)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := make(m.StockData, len(req.Symbols))
	for i, symbol := range req.Symbols {
		data[symbol] = series[i]
	}
	return data, nil
}

func trimRows(rows []*m.TimeSeriesData, start, end time.Time) []*m.TimeSeriesData {
	inRange := dateRange(start, end)
	res := make([]*m.TimeSeriesData, 0, len(rows))
	for _, row := range rows {
		if row != nil && inRange(ex.DateOnly(row.Timestamp)) {
			res = append(res, row)
		}
	}
	slices.SortStableFunc(res, func(a, b *m.TimeSeriesData) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return res
}

// dateRange is an inclusive calendar date filter, a zero bound is open
func dateRange(start, end time.Time) func(time.Time) bool {
	from, to := ex.DateOnly(start), ex.DateOnly(end)
	return func(d time.Time) bool {
		return (start.IsZero() || !d.Before(from)) && (end.IsZero() || !d.After(to))
	}
}

// BuildPriceTable aligns per symbol rows on the union of their dates inside [start, end].
// A symbol without a row on some date gets NaN there. Timestamps are reduced to their
// calendar date so sources in different time zones line up.
func BuildPriceTable(symbols []string, series [][]*m.TimeSeriesData, start, end time.Time) (*m.PriceTable, error) {
	from, to := ex.DateOnly(start), ex.DateOnly(end)
	inRange := dateRange(start, end)

	dateSet := make(map[time.Time]bool)
	anyPrice := false
	for _, rows := range series {
		for _, row := range rows {
			if row == nil {
				continue
			}
			d := ex.DateOnly(row.Timestamp)
			if !inRange(d) {
				continue
			}
			dateSet[d] = true
			if row.ClosingPrice().Valid {
				anyPrice = true
			}
		}
	}

	if len(dateSet) == 0 {
		return nil, newPipelineError(NoDataError, m.ErrNoPriceData, "no price data found for %v between %s and %s, check the symbols or the date range", symbols, ex.FmtShort(from), ex.FmtShort(to))
	}
	if !anyPrice {
		return nil, newPipelineError(NoDataError, m.ErrMissingPriceField, "no closing prices available for %v", symbols)
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int {
		return a.Compare(b)
	})

	rowIndex := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowIndex[d] = i
	}

	columns := make(map[string][]float64, len(symbols))
	for i, symbol := range symbols {
		column := ex.NaNs(len(dates))
		for _, row := range series[i] {
			if row == nil {
				continue
			}
			d := ex.DateOnly(row.Timestamp)
			idx, ok := rowIndex[d]
			if !ok {
				continue
			}
			if price := row.ClosingPrice(); price.Valid && !math.IsNaN(price.Float64) {
				column[idx] = price.Float64
			}
		}
		columns[symbol] = column
	}

	pt, err := m.NewPriceTable(dates, symbols, columns)
	if err != nil {
		return nil, classifyFetchError(err, "price table")
	}

	return pt, nil
}
