package yahoo

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/guregu/null/v6"
	yahoofinanceapi "github.com/oscarli916/yahoo-finance-api"
	log "github.com/sirupsen/logrus"

	ex "stockdash/extensions"
	m "stockdash/models"
)

const (
	SourceName    = "yahoo"
	dailyInterval = "1d"
)

var historyDateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// HistoryFunc is the library call, swapped out in tests
type HistoryFunc func(symbol string, query yahoofinanceapi.HistoryQuery) (map[string]yahoofinanceapi.PriceData, error)

type Client struct {
	History HistoryFunc
	Logger  *log.Logger
}

func GetClient() *Client {
	return &Client{History: libraryHistory}
}

func libraryHistory(symbol string, query yahoofinanceapi.HistoryQuery) (map[string]yahoofinanceapi.PriceData, error) {
	return yahoofinanceapi.NewTicker(symbol).History(query)
}

func (yc *Client) Name() string {
	return SourceName
}

// GetDailyPrices returns the daily rows for symbol between start and end inclusive, oldest first
func (yc *Client) GetDailyPrices(ctx context.Context, symbol string, start, end time.Time) ([]*m.TimeSeriesData, error) {
	query := yahoofinanceapi.HistoryQuery{Interval: dailyInterval}
	if !start.IsZero() {
		query.Start = ex.FmtShort(start)
	}
	if !end.IsZero() {
		// yahoo treats the end date as exclusive
		query.End = ex.FmtShort(ex.DateOnly(end).AddDate(0, 0, 1))
	}

	type result struct {
		data map[string]yahoofinanceapi.PriceData
		err  error
	}

	// the library has no context support, so the call races the context instead
	done := make(chan result, 1)
	go func() {
		data, err := yc.History(symbol, query)
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("error fetching yahoo history for %s: %w", symbol, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("error fetching yahoo history for %s: %w", symbol, r.err)
		}
		return yc.toTimeSeries(symbol, r.data, start, end)
	}
}

func (yc *Client) toTimeSeries(symbol string, data map[string]yahoofinanceapi.PriceData, start, end time.Time) ([]*m.TimeSeriesData, error) {
	from, to := ex.DateOnly(start), ex.DateOnly(end)

	res := make([]*m.TimeSeriesData, 0, len(data))
	skipped := 0
	for dateStr, price := range data {
		timestamp, err := parseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("error parsing date %s for %s: %w", dateStr, symbol, err)
		}

		d := ex.DateOnly(timestamp)
		if (!start.IsZero() && d.Before(from)) || (!end.IsZero() && d.After(to)) {
			continue
		}

		row := &m.TimeSeriesData{
			Timestamp: timestamp,
			TimeSeriesOHLCV: m.TimeSeriesOHLCV{
				Open:  positive(price.Open),
				High:  positive(price.High),
				Low:   positive(price.Low),
				Close: positive(price.Close),
			},
		}
		if !row.Close.Valid {
			skipped++
		}
		res = append(res, row)
	}

	slices.SortFunc(res, func(a, b *m.TimeSeriesData) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	if skipped > 0 {
		yc.logger().Warnf("yahoo returned %d rows without a usable close for %s", skipped, symbol)
	}

	return res, nil
}

func (yc *Client) logger() *log.Logger {
	if yc.Logger == nil {
		return log.StandardLogger()
	}
	return yc.Logger
}

// positive maps NaN and non positive prices to null
func positive(v float64) null.Float {
	return null.NewFloat(v, !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0)
}

func parseDate(dateStr string) (time.Time, error) {
	for _, format := range historyDateFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("error converting date %s to time.Time", dateStr)
}
