package yahoo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	yahoofinanceapi "github.com/oscarli916/yahoo-finance-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeHistory(data map[string]yahoofinanceapi.PriceData, err error, seen *yahoofinanceapi.HistoryQuery) HistoryFunc {
	return func(symbol string, query yahoofinanceapi.HistoryQuery) (map[string]yahoofinanceapi.PriceData, error) {
		if seen != nil {
			*seen = query
		}
		return data, err
	}
}

func date(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestGetDailyPrices(t *testing.T) {
	var seen yahoofinanceapi.HistoryQuery
	client := &Client{History: fakeHistory(map[string]yahoofinanceapi.PriceData{
		"2024-01-04": {Open: 12, High: 13, Low: 11, Close: 12.5},
		"2024-01-02": {Open: 10, High: 11, Low: 9, Close: 10.5},
		"2024-01-03": {Open: 11, High: 12, Low: 10, Close: math.NaN()},
		"2024-01-05": {Open: 13, High: 14, Low: 12, Close: 13.5},
		"2023-12-29": {Open: 9, High: 10, Low: 8, Close: 9.5},
	}, nil, &seen)}

	rows, err := client.GetDailyPrices(context.Background(), "NVDA", date(2), date(4))
	require.NoError(t, err)

	assert.Equal(t, "2024-01-02", seen.Start)
	assert.Equal(t, "2024-01-05", seen.End)
	assert.Equal(t, "1d", seen.Interval)

	require.Len(t, rows, 3)
	assert.Equal(t, date(2), rows[0].Timestamp)
	assert.Equal(t, 10.5, rows[0].Close.ValueOrZero())
	assert.False(t, rows[1].Close.Valid)
	assert.Equal(t, 12.5, rows[2].ClosingPrice().ValueOrZero())
}

func TestGetDailyPricesNonPositiveClose(t *testing.T) {
	client := &Client{History: fakeHistory(map[string]yahoofinanceapi.PriceData{
		"2024-01-02": {Close: 0},
		"2024-01-03": {Close: -1},
	}, nil, nil)}

	rows, err := client.GetDailyPrices(context.Background(), "X", time.Time{}, time.Time{})
	require.NoError(t, err)

	for _, r := range rows {
		assert.False(t, r.Close.Valid)
	}
}

func TestGetDailyPricesErrors(t *testing.T) {
	boom := errors.New("yahoo said no")
	client := &Client{History: fakeHistory(nil, boom, nil)}

	_, err := client.GetDailyPrices(context.Background(), "X", date(1), date(2))
	assert.ErrorIs(t, err, boom)

	bad := &Client{History: fakeHistory(map[string]yahoofinanceapi.PriceData{"01/02/2024": {Close: 1}}, nil, nil)}
	_, err = bad.GetDailyPrices(context.Background(), "X", time.Time{}, time.Time{})
	assert.Error(t, err)
}

func TestGetDailyPricesCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	client := &Client{History: func(string, yahoofinanceapi.HistoryQuery) (map[string]yahoofinanceapi.PriceData, error) {
		<-release
		return nil, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetDailyPrices(ctx, "X", date(1), date(2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestName(t *testing.T) {
	assert.Equal(t, SourceName, GetClient().Name())
}
