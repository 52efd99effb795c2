package alpha_vantage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	c "stockdash/api"
	ex "stockdash/extensions"
	m "stockdash/models"
)

const dailyFixture = `{
    "Meta Data": {
        "1. Information": "Daily Prices (open, high, low, close) and Volumes",
        "2. Symbol": "NVDA",
        "3. Last Refreshed": "2024-01-05",
        "4. Output Size": "Full size",
        "5. Time Zone": "US/Eastern"
    },
    "Time Series (Daily)": {
        "2024-01-05": {"1. open": "48.46", "2. high": "49.55", "3. low": "48.31", "4. close": "49.10", "5. volume": "415039"},
        "2024-01-02": {"1. open": "49.24", "2. high": "49.30", "3. low": "47.60", "4. close": "48.17", "5. volume": "411254"},
        "2024-01-04": {"1. open": "47.77", "2. high": "48.50", "3. low": "47.51", "4. close": "47.98", "5. volume": "306535"},
        "2024-01-03": {"1. open": "47.49", "2. high": "48.18", "3. low": "47.32", "4. close": "47.57", "5. volume": "320896"}
    }
}`

const adjustedFixture = `{
    "Meta Data": {
        "1. Information": "Daily Time Series with Splits and Dividend Events",
        "2. Symbol": "GOOG",
        "3. Last Refreshed": "2024-01-03",
        "4. Output Size": "Compact",
        "5. Time Zone": "US/Eastern"
    },
    "Time Series (Daily)": {
        "2024-01-03": {"1. open": "140.1", "2. high": "141.0", "3. low": "139.2", "4. close": "140.5", "5. adjusted close": "140.2", "6. volume": "1000", "7. dividend amount": "0.0000", "8. split coefficient": "1.0"},
        "2024-01-02": {"1. open": "139.6", "2. high": "140.6", "3. low": "138.7", "4. close": "139.6", "5. adjusted close": "139.3", "6. volume": "1200", "7. dividend amount": "0.2000", "8. split coefficient": "1.0"}
    }
}`

const missingCloseFixture = `{
    "Meta Data": {"2. Symbol": "X", "3. Last Refreshed": "2024-01-03", "5. Time Zone": "US/Eastern"},
    "Time Series (Daily)": {
        "2024-01-03": {"1. open": "10.0", "2. high": "11.0", "3. low": "9.0", "5. volume": "100"}
    }
}`

type fakeConnection struct {
	body     string
	err      error
	endpoint *url.URL
}

func (f *fakeConnection) Request(ctx context.Context, endpoint *url.URL) (*http.Response, error) {
	f.endpoint = endpoint
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func fakeClient(body string) (*AlphaVantageClient, *fakeConnection) {
	conn := &fakeConnection{body: body}
	return &AlphaVantageClient{
		Client: &c.Client{Connection: conn, ApiKey: "av-test-api-key"},
		Series: TimeSeriesDaily,
	}, conn
}

func eastern(t *testing.T, y int, mo time.Month, d int) time.Time {
	t.Helper()
	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("error parsing time zone: %s", err)
	}
	return time.Date(y, mo, d, 0, 0, 0, 0, location)
}

func Test_AlphaVantage_GetTimeSeries(t *testing.T) {
	client, conn := fakeClient(dailyFixture)

	res, err := client.GetTimeSeries(context.Background(), TimeSeriesDaily, "NVDA", OutputSizeFull)
	if err != nil {
		t.Fatalf("error getting stock time series: %s", err)
	}

	// request
	q := conn.endpoint.Query()
	ex.AssertAreEqual(t, "function", "TIME_SERIES_DAILY", q.Get(function))
	ex.AssertAreEqual(t, "symbol", "NVDA", q.Get(symbol))
	ex.AssertAreEqual(t, "output size", "full", q.Get(outputSize))
	ex.AssertAreEqual(t, "api key", "av-test-api-key", q.Get(apiKey))
	ex.AssertAreEqual(t, "path", query, conn.endpoint.Path)

	// meta data
	ex.AssertAreEqual(t, "information", "Daily Prices (open, high, low, close) and Volumes", res.Metadata.Information.ValueOrZero())
	ex.AssertAreEqual(t, "symbol", "NVDA", res.Metadata.Symbol)
	ex.AssertAreEqual(t, "output size", "Full size", res.Metadata.OutputSize.ValueOrZero())
	ex.AssertAreEqual(t, "time zone", "US/Eastern", res.Metadata.TimeZone)
	if !res.Metadata.LastRefreshed.Equal(eastern(t, 2024, time.January, 5)) {
		t.Fatalf("error parsing meta data last refreshed date, %s", res.Metadata.LastRefreshed)
	}

	// rows come back oldest first
	ex.AssertAreEqual(t, "rows", 4, len(res.TimeSeries))
	for i := 1; i < len(res.TimeSeries); i++ {
		if !res.TimeSeries[i-1].Timestamp.Before(res.TimeSeries[i].Timestamp) {
			t.Fatalf("rows are not sorted at %d", i)
		}
	}

	first := res.TimeSeries[0]
	ex.AssertAreEqual(t, "timestamp", true, first.Timestamp.Equal(eastern(t, 2024, time.January, 2)))
	ex.AssertAreEqual(t, "open", 49.24, first.Open.ValueOrZero())
	ex.AssertAreEqual(t, "high", 49.30, first.High.ValueOrZero())
	ex.AssertAreEqual(t, "low", 47.60, first.Low.ValueOrZero())
	ex.AssertAreEqual(t, "close", 48.17, first.Close.ValueOrZero())
	ex.AssertAreEqual(t, "volume", float64(411254), first.Volume.ValueOrZero())
	ex.AssertNillability(t, "adjusted close", true, first.AdjustedClose.Ptr())
	ex.AssertNillability(t, "dividend amount", true, first.DividendAmount.Ptr())
	ex.AssertAreEqual(t, "closing price", 48.17, first.ClosingPrice().ValueOrZero())
}

func Test_AlphaVantage_AdjustedSeries(t *testing.T) {
	client, conn := fakeClient(adjustedFixture)

	res, err := client.GetTimeSeries(context.Background(), TimeSeriesDailyAdjusted, "GOOG", OutputSizeCompact)
	if err != nil {
		t.Fatalf("error getting stock time series: %s", err)
	}

	ex.AssertAreEqual(t, "function", "TIME_SERIES_DAILY_ADJUSTED", conn.endpoint.Query().Get(function))
	ex.AssertAreEqual(t, "output size", "compact", conn.endpoint.Query().Get(outputSize))

	s := res.TimeSeries[0]
	ex.AssertAreEqual(t, "close", 139.6, s.Close.ValueOrZero())
	ex.AssertAreEqual(t, "adjusted close", 139.3, s.AdjustedClose.ValueOrZero())
	ex.AssertAreEqual(t, "volume", float64(1200), s.Volume.ValueOrZero())
	ex.AssertAreEqual(t, "dividend amount", 0.2, s.DividendAmount.ValueOrZero())
	ex.AssertAreEqual(t, "closing price", 139.3, s.ClosingPrice().ValueOrZero())
}

func Test_AlphaVantage_GetDailyPricesFiltersInclusive(t *testing.T) {
	client, _ := fakeClient(dailyFixture)

	start := time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 4, 0, 0, 0, 0, time.UTC)
	rows, err := client.GetDailyPrices(context.Background(), "NVDA", start, end)
	if err != nil {
		t.Fatalf("error getting daily prices: %s", err)
	}

	ex.AssertAreEqual(t, "rows", 2, len(rows))
	ex.AssertAreEqual(t, "first close", 47.57, rows[0].Close.ValueOrZero())
	ex.AssertAreEqual(t, "last close", 47.98, rows[1].Close.ValueOrZero())
}

func Test_AlphaVantage_UnknownSymbolIsEmpty(t *testing.T) {
	client, _ := fakeClient(`{"Error Message": "Invalid API call. Please retry or visit the documentation for TIME_SERIES_DAILY."}`)

	_, err := client.GetTimeSeries(context.Background(), TimeSeriesDaily, "ZZZZ", OutputSizeFull)
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}

	rows, err := client.GetDailyPrices(context.Background(), "ZZZZ", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("expected no error for an unknown symbol, got %v", err)
	}
	ex.AssertAreEqual(t, "rows", 0, len(rows))
}

func Test_AlphaVantage_BadApiKeyIsNotEmpty(t *testing.T) {
	for _, body := range []string{
		`{"Error Message": "the parameter apikey is invalid or missing. Please claim your free API key on (https://www.alphavantage.co/support/#api-key)."}`,
		`{"Information": "The parameter apikey is invalid or missing."}`,
	} {
		client, _ := fakeClient(body)
		rows, err := client.GetDailyPrices(context.Background(), "NVDA", time.Time{}, time.Time{})
		if !errors.Is(err, ErrInvalidApiKey) {
			t.Fatalf("expected ErrInvalidApiKey, got %v", err)
		}
		if errors.Is(err, ErrSymbolNotFound) || rows != nil {
			t.Fatalf("a bad key must not look like an unknown symbol, got rows %v err %v", rows, err)
		}
	}
}

func Test_AlphaVantage_OtherErrorMessage(t *testing.T) {
	client, _ := fakeClient(`{"Error Message": "This API function (TIME_SERIES_DAILY_FOO) does not exist."}`)

	_, err := client.GetDailyPrices(context.Background(), "NVDA", time.Time{}, time.Time{})
	if !errors.Is(err, ErrApiError) {
		t.Fatalf("expected ErrApiError, got %v", err)
	}
}

func Test_AlphaVantage_RateLimited(t *testing.T) {
	for _, body := range []string{
		`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
		`{"Information": "We have detected your API key as av-test-api-key and our standard API rate limit is 25 requests per day."}`,
	} {
		client, _ := fakeClient(body)
		_, err := client.GetDailyPrices(context.Background(), "NVDA", time.Time{}, time.Time{})
		if !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
	}
}

func Test_AlphaVantage_MissingClose(t *testing.T) {
	client, _ := fakeClient(missingCloseFixture)

	_, err := client.GetDailyPrices(context.Background(), "X", time.Time{}, time.Time{})
	if !errors.Is(err, m.ErrMissingPriceField) {
		t.Fatalf("expected ErrMissingPriceField, got %v", err)
	}
}

func Test_AlphaVantage_ConnectionError(t *testing.T) {
	client, conn := fakeClient("")
	conn.err = errors.New("dial tcp: i/o timeout")

	_, err := client.GetDailyPrices(context.Background(), "NVDA", time.Time{}, time.Time{})
	if err == nil || !errors.Is(err, conn.err) {
		t.Fatalf("expected the connection error to be wrapped, got %v", err)
	}
	if errors.Is(err, m.ErrMissingPriceField) || errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("connection errors should not look like missing data")
	}
}

func Test_AlphaVantage_ParseFloat(t *testing.T) {
	ex.AssertAreEqual(t, "valid", null.FloatFrom(12.5), parseFloat("12.5"))
	ex.AssertAreEqual(t, "empty", false, parseFloat("").Valid)
	ex.AssertAreEqual(t, "garbage", false, parseFloat("n/a").Valid)
}

func Test_TimeSeries_Keys(t *testing.T) {
	ex.AssertAreEqual(t, "daily key", "Time Series (Daily)", TimeSeriesDaily.TimeSeriesKey())
	ex.AssertAreEqual(t, "adjusted", true, TimeSeriesWeeklyAdjusted.IsAdjusted())
	ex.AssertAreEqual(t, "not adjusted", false, TimeSeriesWeekly.IsAdjusted())
	ex.AssertAreEqual(t, "name", "TimeSeriesDailyAdjusted", TimeSeriesDailyAdjusted.Name())
}
