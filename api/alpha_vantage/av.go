package alpha_vantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/guregu/null/v6"
	log "github.com/sirupsen/logrus"

	c "stockdash/api"
	ex "stockdash/extensions"
	m "stockdash/models"
)

// public
const (
	HostDefault    = "www.alphavantage.co"
	SourceName     = "alphavantage"
	DefaultTimeout = time.Second * 30
)

// private
const (
	// default query parameters
	defaultDataType = "json"

	// api request elements
	query      = "query"
	symbol     = "symbol"
	function   = "function"
	apiKey     = "apikey"
	dataType   = "datatype"
	outputSize = "outputsize"

	// response elements
	metaDataKey     = "Meta Data"
	errorMessageKey = "Error Message"
	noteKey         = "Note"
	informationKey  = "Information"

	// compact only covers the latest 100 trading days
	compactWindow = 100 * 24 * time.Hour
)

var (
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrRateLimited    = errors.New("alpha vantage rate limit reached")
	ErrInvalidApiKey  = errors.New("alpha vantage api key is invalid or missing")
	ErrApiError       = errors.New("alpha vantage returned an error")

	timeSeriesDateFormats = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
	}

	ohlcvResultKeys = map[string]string{
		"Open":   ". Open",
		"High":   ". High",
		"Low":    ". Low",
		"Close":  ". Close",
		"Volume": ". Volume",
	}
)

type AlphaVantageClient struct {
	*c.Client
	Series TimeSeries
	Logger *log.Logger
}

func GetClient(apiKey string, timeout time.Duration) *AlphaVantageClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AlphaVantageClient{
		Client: c.ClientFactory(HostDefault, apiKey, timeout),
		Series: TimeSeriesDaily,
	}
}

func (avc *AlphaVantageClient) Name() string {
	return SourceName
}

// GetDailyPrices returns the rows for ticker between start and end inclusive, oldest first.
// An unknown symbol is an empty slice.
func (avc *AlphaVantageClient) GetDailyPrices(ctx context.Context, ticker string, start, end time.Time) ([]*m.TimeSeriesData, error) {
	size := OutputSizeFull
	if !start.IsZero() && time.Since(start) < compactWindow {
		size = OutputSizeCompact
	}

	res, err := avc.GetTimeSeries(ctx, avc.Series, ticker, size)
	if errors.Is(err, ErrSymbolNotFound) {
		avc.logger().Warnf("alpha vantage does not know %s, treating it as empty", ticker)
		return []*m.TimeSeriesData{}, nil
	}
	if err != nil {
		return nil, err
	}

	avc.logger().Debugf("%s has %d rows, last refreshed %s", ticker, len(res.TimeSeries), ex.FmtLong(res.Metadata.LastRefreshed))

	from, to := ex.DateOnly(start), ex.DateOnly(end)
	inRange := func(e *m.TimeSeriesData) bool {
		d := ex.DateOnly(e.Timestamp)
		return (start.IsZero() || !d.Before(from)) && (end.IsZero() || !d.After(to))
	}

	return ex.FilterMultiplePtr(res.TimeSeries, inRange), nil
}

// GetTimeSeries queries a time series at a specific frequency, rows are sorted oldest first
// https://www.alphavantage.co/documentation/#daily
func (avc *AlphaVantageClient) GetTimeSeries(ctx context.Context, timeSeries TimeSeries, ticker string, size OutputSize) (*m.TimeSeriesResult, error) {
	if avc == nil || avc.Client == nil {
		return nil, fmt.Errorf("alpha vantage client has not been set")
	}

	endpoint := avc.buildRequestPath(map[string]string{
		function:   timeSeries.Function(),
		symbol:     ticker,
		outputSize: size.Value(),
	})

	response, err := avc.Client.Connection.Request(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("error requesting %s for %s: %w", timeSeries.Function(), ticker, err)
	}

	defer response.Body.Close()

	return parseTimeSeriesResponse(response.Body, timeSeries.TimeSeriesKey())
}

func (avc *AlphaVantageClient) logger() *log.Logger {
	if avc.Logger == nil {
		return log.StandardLogger()
	}
	return avc.Logger
}

func (avc *AlphaVantageClient) buildRequestPath(params map[string]string) *url.URL {
	// build our URL
	endpoint := &url.URL{}
	endpoint.Path = query

	// base parameters
	query := endpoint.Query()
	query.Set(apiKey, avc.Client.ApiKey)
	query.Set(dataType, defaultDataType)

	// additional parameters
	for key, value := range params {
		query.Set(key, value)
	}

	endpoint.RawQuery = query.Encode()

	return endpoint
}

func parseTimeSeriesResponse(reader io.Reader, key string) (*m.TimeSeriesResult, error) {
	raw, err := parseRawJson(reader)
	if err != nil {
		return nil, err
	}

	if err := checkApiMessages(raw, key); err != nil {
		return nil, err
	}

	metaData, timeZone, err := parseMetaData(raw)
	if err != nil {
		return nil, err
	}

	timeSeriesData, err := parseTimeSeriesDataResult(raw, key, timeZone)
	if err != nil {
		return nil, err
	}

	return &m.TimeSeriesResult{
		Metadata:   metaData,
		TimeSeries: timeSeriesData,
	}, nil
}

func parseRawJson(reader io.Reader) (raw map[string]json.RawMessage, err error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	// converting to a <string, raw message> map
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	return
}

// checkApiMessages turns the plain text answers alpha vantage sends instead of data into errors
func checkApiMessages(raw map[string]json.RawMessage, key string) error {
	if _, ok := raw[key]; ok {
		return nil
	}

	message := func(k string) string {
		var s string
		_ = json.Unmarshal(raw[k], &s)
		return s
	}

	// any message about the key itself, whatever element it came in
	for _, k := range []string{errorMessageKey, noteKey, informationKey} {
		if _, ok := raw[k]; ok && strings.Contains(strings.ToLower(message(k)), apiKey) {
			return fmt.Errorf("%w: %s", ErrInvalidApiKey, message(k))
		}
	}

	if _, ok := raw[errorMessageKey]; ok {
		msg := message(errorMessageKey)
		if strings.Contains(strings.ToLower(msg), "invalid api call") {
			return fmt.Errorf("%w: %s", ErrSymbolNotFound, msg)
		}
		return fmt.Errorf("%w: %s", ErrApiError, msg)
	}
	for _, k := range []string{noteKey, informationKey} {
		if _, ok := raw[k]; ok {
			return fmt.Errorf("%w: %s", ErrRateLimited, message(k))
		}
	}

	return fmt.Errorf("error finding %q in response, available keys: %v", key, slices.Sorted(maps.Keys(raw)))
}

func parseMetaData(raw map[string]json.RawMessage) (*m.TimeSeriesMetadata, *time.Location, error) {
	var metadataElements map[string]string
	if err := json.Unmarshal(raw[metaDataKey], &metadataElements); err != nil {
		return nil, nil, fmt.Errorf("error unmarshaling meta data: %w", err)
	}

	metaDataKeys := slices.Collect(maps.Keys(metadataElements))
	lookup := func(suffix string) (string, bool) {
		f := func(s string) bool { return strings.HasSuffix(s, suffix) }
		key, err := ex.FilterSingle(metaDataKeys, f)
		if err != nil {
			return "", false
		}
		return metadataElements[key], true
	}

	symbol, ok := lookup(". Symbol")
	if !ok {
		return nil, nil, fmt.Errorf("error extracting symbol for meta data")
	}

	timeZoneName, ok := lookup(". Time Zone")
	if !ok {
		return nil, nil, fmt.Errorf("error extracting time zone for meta data")
	}

	timeZone, err := getTimeZone(timeZoneName)
	if err != nil {
		return nil, nil, fmt.Errorf("error converting time zone key %s, to time.Location: %w", timeZoneName, err)
	}

	lastRefreshedValue, ok := lookup(". Last Refreshed")
	if !ok {
		return nil, nil, fmt.Errorf("error extracting last refreshed date")
	}

	lastRefreshed, err := parseDate(lastRefreshedValue, timeZone)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing last refreshed date: %w", err)
	}

	res := m.TimeSeriesMetadata{
		Symbol:        symbol,
		LastRefreshed: lastRefreshed,
		TimeZone:      timeZoneName,
	}
	if information, ok := lookup(". Information"); ok {
		res.Information = null.StringFrom(information)
	}
	if size, ok := lookup(". Output Size"); ok {
		res.OutputSize = null.StringFrom(size)
	}

	return &res, timeZone, nil
}

func parseTimeSeriesDataResult(raw map[string]json.RawMessage, key string, location *time.Location) ([]*m.TimeSeriesData, error) {
	var timeSeriesElements map[string]map[string]string
	if err := json.Unmarshal(raw[key], &timeSeriesElements); err != nil {
		return nil, fmt.Errorf("error unmarshaling time series: %w", err)
	}

	timeSeries := make([]*m.TimeSeriesData, 0, len(timeSeriesElements))
	if len(timeSeriesElements) == 0 {
		return timeSeries, nil
	}

	// populate the lookups
	var firstValue map[string]string
	for _, v := range timeSeriesElements {
		firstValue = v
		break
	}

	ohlcvLookup, err := getLookupKey(ohlcvResultKeys, firstValue)
	if err != nil {
		return nil, err
	}

	headers := slices.Collect(maps.Keys(firstValue))

	// only the adjusted series carry these
	acf := func(s string) bool { return strings.HasSuffix(s, ". adjusted close") }
	adjustedCloseKey, _ := ex.FilterSingle(headers, acf)

	daf := func(s string) bool { return strings.HasSuffix(s, ". dividend amount") }
	dividendAmountKey, _ := ex.FilterSingle(headers, daf)

	if adjustedCloseKey == "" && !slices.Contains(slices.Collect(maps.Values(ohlcvLookup)), "Close") {
		return nil, fmt.Errorf("error finding a close price for %s, available headers: %v: %w", key, headers, m.ErrMissingPriceField)
	}

	for timeSeriesKey, timeSeriesValue := range timeSeriesElements {
		// get timestamp
		timestamp, err := parseDate(timeSeriesKey, location)
		if err != nil {
			return nil, fmt.Errorf("error converting TIMESTAMP from string to time.Time: %w", err)
		}

		// get OHLCV
		ohlcv, err := parseOHLCV(timeSeriesValue, ohlcvLookup)
		if err != nil {
			return nil, fmt.Errorf("error parsing OHLCV: %w", err)
		}

		row := &m.TimeSeriesData{
			Timestamp:       timestamp,
			TimeSeriesOHLCV: ohlcv,
		}
		if adjustedCloseKey != "" {
			row.AdjustedClose = parseFloat(timeSeriesValue[adjustedCloseKey])
		}
		if dividendAmountKey != "" {
			row.DividendAmount = parseFloat(timeSeriesValue[dividendAmountKey])
		}

		timeSeries = append(timeSeries, row)
	}

	slices.SortFunc(timeSeries, func(a, b *m.TimeSeriesData) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	return timeSeries, nil
}

func parseOHLCV(value, lookup map[string]string) (res m.TimeSeriesOHLCV, err error) {
	v := reflect.ValueOf(&res).Elem()
	for jsonKey, structAttribute := range lookup {
		field := v.FieldByName(structAttribute)
		if !field.IsValid() {
			return res, fmt.Errorf("field %s does not exist", structAttribute)
		}
		if !field.CanSet() {
			return res, fmt.Errorf("field %s cannot be set", structAttribute)
		}

		pv := parseFloat(value[jsonKey])
		field.Set(reflect.ValueOf(pv))
	}
	return
}

func getLookupKey(expectedKeys, values map[string]string) (map[string]string, error) {
	res := make(map[string]string)
	responseValueHeaders := slices.Collect(maps.Keys(values))

	for key, value := range expectedKeys {
		f := func(s string) bool {
			return strings.HasSuffix(strings.ToLower(s), strings.ToLower(value))
		}
		if jsonKey, err := ex.FilterSingle(responseValueHeaders, f); err == nil {
			res[jsonKey] = key
		}
	}

	if len(res) == 0 {
		return nil, fmt.Errorf("error generating key value map from av response object. Available headers: %v", responseValueHeaders)
	}

	return res, nil
}

func getTimeZone(location string) (*time.Location, error) {
	var loc string
	switch strings.ToUpper(location) {
	case "US/EASTERN":
		loc = "America/New_York"
	case "UTC", "":
		return time.UTC, nil
	default:
		log.Warnf("default time zone hit, %s is not recognized", location)
		return time.UTC, nil
	}

	res, err := time.LoadLocation(loc)
	if err != nil {
		return nil, fmt.Errorf("error parsing time zone %s in time.LoadLocation", loc)
	}

	return res, nil
}

func parseDate(dateString string, location *time.Location) (time.Time, error) {
	for _, format := range timeSeriesDateFormats {
		t, err := time.ParseInLocation(format, dateString, location)
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("error converting date %s to time.Time", dateString)
}

func parseFloat(val string) null.Float {
	if val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return null.FloatFrom(f)
		}
	}
	return null.Float{}
}
