package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/guregu/null/v6"
)

// TimeSeriesResult is what a price source hands back for one symbol
type TimeSeriesResult struct {
	Metadata   *TimeSeriesMetadata
	TimeSeries []*TimeSeriesData
}

type TimeSeriesMetadata struct {
	Information   null.String
	Symbol        string
	LastRefreshed time.Time
	OutputSize    null.String
	TimeZone      string
}

// TimeSeriesData is a single fetched row, any value the source did not send stays null
type TimeSeriesData struct {
	Timestamp time.Time
	TimeSeriesOHLCV
	AdjustedClose  null.Float
	DividendAmount null.Float
}

type TimeSeriesOHLCV struct {
	Open   null.Float
	High   null.Float
	Low    null.Float
	Close  null.Float
	Volume null.Float
}

// ClosingPrice prefers the adjusted close when the source provides one
func (tsd *TimeSeriesData) ClosingPrice() null.Float {
	if tsd.AdjustedClose.Valid {
		return tsd.AdjustedClose
	}
	return tsd.Close
}

type timeSeriesDataJson struct {
	Date           string     `json:"date"`
	Open           null.Float `json:"open"`
	High           null.Float `json:"high"`
	Low            null.Float `json:"low"`
	Close          null.Float `json:"close"`
	AdjustedClose  null.Float `json:"adjustedClose"`
	Volume         null.Float `json:"volume"`
	DividendAmount null.Float `json:"dividendAmount"`
}

// MarshalJSON writes the row date as YYYY-MM-DD, missing or non finite values as null
func (tsd *TimeSeriesData) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeSeriesDataJson{
		Date:           tsd.Timestamp.Format(time.DateOnly),
		Open:           finite(tsd.Open),
		High:           finite(tsd.High),
		Low:            finite(tsd.Low),
		Close:          finite(tsd.Close),
		AdjustedClose:  finite(tsd.AdjustedClose),
		Volume:         finite(tsd.Volume),
		DividendAmount: finite(tsd.DividendAmount),
	})
}

func finite(v null.Float) null.Float {
	return null.NewFloat(v.Float64, v.Valid && !math.IsNaN(v.Float64) && !math.IsInf(v.Float64, 0))
}

// StockData is the raw fetched rows per symbol, ascending by date
type StockData map[string][]*TimeSeriesData

// Rows lines the fetched rows up with the given symbol order, unknown symbols get nil
func (sd StockData) Rows(symbols []string) [][]*TimeSeriesData {
	res := make([][]*TimeSeriesData, len(symbols))
	for i, symbol := range symbols {
		res[i] = sd[symbol]
	}
	return res
}
