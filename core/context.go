package core

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	m "stockdash/models"
)

const (
	DefaultFetchWorkers = 4
)

// PriceSource is the market data collaborator, it returns daily rows for
// one symbol between start and end inclusive. An unknown symbol or an empty
// range is an empty slice, not an error.
type PriceSource interface {
	Name() string
	GetDailyPrices(ctx context.Context, symbol string, start, end time.Time) ([]*m.TimeSeriesData, error)
}

type ServiceContext struct {
	Context      context.Context
	PriceSource  PriceSource
	Logger       *log.Logger
	RiskFreeRate float64
	FetchWorkers int
}

func (sc *ServiceContext) logger() *log.Logger {
	if sc.Logger == nil {
		return log.StandardLogger()
	}
	return sc.Logger
}

func (sc *ServiceContext) ctx() context.Context {
	if sc.Context == nil {
		return context.Background()
	}
	return sc.Context
}
