package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	av "stockdash/api/alpha_vantage"
	"stockdash/api/yahoo"
	"stockdash/config"
	c "stockdash/core"
	ex "stockdash/extensions"
	"stockdash/render"
)

const shutdownTimeout = 10 * time.Second

// swapped out in tests
var newPriceSource = buildPriceSource

func main() {
	// initialize context and signal handler, listen for interrupt and term signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "stockdash",
		Usage: "daily returns, correlation and sharpe ratios for a set of stocks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a yaml config file", EnvVars: []string{"STOCKDASH_CONFIG"}},
			&cli.StringFlag{Name: "source", Usage: "price source, alphavantage or yahoo"},
			&cli.StringFlag{Name: "log-level", Usage: "panic, fatal, error, warn, info, debug or trace"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			analyzeCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the http api",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address, defaults to the configured server.addr"},
		},
		Action: func(cCtx *cli.Context) error {
			cfg, sc, err := setup(cCtx)
			if err != nil {
				return err
			}
			if cCtx.IsSet("addr") {
				cfg.Server.Addr = cCtx.String("addr")
			}

			return serve(sc, c.ServerSettings{
				Addr:           cfg.Server.Addr,
				ReadTimeout:    cfg.Server.ReadTimeout,
				WriteTimeout:   cfg.Server.WriteTimeout,
				AllowedOrigins: cfg.Server.AllowedOrigins,
			})
		},
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "fetch prices and print the metrics report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "symbols", Usage: "comma separated symbols, defaults to analysis.default_symbols"},
			&cli.StringFlag{Name: "start", Usage: "first date, YYYY-MM-DD"},
			&cli.StringFlag{Name: "end", Usage: "last date, YYYY-MM-DD, defaults to today"},
			&cli.Float64Flag{Name: "risk-free-rate", Usage: "per period risk free rate"},
			&cli.IntFlag{Name: "rows", Usage: "latest rows shown per table", Value: render.DefaultRows},
			&cli.BoolFlag{Name: "plain", Usage: "print raw markdown"},
			&cli.BoolFlag{Name: "json", Usage: "print the result as json"},
		},
		Action: analyze,
	}
}

// setup loads config, applies the global flags and builds the service context
func setup(cCtx *cli.Context) (*config.Config, *c.ServiceContext, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(cCtx.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if cCtx.IsSet("source") {
		cfg.Source = cCtx.String("source")
	}
	if cCtx.IsSet("log-level") {
		cfg.LogLevel = cCtx.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	logger := cfg.NewLogger()
	source, err := newPriceSource(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	sc := &c.ServiceContext{
		Context:      cCtx.Context,
		PriceSource:  source,
		Logger:       logger,
		RiskFreeRate: cfg.Analysis.RiskFreeRate,
		FetchWorkers: cfg.Analysis.FetchWorkers,
	}

	return cfg, sc, nil
}

func buildPriceSource(cfg *config.Config, logger *log.Logger) (c.PriceSource, error) {
	switch cfg.Source {
	case config.SourceYahoo:
		client := yahoo.GetClient()
		client.Logger = logger
		return client, nil
	case config.SourceAlphaVantage:
		key := cfg.AlphaVantage.Key()
		if key == "" {
			return nil, fmt.Errorf("%s is not set, the %s source needs an api key", cfg.AlphaVantage.KeyEnv, config.SourceAlphaVantage)
		}
		client := av.GetClient(key, cfg.AlphaVantage.Timeout)
		client.Logger = logger
		return client, nil
	default:
		return nil, fmt.Errorf("unknown price source %q", cfg.Source)
	}
}

func serve(sc *c.ServiceContext, settings c.ServerSettings) error {
	logger := sc.Logger

	// get http server, makes all of the endpoints and routes
	s := c.GetHttpServer(sc, settings)

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting stockdash server on %s using %s", s.Addr, sc.PriceSource.Name())
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// wait here until the context is closed (ie, ctrl+C) or the server dies
	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
	case <-sc.Context.Done():
	}
	logger.Info("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("Server stopped successfully")
	return nil
}

func analyze(cCtx *cli.Context) error {
	cfg, sc, err := setup(cCtx)
	if err != nil {
		return err
	}

	symbols := cfg.Analysis.DefaultSymbols
	if cCtx.IsSet("symbols") {
		symbols = cCtx.String("symbols")
	}

	startStr := cfg.Analysis.DefaultStart
	if cCtx.IsSet("start") {
		startStr = cCtx.String("start")
	}
	start, err := ex.ParseShort(startStr)
	if err != nil {
		return exitWithKind(c.InputError, fmt.Errorf("invalid start date: %w", err))
	}

	end := time.Now()
	if cCtx.IsSet("end") {
		if end, err = ex.ParseShort(cCtx.String("end")); err != nil {
			return exitWithKind(c.InputError, fmt.Errorf("invalid end date: %w", err))
		}
	}

	riskFreeRate := cfg.Analysis.RiskFreeRate
	if cCtx.IsSet("risk-free-rate") {
		riskFreeRate = cCtx.Float64("risk-free-rate")
	}

	req, err := c.NewAnalysisRequest(c.ParseSymbols(symbols), start, end, riskFreeRate)
	if err != nil {
		return exitWithKind(c.KindOf(err), err)
	}

	res, err := sc.RunAnalysis(req)
	if err != nil {
		return exitWithKind(c.KindOf(err), err)
	}

	out := cCtx.App.Writer
	if cCtx.Bool("json") {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(res)
	}

	report, err := render.AnalysisMarkdown(res, render.Options{Rows: cCtx.Int("rows")})
	if err != nil {
		return err
	}
	if !cCtx.Bool("plain") {
		if report, err = render.ToTerminal(report, render.DefaultWordWrap); err != nil {
			return err
		}
	}

	_, err = fmt.Fprint(out, report)
	return err
}

// exitWithKind maps the error kinds onto process exit codes
func exitWithKind(kind c.ErrorKind, err error) error {
	code := 1
	switch kind {
	case c.InputError:
		code = 2
	case c.NoDataError:
		code = 3
	}
	return cli.Exit(fmt.Sprintf("%s: %v", kind.Name(), err), code)
}
