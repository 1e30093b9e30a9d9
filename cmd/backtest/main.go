package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	"BandTrader/internal/backtest"
	"BandTrader/internal/collector"
	"BandTrader/internal/config"
	"BandTrader/internal/logx"
	"BandTrader/internal/recorder"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfgPath := flag.String("config", "configs/config.yaml", "config file")
	tickers := flag.String("tickers", "", "comma separated tickers, overrides config")
	flag.Parse()
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		*cfgPath = v
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if *tickers != "" {
		cfg.Backtest.Tickers = strings.Split(*tickers, ",")
	}
	if err := cfg.ValidateBacktest(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	logx.Setup(cfg.LogLevel)

	loc, err := cfg.BacktestLocation()
	if err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	start, end, err := cfg.BacktestRange()
	if err != nil {
		log.Fatalf("[FATAL] backtest range: %v", err)
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := &backtest.Runner{
		Fetcher:  collector.NewYahooFetcher(cfg.Proxy),
		Recorder: rec,
		Interval: cfg.Backtest.Interval,
		Start:    start,
		End:      end,
		Params: backtest.Params{
			Window:         cfg.Indicators.Window,
			RSIWindow:      cfg.Backtest.RSIWindow,
			MaxHoldDays:    cfg.HoldDays(),
			Location:       loc,
			InitialCapital: cfg.Backtest.InitialCapital,
		},
		OutputDir: cfg.Backtest.OutputDir,
	}

	log.Printf("[INFO] backtesting %d tickers x %d risk levels from %s", len(cfg.Backtest.Tickers), len(cfg.Backtest.RiskLevels), cfg.Backtest.Start)
	results, err := runner.Run(ctx, cfg.Backtest.Tickers, cfg.Backtest.RiskLevels)
	if err != nil {
		log.Printf("[ERROR] backtest interrupted: %v", err)
	}

	for _, line := range backtest.Totals(results) {
		log.Printf("[INFO] %s", line)
	}
}
