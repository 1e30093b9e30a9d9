package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"BandTrader/internal/broker"
	"BandTrader/internal/collector"
	"BandTrader/internal/config"
	"BandTrader/internal/logx"
	"BandTrader/internal/notifier"
	"BandTrader/internal/recorder"
	"BandTrader/internal/scheduler"
	"BandTrader/internal/trader"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] BandTrader starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	logx.Setup(cfg.LogLevel)

	// Market data
	fetcher := collector.NewAlpacaFetcher(cfg.Alpaca.DataURL, cfg.Alpaca.KeyID, cfg.Alpaca.SecretKey, cfg.Proxy)
	fetcher.Feed = cfg.Alpaca.Feed
	col := collector.NewCollector(fetcher, collector.Options{
		Interval:  cfg.Live.Interval,
		Limit:     cfg.Live.FetchLimit,
		Window:    cfg.Indicators.Window,
		RSIWindow: cfg.Live.RSIWindow,
		Margin:    cfg.Live.HistoryMargin,
	})
	log.Printf("[INFO] data source: %s", fetcher.Name())

	// Order venue
	var venue broker.Broker
	if cfg.Live.DryRun {
		venue = broker.NewPaperBroker()
	} else {
		venue = broker.NewAlpacaBroker(cfg.Alpaca.BaseURL, cfg.Alpaca.KeyID, cfg.Alpaca.SecretKey, cfg.Proxy)
	}
	log.Printf("[INFO] broker: %s", venue.Name())

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := trader.New(col, venue, rec, cfg.Live.Instruments, cfg.Live.InitialCapital)

	// Telegram is optional
	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, tr, sender)
	tr.Notify = sched.Notify
	if err := sched.Register(cfg.Live.PollCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing one cycle now")
		go sched.RunNow()
	}

	log.Printf("[INFO] BandTrader is running (%s, %d instruments). Press Ctrl+C to stop.", cfg.Live.PollCron, len(cfg.Live.Instruments))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	sched.Stop()

	summary := notifier.FormatSummary(tr.Summary())
	log.Printf("[INFO] %s", summary)
	sched.Notify(summary)

	cancel()
	log.Println("[INFO] BandTrader stopped")
}
