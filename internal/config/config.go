package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Instrument is a tradable symbol with its stop-loss multiplier.
type Instrument struct {
	Symbol         string  `yaml:"symbol"`
	RiskMultiplier float64 `yaml:"risk_multiplier"`
}

// RiskLevel is a named stop-loss multiplier used by the backtest.
type RiskLevel struct {
	Name       string  `yaml:"name"`
	Multiplier float64 `yaml:"multiplier"`
}

// Config holds all application configuration.
type Config struct {
	Alpaca struct {
		BaseURL   string `yaml:"base_url"`
		DataURL   string `yaml:"data_url"`
		KeyID     string `yaml:"key_id"`
		SecretKey string `yaml:"secret_key"`
		Feed      string `yaml:"feed"`
	} `yaml:"alpaca"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Indicators struct {
		Window int `yaml:"window"`
	} `yaml:"indicators"`
	Live struct {
		Instruments    []Instrument `yaml:"instruments"`
		RSIWindow      int          `yaml:"rsi_window"`
		PollCron       string       `yaml:"poll_cron"`
		Interval       string       `yaml:"interval"`
		FetchLimit     int          `yaml:"fetch_limit"`
		HistoryMargin  int          `yaml:"history_margin"`
		InitialCapital float64      `yaml:"initial_capital"`
		DryRun         bool         `yaml:"dry_run"`
	} `yaml:"live"`
	Backtest struct {
		Tickers        []string    `yaml:"tickers"`
		RiskLevels     []RiskLevel `yaml:"risk_levels"`
		RSIWindow      int         `yaml:"rsi_window"`
		Start          string      `yaml:"start"`
		End            string      `yaml:"end"`
		MaxHoldDays    int         `yaml:"max_hold_days"` // negative disables, 0 means default
		Timezone       string      `yaml:"timezone"`
		Interval       string      `yaml:"interval"`
		InitialCapital float64     `yaml:"initial_capital"`
		OutputDir      string      `yaml:"output_dir"`
	} `yaml:"backtest"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	LogLevel string `yaml:"log_level"`
	Proxy    string `yaml:"proxy"`
}

var defaultInstruments = []Instrument{
	{Symbol: "AAPL", RiskMultiplier: 0.95},
	{Symbol: "MSFT", RiskMultiplier: 0.85},
	{Symbol: "GOOGL", RiskMultiplier: 0.70},
}

var defaultTickers = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NFLX", "PEP", "PG", "JPM", "BAC",
	"GS", "JNJ", "PFE", "MRK", "XOM", "CVX", "DUK", "NEE",
}

var defaultRiskLevels = []RiskLevel{
	{Name: "Low Risk", Multiplier: 0.95},
	{Name: "Medium Risk", Multiplier: 0.85},
	{Name: "High Risk", Multiplier: 0.70},
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.KeyID = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.SecretKey = v
	}
	if v := os.Getenv("APCA_API_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("POLL_CRON"); v != "" {
		cfg.Live.PollCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Alpaca.BaseURL == "" {
		c.Alpaca.BaseURL = "https://paper-api.alpaca.markets"
	}
	if c.Alpaca.DataURL == "" {
		c.Alpaca.DataURL = "https://data.alpaca.markets"
	}
	if c.Alpaca.Feed == "" {
		c.Alpaca.Feed = "iex"
	}
	if c.Indicators.Window == 0 {
		c.Indicators.Window = 20
	}

	if len(c.Live.Instruments) == 0 {
		c.Live.Instruments = append([]Instrument(nil), defaultInstruments...)
	}
	if c.Live.RSIWindow == 0 {
		c.Live.RSIWindow = 14
	}
	if c.Live.PollCron == "" {
		c.Live.PollCron = "@every 1m"
	}
	if c.Live.Interval == "" {
		c.Live.Interval = "1Min"
	}
	if c.Live.FetchLimit == 0 {
		c.Live.FetchLimit = 20
	}
	if c.Live.HistoryMargin == 0 {
		c.Live.HistoryMargin = 10
	}
	if c.Live.InitialCapital == 0 {
		c.Live.InitialCapital = 100000
	}

	if len(c.Backtest.Tickers) == 0 {
		c.Backtest.Tickers = append([]string(nil), defaultTickers...)
	}
	if len(c.Backtest.RiskLevels) == 0 {
		c.Backtest.RiskLevels = append([]RiskLevel(nil), defaultRiskLevels...)
	}
	if c.Backtest.RSIWindow == 0 {
		c.Backtest.RSIWindow = 6
	}
	if c.Backtest.Start == "" {
		c.Backtest.Start = "2019-01-01"
	}
	if c.Backtest.MaxHoldDays == 0 {
		c.Backtest.MaxHoldDays = 5
	}
	if c.Backtest.Timezone == "" {
		c.Backtest.Timezone = "America/New_York"
	}
	if c.Backtest.Interval == "" {
		c.Backtest.Interval = "1Day"
	}
	if c.Backtest.InitialCapital == 0 {
		c.Backtest.InitialCapital = 100000
	}
	if c.Backtest.OutputDir == "" {
		c.Backtest.OutputDir = "data/backtest"
	}

	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/bandtrader.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the fields required by live trading.
func (c *Config) Validate() error {
	if !c.Live.DryRun {
		if c.Alpaca.KeyID == "" {
			return fmt.Errorf("alpaca.key_id is required")
		}
		if c.Alpaca.SecretKey == "" {
			return fmt.Errorf("alpaca.secret_key is required")
		}
	}
	if c.Indicators.Window < 2 {
		return fmt.Errorf("indicators.window must be at least 2")
	}
	if c.Live.RSIWindow < 1 {
		return fmt.Errorf("live.rsi_window must be positive")
	}
	seen := make(map[string]bool)
	for _, in := range c.Live.Instruments {
		if in.Symbol == "" {
			return fmt.Errorf("live.instruments: empty symbol")
		}
		if seen[in.Symbol] {
			return fmt.Errorf("live.instruments: duplicate symbol %s", in.Symbol)
		}
		seen[in.Symbol] = true
		if in.RiskMultiplier <= 0 || in.RiskMultiplier >= 1 {
			return fmt.Errorf("live.instruments: %s risk_multiplier must be in (0,1), got %v", in.Symbol, in.RiskMultiplier)
		}
	}
	return nil
}

// ValidateBacktest checks the fields required by the backtest.
func (c *Config) ValidateBacktest() error {
	if len(c.Backtest.Tickers) == 0 {
		return fmt.Errorf("backtest.tickers is required")
	}
	for _, r := range c.Backtest.RiskLevels {
		if r.Multiplier <= 0 || r.Multiplier >= 1 {
			return fmt.Errorf("backtest.risk_levels: %s multiplier must be in (0,1), got %v", r.Name, r.Multiplier)
		}
	}
	if _, _, err := c.BacktestRange(); err != nil {
		return err
	}
	if c.Backtest.RSIWindow < 1 {
		return fmt.Errorf("backtest.rsi_window must be positive")
	}
	if _, err := c.BacktestLocation(); err != nil {
		return err
	}
	return nil
}

// BacktestRange parses the configured start and optional end dates.
func (c *Config) BacktestRange() (start, end time.Time, err error) {
	start, err = time.Parse(time.DateOnly, c.Backtest.Start)
	if err != nil {
		return start, end, fmt.Errorf("backtest.start: %w", err)
	}
	if c.Backtest.End != "" {
		end, err = time.Parse(time.DateOnly, c.Backtest.End)
		if err != nil {
			return start, end, fmt.Errorf("backtest.end: %w", err)
		}
		if !end.After(start) {
			return start, end, fmt.Errorf("backtest.end must be after backtest.start")
		}
	}
	return start, end, nil
}

// HoldDays returns the backtest holding-period limit in calendar days.
// A negative max_hold_days turns the stop off and yields 0.
func (c *Config) HoldDays() int {
	if c.Backtest.MaxHoldDays < 0 {
		return 0
	}
	return c.Backtest.MaxHoldDays
}

// BacktestLocation loads the exchange timezone holding periods are counted in.
func (c *Config) BacktestLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Backtest.Timezone)
	if err != nil {
		return nil, fmt.Errorf("backtest.timezone: %w", err)
	}
	return loc, nil
}
