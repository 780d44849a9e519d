package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"straddle-stream/internal/logging"
	"straddle-stream/internal/market"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Indices  []IndexConfig  `mapstructure:"indices"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// ServerConfig covers the HTTP/websocket listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ProviderConfig captures quote API connectivity. Credentials may also
// arrive through the FYERS_CLIENT_ID / FYERS_ACCESS_TOKEN environment
// variables, optionally from a .env file.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ClientID       string        `mapstructure:"client_id"`
	AccessToken    string        `mapstructure:"access_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// StreamConfig governs the per-session broadcast loop.
type StreamConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	HistorySize    int           `mapstructure:"history_size"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// IndexConfig declares one tracked index.
type IndexConfig struct {
	ID              string `mapstructure:"id"`
	Exchange        string `mapstructure:"exchange"`
	BaseSymbol      string `mapstructure:"base_symbol"`
	QuoteSymbol     string `mapstructure:"quote_symbol"`
	StrikeIncrement int64  `mapstructure:"strike_increment"`
	ExpiryRule      string `mapstructure:"expiry_rule"`
	ExpiryWeekday   string `mapstructure:"expiry_weekday"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	// Credentials traditionally live in a .env next to the binary.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("STRADDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Provider.ClientID == "" {
		cfg.Provider.ClientID = os.Getenv("FYERS_CLIENT_ID")
	}
	if cfg.Provider.AccessToken == "" {
		cfg.Provider.AccessToken = os.Getenv("FYERS_ACCESS_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "straddle-stream")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("provider.base_url", "https://api.fyers.in")
	v.SetDefault("provider.request_timeout", "10s")
	v.SetDefault("provider.user_agent", "straddle-stream/1.0")

	v.SetDefault("stream.interval", "2s")
	v.SetDefault("stream.history_size", 100)
	v.SetDefault("stream.max_attempts", 3)
	v.SetDefault("stream.initial_backoff", "10s")

	v.SetDefault("indices", []map[string]any{
		{
			"id":               "nifty",
			"exchange":         "NSE",
			"base_symbol":      "NIFTY",
			"quote_symbol":     "NSE:NIFTY50-INDEX",
			"strike_increment": 50,
			"expiry_rule":      "weekly",
			"expiry_weekday":   "thursday",
		},
		{
			"id":               "sensex",
			"exchange":         "BSE",
			"base_symbol":      "SENSEX",
			"quote_symbol":     "BSE:SENSEX-INDEX",
			"strike_increment": 50,
			"expiry_rule":      "weekly",
			"expiry_weekday":   "tuesday",
		},
		{
			"id":               "banknifty",
			"exchange":         "NSE",
			"base_symbol":      "BANKNIFTY",
			"quote_symbol":     "NSE:NIFTYBANK-INDEX",
			"strike_increment": 100,
			"expiry_rule":      "monthly_last",
			"expiry_weekday":   "thursday",
		},
	})

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be greater than zero")
	}
	if c.Stream.HistorySize <= 0 {
		return fmt.Errorf("stream.history_size must be greater than zero")
	}
	if c.Stream.MaxAttempts <= 0 {
		return fmt.Errorf("stream.max_attempts must be greater than zero")
	}
	if c.Stream.InitialBackoff <= 0 {
		return fmt.Errorf("stream.initial_backoff must be greater than zero")
	}
	if len(c.Indices) == 0 {
		return fmt.Errorf("at least one index must be configured")
	}
	if _, err := c.IndexSpecs(); err != nil {
		return err
	}
	return nil
}

// IndexSpecs converts the configured indices into immutable market specs.
func (c *Config) IndexSpecs() ([]market.IndexSpec, error) {
	specs := make([]market.IndexSpec, 0, len(c.Indices))
	for _, idx := range c.Indices {
		rule, err := market.ParseRule(idx.ExpiryRule, idx.ExpiryWeekday)
		if err != nil {
			return nil, fmt.Errorf("index %q: %w", idx.ID, err)
		}
		spec := market.IndexSpec{
			ID:              idx.ID,
			Exchange:        idx.Exchange,
			BaseSymbol:      idx.BaseSymbol,
			QuoteSymbol:     idx.QuoteSymbol,
			StrikeIncrement: idx.StrikeIncrement,
			Rule:            rule,
		}
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
