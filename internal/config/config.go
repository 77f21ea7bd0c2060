package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polylag/lagbot/internal/engine"
)

// Config holds all configuration for the bot. Strategy thresholds mirror the
// engine parameter surface; the rest is adapter wiring.
type Config struct {
	// Mode
	DryRun bool
	Debug  bool

	// Assets
	ReferenceAssets []engine.Asset // always in the reference group
	TradeableAssets []engine.Asset // laggard candidates, one per group config

	// Reference-group zones
	ZoneHighMin decimal.Decimal
	ZoneHighMax decimal.Decimal
	ZoneLowMin  decimal.Decimal
	ZoneLowMax  decimal.Decimal

	// Laggard zones
	LaggardLowMax  decimal.Decimal
	LaggardHighMin decimal.Decimal

	// Exits
	ExitUpThreshold   decimal.Decimal
	ExitDownThreshold decimal.Decimal

	// Windows
	WindowDurationMinutes int
	EntryMinRemaining     time.Duration
	EntryMaxRemaining     time.Duration
	SettleStaleness       time.Duration

	// Sizing
	StakeUSD         decimal.Decimal
	PayoutMultiplier decimal.Decimal

	// Polymarket API
	GammaAPIURL string
	WSURL       string

	// Persistence
	DatabasePath string
	TradeLogPath string

	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Prometheus
	MetricsAddr string
}

// Load reads configuration from environment variables with the strategy's
// documented defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DryRun: getEnvBool("DRY_RUN", true),
		Debug:  getEnvBool("DEBUG", false),

		ReferenceAssets: getEnvAssets("REFERENCE_ASSETS", []engine.Asset{"BTC", "ETH"}),
		TradeableAssets: getEnvAssets("TRADEABLE_ASSETS", []engine.Asset{"SOL", "XRP"}),

		ZoneHighMin: getEnvDecimal("ZONE_HIGH_MIN", decimal.NewFromFloat(0.75)),
		ZoneHighMax: getEnvDecimal("ZONE_HIGH_MAX", decimal.NewFromInt(1)),
		ZoneLowMin:  getEnvDecimal("ZONE_LOW_MIN", decimal.Zero),
		ZoneLowMax:  getEnvDecimal("ZONE_LOW_MAX", decimal.NewFromFloat(0.25)),

		LaggardLowMax:  getEnvDecimal("LAGGARD_LOW_MAX", decimal.NewFromFloat(0.50)),
		LaggardHighMin: getEnvDecimal("LAGGARD_HIGH_MIN", decimal.NewFromFloat(0.50)),

		ExitUpThreshold:   getEnvDecimal("EXIT_UP_THRESHOLD", decimal.NewFromFloat(0.90)),
		ExitDownThreshold: getEnvDecimal("EXIT_DOWN_THRESHOLD", decimal.NewFromFloat(0.10)),

		WindowDurationMinutes: getEnvInt("WINDOW_DURATION_MINUTES", 15),
		EntryMinRemaining:     getEnvSeconds("ENTRY_MIN_REMAINING_SECONDS", 90),
		EntryMaxRemaining:     getEnvSeconds("ENTRY_MAX_REMAINING_SECONDS", 300),
		SettleStaleness:       getEnvSeconds("SETTLE_STALENESS_SECONDS", 30),

		StakeUSD:         getEnvDecimal("STAKE_SIZE_USD", decimal.NewFromInt(1)),
		PayoutMultiplier: getEnvDecimal("PAYOUT_MULTIPLIER", decimal.NewFromFloat(1.95)),

		GammaAPIURL: getEnv("POLYMARKET_API_URL", "https://gamma-api.polymarket.com"),
		WSURL:       getEnv("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),

		DatabasePath: getEnv("DATABASE_PATH", "data/lagbot.db"),
		TradeLogPath: getEnv("TRADE_LOG_PATH", "logs/trades.csv"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		MetricsAddr: getEnv("METRICS_ADDR", ":9191"),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.ReferenceAssets) < 2 {
		return fmt.Errorf("need at least 2 reference assets, have %d", len(c.ReferenceAssets))
	}
	if len(c.TradeableAssets) < 1 {
		return fmt.Errorf("need at least 1 tradeable asset")
	}
	for _, t := range c.TradeableAssets {
		for _, r := range c.ReferenceAssets {
			if t == r {
				return fmt.Errorf("asset %s is both reference and tradeable", t)
			}
		}
	}
	return c.EngineParams().Validate()
}

// Groups builds the group configurations: each tradeable asset takes a turn
// as laggard while the other tradeables join the fixed references.
func (c *Config) Groups() []engine.GroupConfig {
	groups := make([]engine.GroupConfig, 0, len(c.TradeableAssets))
	for i, laggard := range c.TradeableAssets {
		refs := make([]engine.Asset, 0, len(c.ReferenceAssets)+len(c.TradeableAssets)-1)
		refs = append(refs, c.ReferenceAssets...)
		for j, other := range c.TradeableAssets {
			if j != i {
				refs = append(refs, other)
			}
		}
		groups = append(groups, engine.GroupConfig{
			ID:         fmt.Sprintf("G%d", i+1),
			References: refs,
			Laggard:    laggard,
		})
	}
	return groups
}

// AllAssets returns every asset the bot needs a price feed for.
func (c *Config) AllAssets() []engine.Asset {
	all := make([]engine.Asset, 0, len(c.ReferenceAssets)+len(c.TradeableAssets))
	all = append(all, c.ReferenceAssets...)
	all = append(all, c.TradeableAssets...)
	return all
}

// EngineParams maps the config onto the engine's parameter surface.
func (c *Config) EngineParams() engine.Params {
	return engine.Params{
		Groups:            c.Groups(),
		WindowDuration:    time.Duration(c.WindowDurationMinutes) * time.Minute,
		EntryMinRemaining: c.EntryMinRemaining,
		EntryMaxRemaining: c.EntryMaxRemaining,
		ZoneHighMin:       c.ZoneHighMin,
		ZoneHighMax:       c.ZoneHighMax,
		ZoneLowMin:        c.ZoneLowMin,
		ZoneLowMax:        c.ZoneLowMax,
		LaggardLowMax:     c.LaggardLowMax,
		LaggardHighMin:    c.LaggardHighMin,
		ExitUpThreshold:   c.ExitUpThreshold,
		ExitDownThreshold: c.ExitDownThreshold,
		StakeUSD:          c.StakeUSD,
		PayoutMultiplier:  c.PayoutMultiplier,
		SettleStaleness:   c.SettleStaleness,
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAssets(key string, defaultValue []engine.Asset) []engine.Asset {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	assets := make([]engine.Asset, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			assets = append(assets, engine.Asset(p))
		}
	}
	return assets
}
