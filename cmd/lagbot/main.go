// Lagbot - Group/Laggard Momentum Divergence Bot for Polymarket
//
// The bot watches 15-minute up/down prediction windows on a basket of crypto
// assets. When every reference asset's market has committed to one outcome
// and a laggard asset's market still prices the opposite, it enters the
// laggard on the group's side and exits at target or at window settlement.
//
// Flow:
// 1. Discover the current window's up/down market per asset (gamma API)
// 2. Stream prices over the market WebSocket channel
// 3. Feed every tick through the execution engine
// 4. Persist closed trades (SQLite/PostgreSQL + CSV), notify, export metrics
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/polylag/lagbot/internal/config"
	"github.com/polylag/lagbot/internal/engine"
	"github.com/polylag/lagbot/internal/feeds"
	"github.com/polylag/lagbot/internal/markets"
	"github.com/polylag/lagbot/internal/metrics"
	"github.com/polylag/lagbot/internal/notify"
	"github.com/polylag/lagbot/internal/report"
	"github.com/polylag/lagbot/internal/storage"
	"github.com/polylag/lagbot/internal/tradelog"
)

const version = "1.0.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Bool("dry_run", cfg.DryRun).
		Int("groups", len(cfg.Groups())).
		Msg("🚀 Lagbot starting")

	// ─── Sinks ───────────────────────────────────────────────────────────

	stats := engine.NewStats()
	sinks := []engine.TradeSink{stats}

	db, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()
	sinks = append(sinks, db)
	log.Info().Str("run_id", db.RunID()).Msg("Run registered")

	tlog, err := tradelog.New(cfg.TradeLogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open trade log")
	}
	defer tlog.Close()
	sinks = append(sinks, tlog)

	collector := metrics.NewCollector()
	sinks = append(sinks, collector)
	metrics.Serve(cfg.MetricsAddr)

	var notifier *notify.Notifier
	if cfg.TelegramToken != "" {
		notifier, err = notify.New(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram disabled")
		} else {
			sinks = append(sinks, notifier)
		}
	}

	eng := engine.New(cfg.EngineParams(), sinks...)

	// ─── Market discovery + feed ─────────────────────────────────────────

	loader := markets.NewLoader(cfg.GammaAPIURL)
	feed := feeds.NewPolymarketFeed(cfg.WSURL)

	subscribed := make(map[string]bool)
	discover := func(now time.Time) {
		found := loader.FetchAll(cfg.AllAssets(), cfg.WindowDurationMinutes, now)
		for _, m := range found {
			if subscribed[m.UpTokenID] {
				continue
			}
			subscribed[m.UpTokenID] = true
			feed.Subscribe(feeds.Subscription{
				Asset:       m.Asset,
				ConditionID: m.ConditionID,
				UpTokenID:   m.UpTokenID,
			})
		}
	}

	discover(time.Now().UTC())
	feed.Start()

	// Each window has its own market, so discovery re-runs shortly after
	// every boundary.
	windowDur := time.Duration(cfg.WindowDurationMinutes) * time.Minute
	discoveryTicker := time.NewTicker(30 * time.Second)
	defer discoveryTicker.Stop()
	lastWindow := time.Now().UTC().Truncate(windowDur)

	// Settlement must not wait for the next price tick.
	clockTicker := time.NewTicker(1 * time.Second)
	defer clockTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Msg("✅ Lagbot running, waiting for price events")

	for {
		select {
		case ev, ok := <-feed.Events():
			if !ok {
				shutdown(eng, stats, notifier)
				return
			}
			collector.EventProcessed(ev.Asset, ev.At)
			before := eng.Counters().SkippedTicks
			eng.OnPriceEvent(ev)
			if eng.Counters().SkippedTicks > before {
				collector.TickSkipped()
			}

		case now := <-clockTicker.C:
			eng.Tick(now.UTC())

		case now := <-discoveryTicker.C:
			w := now.UTC().Truncate(windowDur)
			if w.After(lastWindow) {
				lastWindow = w
				discover(now.UTC())
			}

		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("Shutting down")
			feed.Stop()
			shutdown(eng, stats, notifier)
			return
		}
	}
}

// shutdown force-settles open trades and emits the session summary.
func shutdown(eng *engine.Engine, stats *engine.Stats, notifier *notify.Notifier) {
	eng.ForceSettle(time.Now().UTC(), engine.ReasonShutdown)

	report.Write(os.Stdout, stats)
	if notifier != nil {
		notifier.SessionSummary(stats)
	}

	c := eng.Counters()
	log.Info().
		Int("events", c.Events).
		Int("trades", c.TradesClosed).
		Msg("👋 Lagbot stopped")
}
