// Package metrics exposes live-mode Prometheus instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/polylag/lagbot/internal/engine"
)

// Collector tracks feed and trade activity. Implements engine.TradeSink for
// the closed-trade counters.
type Collector struct {
	eventsTotal   *prometheus.CounterVec
	skippedTotal  prometheus.Counter
	tradesTotal   *prometheus.CounterVec
	pnlTotal      prometheus.Gauge
	lastEventTime prometheus.Gauge
}

func NewCollector() *Collector {
	return &Collector{
		eventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lagbot_price_events_total",
			Help: "Price events delivered to the engine, by asset.",
		}, []string{"asset"}),
		skippedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lagbot_skipped_ticks_total",
			Help: "Out-of-order or duplicate ticks rejected by the engine.",
		}),
		tradesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lagbot_trades_closed_total",
			Help: "Closed trades by asset and outcome.",
		}, []string{"asset", "outcome"}),
		pnlTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lagbot_cumulative_pnl_usd",
			Help: "Cumulative realized P&L in USD.",
		}),
		lastEventTime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lagbot_last_event_timestamp_seconds",
			Help: "Unix time of the most recent price event.",
		}),
	}
}

// EventProcessed records one delivered price event.
func (c *Collector) EventProcessed(asset engine.Asset, at time.Time) {
	c.eventsTotal.WithLabelValues(string(asset)).Inc()
	c.lastEventTime.Set(float64(at.Unix()))
}

// TickSkipped records one rejected tick.
func (c *Collector) TickSkipped() {
	c.skippedTotal.Inc()
}

// TradeClosed implements engine.TradeSink.
func (c *Collector) TradeClosed(t engine.Trade) {
	c.tradesTotal.WithLabelValues(string(t.Asset), string(t.Outcome)).Inc()
	pnl, _ := t.PnLUSD.Float64()
	c.pnlTotal.Add(pnl)
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		log.Info().Str("addr", addr).Msg("📊 Metrics endpoint up")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn().Err(err).Msg("Metrics server stopped")
		}
	}()
}
