package engine

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EXECUTION ENGINE - Central orchestrator
// ═══════════════════════════════════════════════════════════════════════════════
//
// Flow per event:
//   Snapshot ← event → settle due trades → Window Tracker → exit checks
//     → Signal Detector → open trade → (on close) TradeSinks
//
// The engine is single-threaded by construction: live and replay drivers feed
// it one event at a time in non-decreasing global timestamp order, so the
// same event sequence always produces the same closed-trade list. All price
// math is decimal, so the decisions are bit-identical between live and replay.
//
// ═══════════════════════════════════════════════════════════════════════════════

// PriceEvent is a single inbound price observation.
type PriceEvent struct {
	Asset Asset
	Price decimal.Decimal
	At    time.Time
}

// TradeSink receives every closed trade, in close order. The engine retains
// no reference to a trade after handing it over.
type TradeSink interface {
	TradeClosed(t Trade)
}

// Counters are the engine's diagnostic tallies.
type Counters struct {
	Events           int
	SkippedTicks     int
	DiscardedPrices  int
	ClockRegressions int
	TradesOpened     int
	TradesClosed     int
}

// Engine holds all mutable trading state for one run. Construct one per run;
// nothing is shared between instances.
type Engine struct {
	params   Params
	snaps    *Snapshots
	windows  *WindowTracker
	detector *Detector
	sinks    []TradeSink

	open   map[Asset]*Trade
	lastTS map[Asset]time.Time
	now    time.Time

	counters Counters
}

// New creates an engine. Params must have been validated.
func New(params Params, sinks ...TradeSink) *Engine {
	return &Engine{
		params:   params,
		snaps:    NewSnapshots(),
		windows:  NewWindowTracker(params.WindowDuration),
		detector: NewDetector(params),
		sinks:    sinks,
		open:     make(map[Asset]*Trade),
		lastTS:   make(map[Asset]time.Time),
	}
}

// OnPriceEvent processes one inbound price observation. Out-of-range prices
// are discarded and out-of-order or duplicate timestamps for an asset are
// skipped; both are diagnostics, never fatal.
func (e *Engine) OnPriceEvent(ev PriceEvent) {
	if ev.Price.IsNegative() || ev.Price.GreaterThan(one) {
		e.counters.DiscardedPrices++
		log.Warn().
			Str("asset", string(ev.Asset)).
			Str("price", ev.Price.String()).
			Msg("Discarding out-of-range price")
		return
	}

	if last, ok := e.lastTS[ev.Asset]; ok && !ev.At.After(last) {
		e.counters.SkippedTicks++
		log.Debug().
			Str("asset", string(ev.Asset)).
			Time("ts", ev.At).
			Time("last", last).
			Msg("Skipping out-of-order tick")
		return
	}
	e.lastTS[ev.Asset] = ev.At
	e.counters.Events++

	if ev.At.After(e.now) {
		e.now = ev.At
	}

	// Settle due trades on the pre-event snapshot so the settlement price is
	// the final observation before window end, not the post-expiry one.
	e.settleDue(e.now, ReasonWindowExpiry)

	e.snaps.Update(ev.Asset, ev.Price, ev.At)

	w, err := e.windows.Advance(ev.Asset, ev.At)
	if err != nil {
		e.counters.ClockRegressions++
		log.Warn().Err(err).Str("asset", string(ev.Asset)).Msg("Window advance rejected")
		return
	}

	e.checkTargetExit(ev)

	e.evaluateEntries(ev, w)
}

// Tick lets the live driver push wall-clock time forward between price events
// so due settlements are not deferred until the next tick arrives. Replay
// never needs it: historical events carry the clock.
func (e *Engine) Tick(now time.Time) {
	if now.After(e.now) {
		e.now = now
	}
	e.settleDue(e.now, ReasonWindowExpiry)
}

// ForceSettle closes every open trade at the last observed price. Used on
// shutdown (and at the end of a replay) so no trade is left in limbo.
func (e *Engine) ForceSettle(now time.Time, reason string) {
	if now.After(e.now) {
		e.now = now
	}
	for _, asset := range e.openAssets() {
		e.settleTrade(e.open[asset], e.now, reason)
	}
}

// Counters returns the diagnostic tallies so far.
func (e *Engine) Counters() Counters {
	return e.counters
}

// OpenTrades returns copies of the open trades, ordered by asset.
func (e *Engine) OpenTrades() []Trade {
	out := make([]Trade, 0, len(e.open))
	for _, asset := range e.openAssets() {
		out = append(out, *e.open[asset])
	}
	return out
}

// openAssets returns assets with open trades in sorted order; map iteration
// order must never leak into trade processing order.
func (e *Engine) openAssets() []Asset {
	assets := make([]Asset, 0, len(e.open))
	for a := range e.open {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	return assets
}

func (e *Engine) settleDue(now time.Time, reason string) {
	for _, asset := range e.openAssets() {
		t := e.open[asset]
		if now.Before(t.WindowEnd) {
			continue
		}
		e.settleTrade(t, t.WindowEnd, reason)
	}
}

func (e *Engine) settleTrade(t *Trade, at time.Time, reason string) {
	q, ok := e.snaps.Get(t.Asset)
	if !ok {
		// A trade cannot open without a laggard quote, so this only guards
		// against misuse.
		q = Quote{Price: t.EntryPrice, At: t.EntryTime}
	}
	stale := at.Sub(q.At) > e.params.SettleStaleness

	if err := t.settle(q.Price, at, e.params.PayoutMultiplier, reason, stale); err != nil {
		log.Error().Err(err).Str("trade", t.ID).Msg("Settlement rejected")
		return
	}
	e.closeTrade(t)

	log.Info().
		Str("trade", t.ID).
		Str("outcome", string(t.Outcome)).
		Str("final", q.Price.String()).
		Str("pnl", t.PnLUSD.StringFixed(4)).
		Bool("stale", stale).
		Msg("🏁 Trade settled")
}

func (e *Engine) checkTargetExit(ev PriceEvent) {
	t, ok := e.open[ev.Asset]
	if !ok || !t.targetHit(ev.Price, e.params.ExitUpThreshold, e.params.ExitDownThreshold) {
		return
	}
	if err := t.closeAtTarget(ev.Price, ev.At); err != nil {
		log.Error().Err(err).Str("trade", t.ID).Msg("Target exit rejected")
		return
	}
	e.closeTrade(t)

	log.Info().
		Str("trade", t.ID).
		Str("entry", t.EntryPrice.String()).
		Str("exit", t.ExitPrice.String()).
		Str("pnl", t.PnLUSD.StringFixed(4)).
		Msg("🎯 Target exit")
}

func (e *Engine) evaluateEntries(ev PriceEvent, eventWindow *Window) {
	for _, group := range e.params.Groups {
		if !group.Involves(ev.Asset) {
			continue
		}

		// Eligibility is judged on the laggard's window. Global timestamps
		// are non-decreasing, so advancing the laggard tracker to the event
		// time is safe even when the event is for a reference asset.
		var lw *Window
		if group.Laggard == ev.Asset {
			lw = eventWindow
		} else {
			var err error
			lw, err = e.windows.Advance(group.Laggard, e.now)
			if err != nil {
				e.counters.ClockRegressions++
				log.Warn().Err(err).Str("asset", string(group.Laggard)).Msg("Window advance rejected")
				continue
			}
		}

		remaining := e.windows.Remaining(group.Laggard, e.now)
		sig := e.detector.Evaluate(group, e.snaps, remaining, lw.EntryUsed, e.now)
		if sig == nil {
			continue
		}

		// Entry consumption is the invariant, not trade existence: a trade
		// may already have closed inside this window.
		if _, exists := e.open[sig.Laggard]; exists {
			continue
		}

		t := newTrade(sig, lw, e.params.StakeUSD)
		e.open[sig.Laggard] = t
		e.windows.MarkEntryUsed(sig.Laggard)
		e.counters.TradesOpened++

		log.Info().
			Str("trade", t.ID).
			Str("group", sig.GroupID).
			Str("side", string(sig.Side)).
			Str("entry", sig.LaggardPrice.String()).
			Dur("remaining", remaining).
			Msg("📈 Trade opened")

		// One trade per tick at most; the first group that fires wins.
		return
	}
}

func (e *Engine) closeTrade(t *Trade) {
	delete(e.open, t.Asset)
	e.counters.TradesClosed++
	for _, sink := range e.sinks {
		sink.TradeClosed(*t)
	}
}
