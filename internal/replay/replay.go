// Package replay feeds historical price data through the execution engine.
// It is a thin driver: the engine makes every decision, so a replayed run and
// a live run over the same events produce identical trades.
package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/polylag/lagbot/internal/engine"
)

// timestamp layouts accepted in historical CSVs.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Load reads price events from a CSV file with header
// timestamp,asset,price and returns them sorted by timestamp. The sort is
// stable so rows sharing a timestamp keep their file order.
func Load(path string) ([]engine.PriceEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open historical data: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads price events from CSV data.
func Parse(r io.Reader) ([]engine.PriceEvent, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"timestamp", "asset", "price"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv missing column %q", required)
		}
	}

	var events []engine.PriceEvent
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		ts, err := parseTime(record[col["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(record[col["price"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad price %q", line, record[col["price"]])
		}

		events = append(events, engine.PriceEvent{
			Asset: engine.Asset(strings.ToUpper(strings.TrimSpace(record[col["asset"]]))),
			Price: price,
			At:    ts,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.Before(events[j].At)
	})
	return events, nil
}

// Run drives every event through the engine in order, then force-settles
// whatever is still open at the final timestamp.
func Run(e *engine.Engine, events []engine.PriceEvent) {
	if len(events) == 0 {
		log.Warn().Msg("No events to replay")
		return
	}

	log.Info().
		Int("events", len(events)).
		Time("from", events[0].At).
		Time("to", events[len(events)-1].At).
		Msg("▶️ Replay started")

	for i, ev := range events {
		e.OnPriceEvent(ev)
		if (i+1)%100000 == 0 {
			log.Info().Int("processed", i+1).Msg("Replay progress")
		}
	}

	e.ForceSettle(events[len(events)-1].At, engine.ReasonShutdown)

	c := e.Counters()
	log.Info().
		Int("events", c.Events).
		Int("skipped", c.SkippedTicks).
		Int("discarded", c.DiscardedPrices).
		Int("trades", c.TradesClosed).
		Msg("⏹ Replay finished")
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", s)
}
