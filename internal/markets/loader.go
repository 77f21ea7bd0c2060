// Package markets discovers the active up/down prediction market for each
// asset from the gamma API. It supplies token ids for the WebSocket feed;
// no decision logic lives here.
package markets

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/polylag/lagbot/internal/engine"
)

// Market is one asset's live up/down market for the current window.
type Market struct {
	Asset       engine.Asset
	EventID     string
	ConditionID string
	Question    string
	Slug        string
	UpTokenID   string
	DownTokenID string
	WindowStart time.Time
	WindowEnd   time.Time
}

// Loader fetches current-window markets from the gamma API.
type Loader struct {
	apiURL string
	client *http.Client
}

func NewLoader(apiURL string) *Loader {
	return &Loader{
		apiURL: apiURL,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchCurrent returns the market covering now for one asset. Crypto window
// markets use timestamp-aligned slugs, e.g. btc-updown-15m-1767707100 for
// the 15-minute window starting at that Unix time.
func (l *Loader) FetchCurrent(asset engine.Asset, windowMinutes int, now time.Time) (*Market, error) {
	interval := int64(windowMinutes) * 60
	windowTs := (now.Unix() / interval) * interval
	slug := fmt.Sprintf("%s-updown-%dm-%d", strings.ToLower(string(asset)), windowMinutes, windowTs)

	m, err := l.fetchBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("fetch market %s: %w", slug, err)
	}
	if m == nil {
		return nil, fmt.Errorf("no market found for slug %s", slug)
	}

	m.Asset = asset
	m.WindowStart = time.Unix(windowTs, 0).UTC()
	m.WindowEnd = m.WindowStart.Add(time.Duration(windowMinutes) * time.Minute)
	return m, nil
}

// FetchAll returns current-window markets for every asset; assets with no
// discoverable market are skipped with a warning.
func (l *Loader) FetchAll(assets []engine.Asset, windowMinutes int, now time.Time) map[engine.Asset]Market {
	found := make(map[engine.Asset]Market, len(assets))
	for _, asset := range assets {
		m, err := l.FetchCurrent(asset, windowMinutes, now)
		if err != nil {
			log.Warn().Err(err).Str("asset", string(asset)).Msg("Market discovery failed")
			continue
		}
		found[asset] = *m
		log.Info().
			Str("asset", string(asset)).
			Str("slug", m.Slug).
			Time("window_end", m.WindowEnd).
			Msg("🔍 Market found")
	}
	return found
}

type gammaEvent struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Active  bool   `json:"active"`
	Closed  bool   `json:"closed"`
	Markets []struct {
		ID           string `json:"id"`
		ConditionID  string `json:"conditionId"`
		Question     string `json:"question"`
		Outcomes     string `json:"outcomes"`
		ClobTokenIds string `json:"clobTokenIds"`
	} `json:"markets"`
}

func (l *Loader) fetchBySlug(slug string) (*Market, error) {
	url := fmt.Sprintf("%s/events?slug=%s", l.apiURL, slug)
	resp, err := l.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gamma API status %d", resp.StatusCode)
	}

	var events []gammaEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, err
	}
	if len(events) == 0 || len(events[0].Markets) == 0 {
		return nil, nil
	}

	event := events[0]
	if event.Closed || !event.Active {
		return nil, nil
	}
	market := event.Markets[0]

	var tokenIDs []string
	if err := json.Unmarshal([]byte(market.ClobTokenIds), &tokenIDs); err != nil {
		return nil, fmt.Errorf("parse token ids: %w", err)
	}
	if len(tokenIDs) < 2 {
		return nil, nil
	}

	return &Market{
		EventID:     event.ID,
		ConditionID: market.ConditionID,
		Question:    market.Question,
		Slug:        event.Slug,
		UpTokenID:   tokenIDs[0],
		DownTokenID: tokenIDs[1],
	}, nil
}
