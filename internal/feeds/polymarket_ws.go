// Package feeds delivers live Polymarket prices into the engine's single
// ordered event channel. The adapter owns all network concerns (reconnect,
// ping, parsing); the engine never blocks on I/O.
package feeds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/polylag/lagbot/internal/engine"
)

const (
	reconnectDelay = 5 * time.Second
	pingInterval   = 30 * time.Second
	eventBuffer    = 1000
)

// Subscription maps one market's UP-outcome token to an asset.
type Subscription struct {
	Asset       engine.Asset
	ConditionID string
	UpTokenID   string
}

// PolymarketFeed maintains the WebSocket connection and emits price events.
// A single reader goroutine stamps events with the wall clock, so the event
// channel is ordered by construction.
type PolymarketFeed struct {
	mu sync.RWMutex

	wsURL string
	conn  *websocket.Conn

	// Keyed by UP token id; DOWN-token updates are ignored so each asset has
	// exactly one price stream.
	subs    map[string]Subscription
	events  chan engine.PriceEvent
	running bool
	stopCh  chan struct{}
}

func NewPolymarketFeed(wsURL string) *PolymarketFeed {
	return &PolymarketFeed{
		wsURL:  wsURL,
		subs:   make(map[string]Subscription),
		events: make(chan engine.PriceEvent, eventBuffer),
		stopCh: make(chan struct{}),
	}
}

// Events returns the ordered inbound event channel.
func (f *PolymarketFeed) Events() <-chan engine.PriceEvent {
	return f.events
}

// Subscribe registers a market before or after Start; live connections are
// re-subscribed on reconnect.
func (f *PolymarketFeed) Subscribe(sub Subscription) {
	f.mu.Lock()
	f.subs[sub.UpTokenID] = sub
	conn := f.conn
	f.mu.Unlock()

	if conn != nil {
		f.sendSubscribe(conn, []Subscription{sub})
	}
}

// Start connects and begins reading. Safe to call once.
func (f *PolymarketFeed) Start() {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.mu.Unlock()

	go f.connectionLoop()
	log.Info().Msg("📡 Polymarket feed started")
}

// Stop closes the connection and signals the reader to exit. The event
// channel is closed by the reader goroutine once it has drained out, so a
// send in flight can never race the close.
func (f *PolymarketFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return
	}
	f.running = false
	close(f.stopCh)
	if f.conn != nil {
		f.conn.Close()
	}
	log.Info().Msg("Feed stopped")
}

func (f *PolymarketFeed) connectionLoop() {
	// All sends into f.events happen on this goroutine (readLoop runs here),
	// so it owns closing the channel.
	defer close(f.events)

	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		if err := f.connect(); err != nil {
			log.Error().Err(err).Msg("WebSocket connect failed, retrying")
			select {
			case <-f.stopCh:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		f.readLoop()

		select {
		case <-f.stopCh:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *PolymarketFeed) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL, nil)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.conn = conn
	subs := make([]Subscription, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	log.Info().Int("markets", len(subs)).Msg("🔌 WebSocket connected")

	if len(subs) > 0 {
		f.sendSubscribe(conn, subs)
	}
	go f.pingLoop(conn)
	return nil
}

func (f *PolymarketFeed) sendSubscribe(conn *websocket.Conn, subs []Subscription) {
	assetIDs := make([]string, 0, len(subs))
	for _, s := range subs {
		assetIDs = append(assetIDs, s.UpTokenID)
	}
	msg := map[string]interface{}{
		"type":       "subscribe",
		"channel":    "market",
		"assets_ids": assetIDs,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Warn().Err(err).Msg("Subscribe failed")
	}
}

func (f *PolymarketFeed) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *PolymarketFeed) readLoop() {
	f.mu.RLock()
	conn := f.conn
	f.mu.RUnlock()

	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Msg("WebSocket read error")
			return
		}
		f.processMessage(message)
	}
}

// wsMessage is the subset of the market-channel payload the bot consumes.
type wsMessage struct {
	EventType string `json:"event_type"`
	Market    string `json:"market"`
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
}

func (f *PolymarketFeed) processMessage(data []byte) {
	var msgs []wsMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		msgs = []wsMessage{msg}
	}

	for _, msg := range msgs {
		switch msg.EventType {
		case "price_change", "last_trade_price":
			f.emit(msg)
		}
	}
}

func (f *PolymarketFeed) emit(msg wsMessage) {
	f.mu.RLock()
	sub, ok := f.subs[msg.AssetID]
	f.mu.RUnlock()
	if !ok {
		return
	}

	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return
	}

	ev := engine.PriceEvent{
		Asset: sub.Asset,
		Price: price,
		At:    time.Now().UTC(),
	}

	select {
	case f.events <- ev:
	default:
		log.Warn().Str("asset", string(sub.Asset)).Msg("Event buffer full, dropping tick")
	}
}
