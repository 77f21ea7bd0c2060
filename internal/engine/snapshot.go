package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset identifies one of the tracked prediction markets (BTC, ETH, SOL, XRP).
type Asset string

// Quote is the most recent observed price for an asset's UP outcome.
// Prices are market probabilities in [0, 1].
type Quote struct {
	Price decimal.Decimal
	At    time.Time
}

// Snapshots holds the latest known quote per asset. No history is kept;
// replay sources own the historical record.
type Snapshots struct {
	quotes map[Asset]Quote
}

func NewSnapshots() *Snapshots {
	return &Snapshots{quotes: make(map[Asset]Quote)}
}

// Update replaces the stored quote for asset.
func (s *Snapshots) Update(asset Asset, price decimal.Decimal, at time.Time) {
	s.quotes[asset] = Quote{Price: price, At: at}
}

// Get returns the latest quote for asset, if one has been observed.
func (s *Snapshots) Get(asset Asset) (Quote, bool) {
	q, ok := s.quotes[asset]
	return q, ok
}

// Price returns the latest price for asset, if one has been observed.
func (s *Snapshots) Price(asset Asset) (decimal.Decimal, bool) {
	q, ok := s.quotes[asset]
	return q.Price, ok
}
