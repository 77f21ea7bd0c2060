// Package storage persists closed trades. SQLite by default, PostgreSQL when
// the path is a connection string.
package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/polylag/lagbot/internal/engine"
)

type Database struct {
	db    *gorm.DB
	runID string
}

// ClosedTrade is the persisted form of an engine trade. Every column needed
// to recompute the running statistics independently is stored.
type ClosedTrade struct {
	ID          string `gorm:"primaryKey"`
	RunID       string `gorm:"index"`
	Asset       string `gorm:"index"`
	Side        string
	GroupID     string          `gorm:"index"`
	WindowStart time.Time       `gorm:"index"`
	WindowEnd   time.Time
	EntryTime   time.Time
	EntryPrice  decimal.Decimal `gorm:"type:decimal(10,6)"`
	ExitTime    time.Time
	ExitPrice   decimal.Decimal `gorm:"type:decimal(10,6)"`
	ExitReason  string
	Status      string
	Outcome     string
	StakeUSD    decimal.Decimal `gorm:"type:decimal(20,6)"`
	PnLUSD      decimal.Decimal `gorm:"type:decimal(20,6)"`
	PriceStale  bool
	CreatedAt   time.Time
}

func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("💾 Database connected (PostgreSQL)")
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("💾 Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&ClosedTrade{}); err != nil {
		return nil, err
	}

	return &Database{db: db, runID: uuid.NewString()}, nil
}

// RunID tags every row written by this process so runs can be compared.
func (d *Database) RunID() string {
	return d.runID
}

// TradeClosed implements engine.TradeSink. Persistence failures are logged,
// never propagated into the trading loop.
func (d *Database) TradeClosed(t engine.Trade) {
	row := ClosedTrade{
		ID:          t.ID,
		RunID:       d.runID,
		Asset:       string(t.Asset),
		Side:        string(t.Side),
		GroupID:     t.GroupID,
		WindowStart: t.WindowStart,
		WindowEnd:   t.WindowEnd,
		EntryTime:   t.EntryTime,
		EntryPrice:  t.EntryPrice,
		ExitTime:    t.ExitTime,
		ExitPrice:   t.ExitPrice,
		ExitReason:  t.ExitReason,
		Status:      string(t.Status),
		Outcome:     string(t.Outcome),
		StakeUSD:    t.StakeUSD,
		PnLUSD:      t.PnLUSD,
		PriceStale:  t.PriceStale,
	}
	if err := d.db.Save(&row).Error; err != nil {
		log.Error().Err(err).Str("trade", t.ID).Msg("Failed to persist trade")
	}
}

// RecentTrades returns the latest closed trades, newest first.
func (d *Database) RecentTrades(limit int) ([]ClosedTrade, error) {
	var trades []ClosedTrade
	err := d.db.Order("exit_time DESC").Limit(limit).Find(&trades).Error
	return trades, err
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
