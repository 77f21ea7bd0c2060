// Package notify pushes trade activity to Telegram. Entirely optional: when
// no bot token is configured the caller simply never constructs a Notifier.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/polylag/lagbot/internal/engine"
)

// Notifier sends trade notifications to one chat. Implements engine.TradeSink.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func New(token string, chatID int64) (*Notifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is not set")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	log.Info().Str("bot", api.Self.UserName).Msg("📱 Telegram notifier connected")
	return &Notifier{api: api, chatID: chatID}, nil
}

// TradeClosed implements engine.TradeSink. Delivery failures are logged and
// dropped; notifications must never stall the trading loop.
func (n *Notifier) TradeClosed(t engine.Trade) {
	emoji := "✅"
	if t.Outcome == engine.OutcomeLoss {
		emoji = "❌"
	}

	msg := fmt.Sprintf(
		"%s *Trade Closed* — %s %s\n"+
			"Group: %s\n"+
			"Entry: %s → Exit: %s\n"+
			"Reason: %s\n"+
			"P&L: $%s",
		emoji, t.Asset, t.Side,
		t.GroupID,
		t.EntryPrice.String(), t.ExitPrice.String(),
		t.ExitReason,
		t.PnLUSD.StringFixed(2),
	)
	n.send(msg)
}

// SessionSummary sends the end-of-session statistics.
func (n *Notifier) SessionSummary(s *engine.Stats) {
	msg := fmt.Sprintf(
		"📊 *Session Summary*\n"+
			"Trades: %d (%d W / %d L, %.1f%%)\n"+
			"Target exits: %d | Settlements: %d\n"+
			"Total P&L: $%s\n"+
			"Max drawdown: $%s",
		s.Trades, s.Wins, s.Losses, s.WinRate()*100,
		s.TargetExits, s.Settlements,
		s.TotalPnLUSD.StringFixed(2),
		s.MaxDrawdownUSD.StringFixed(2),
	)
	n.send(msg)
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("Telegram send failed")
	}
}
