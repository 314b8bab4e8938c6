package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

type TradeStatus string

const (
	TradePending   TradeStatus = "PENDING"
	TradeCompleted TradeStatus = "COMPLETED"
	TradeFailed    TradeStatus = "FAILED"
)

// ErrInvalidTransition is returned when a trade leaves a terminal status.
var ErrInvalidTransition = errors.New("invalid trade status transition")

// Trade is a single intended swap. Status moves once, from PENDING to
// COMPLETED or FAILED, and never back.
type Trade struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Type          TradeType   `json:"type"`
	Token         string      `json:"token"`
	Amount        float64     `json:"amount"`
	Price         *float64    `json:"price,omitempty"`
	Slippage      *float64    `json:"slippage,omitempty"`
	Deadline      *time.Time  `json:"deadline,omitempty"`
	Pair          string      `json:"pair"`
	Status        TradeStatus `json:"status"`
	Venue         string      `json:"venue,omitempty"`
	TxHash        string      `json:"tx_hash,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
	SettledAt     *time.Time  `json:"settled_at,omitempty"`
}

// NewTrade creates a PENDING trade with a fresh ID.
func NewTrade(typ TradeType, token string, amount float64, pair string) *Trade {
	return &Trade{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      typ,
		Token:     token,
		Amount:    amount,
		Pair:      pair,
		Status:    TradePending,
	}
}

func (t *Trade) IsPending() bool { return t.Status == TradePending }

// Complete marks a pending trade as executed on venue.
func (t *Trade) Complete(venue, txHash string) error {
	if t.Status != TradePending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, TradeCompleted)
	}
	now := time.Now().UTC()
	t.Status = TradeCompleted
	t.Venue = venue
	t.TxHash = txHash
	t.SettledAt = &now
	return nil
}

// Fail marks a pending trade as failed with a reason.
func (t *Trade) Fail(reason string) error {
	if t.Status != TradePending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, TradeFailed)
	}
	now := time.Now().UTC()
	t.Status = TradeFailed
	t.FailureReason = reason
	t.SettledAt = &now
	return nil
}

// Notional returns amount times price, or amount when no price is set.
func (t *Trade) Notional() float64 {
	if t.Price != nil && *t.Price > 0 {
		return t.Amount * *t.Price
	}
	return t.Amount
}
