package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/service"
)

// Publisher is the subset of pkg/kafka.Producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaNotifier publishes notifications to a topic. Messages are keyed by
// kind ("market" or the trade ID) so updates of one trade stay ordered.
type KafkaNotifier struct {
	producer Publisher
	topic    string
	now      func() time.Time
}

// NewKafkaNotifier creates a Kafka-backed notifier.
func NewKafkaNotifier(producer Publisher, topic string) service.Notifier {
	return &KafkaNotifier{producer: producer, topic: topic, now: time.Now}
}

// Notification is the message published for every Post and trade update.
type Notification struct {
	Kind      string        `json:"kind"`
	Content   string        `json:"content"`
	Trade     *models.Trade `json:"trade,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func (n *KafkaNotifier) Post(ctx context.Context, content string) error {
	return n.producer.Publish(ctx, n.topic, []byte("market"), Notification{
		Kind:      "message",
		Content:   content,
		Timestamp: n.now().UTC(),
	})
}

func (n *KafkaNotifier) PostTradeUpdate(ctx context.Context, trade *models.Trade) error {
	return n.producer.Publish(ctx, n.topic, []byte(trade.ID), Notification{
		Kind:      "trade",
		Content:   FormatTradeUpdate(trade),
		Trade:     trade,
		Timestamp: n.now().UTC(),
	})
}

// FormatTradeUpdate renders a one-line human summary of a trade.
func FormatTradeUpdate(t *models.Trade) string {
	amount := decimal.NewFromFloat(t.Amount).StringFixed(2)
	s := fmt.Sprintf("%s %s %s (%s) %s", t.Status, t.Type, amount, t.Token, t.Pair)
	if t.Price != nil {
		s += " @ " + decimal.NewFromFloat(*t.Price).String()
	}
	switch t.Status {
	case models.TradeCompleted:
		s += fmt.Sprintf(" on %s tx %s", t.Venue, t.TxHash)
	case models.TradeFailed:
		s += ": " + t.FailureReason
	}
	return s
}

// MultiNotifier fans a notification out to several notifiers. Every
// notifier is attempted; failures are joined.
type MultiNotifier []service.Notifier

func (m MultiNotifier) Post(ctx context.Context, content string) error {
	var errs []error
	for _, n := range m {
		if err := n.Post(ctx, content); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) PostTradeUpdate(ctx context.Context, trade *models.Trade) error {
	var errs []error
	for _, n := range m {
		if err := n.PostTradeUpdate(ctx, trade); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
