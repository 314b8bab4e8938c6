package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"ChainPulse/internal/domain/models"
	domrepo "ChainPulse/internal/domain/repository"
	pkgkafka "ChainPulse/pkg/kafka"
	"ChainPulse/pkg/logger"
)

// TradeCommandHandler turns trade requests consumed from Kafka into
// PENDING trades and executes them.
type TradeCommandHandler struct {
	topic    string
	quote    string
	executor Executor
	validate *validator.Validate
	metrics  domrepo.Metrics
	log      *logger.Logger
}

func NewTradeCommandHandler(topic, quote string, executor Executor, metrics domrepo.Metrics, l *logger.Logger) *TradeCommandHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &TradeCommandHandler{
		topic:    topic,
		quote:    quote,
		executor: executor,
		validate: validator.New(),
		metrics:  metrics,
		log:      l,
	}
}

func (h *TradeCommandHandler) Topic() string { return h.topic }

// Handle returns an error only for malformed commands, which the consumer
// retries and then dead-letters. A trade that is rejected or fails is a
// settled outcome and is not retried.
func (h *TradeCommandHandler) Handle(ctx context.Context, b []byte) error {
	var req models.TradeRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("command_unmarshal")
		return fmt.Errorf("decode trade command: %w", err)
	}
	if err := defaults.Set(&req); err != nil {
		return fmt.Errorf("trade command defaults: %w", err)
	}
	if err := h.validate.StructCtx(ctx, &req); err != nil {
		h.metrics.RecordError("command_invalid")
		return fmt.Errorf("invalid trade command: %w", err)
	}

	trade := req.ToTrade(h.quote)
	ok := h.executor.ExecuteTrade(ctx, trade)
	h.log.Info("trade command processed",
		logger.String("trade_id", trade.ID),
		logger.String("token", trade.Token),
		logger.String("status", string(trade.Status)),
		logger.Bool("executed", ok),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*TradeCommandHandler)(nil)
