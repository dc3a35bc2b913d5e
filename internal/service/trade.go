package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/efreitasn/tradefeed/internal/domain"
	"github.com/efreitasn/tradefeed/internal/engine"
)

// SubmitTradeRequest represents the input for trade submission.
type SubmitTradeRequest struct {
	User   string
	Ticker string
	Shares int64
	Action domain.TradeAction
}

// TradeService is the fire-and-forget entry point into the trade engine.
type TradeService struct {
	engine *engine.TradeEngine
	logger *slog.Logger
}

// NewTradeService creates a new TradeService.
func NewTradeService(trades *engine.TradeEngine, logger *slog.Logger) *TradeService {
	return &TradeService{
		engine: trades,
		logger: logger,
	}
}

// Submit assigns the trade an ID and hands it to the engine. Only a
// missing user is reported back; every other failure is delivered to the
// user's errors channel by the engine.
func (s *TradeService) Submit(ctx context.Context, req SubmitTradeRequest) (domain.Trade, error) {
	if req.User == "" {
		return domain.Trade{}, &domain.ValidationError{Message: "user is required"}
	}

	trade := domain.Trade{
		TradeID: uuid.New().String(),
		Ticker:  req.Ticker,
		Shares:  req.Shares,
		Action:  req.Action,
		User:    req.User,
	}
	s.logger.Debug("trade submitted", "trade_id", trade.TradeID, "trade", trade.String())

	// The outcome is reported asynchronously to the user.
	_, _ = s.engine.Execute(ctx, trade)
	return trade, nil
}
