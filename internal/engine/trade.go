package engine

import (
	"context"
	"log/slog"

	"github.com/efreitasn/tradefeed/internal/domain"
	"github.com/efreitasn/tradefeed/internal/message"
	"github.com/efreitasn/tradefeed/internal/store"
)

// Bus is the outbound side of the message transport, declared here so the
// engine does not depend on a concrete backend.
type Bus interface {
	Publish(ctx context.Context, msg message.Message) error
	SendToUser(ctx context.Context, user string, msg message.Message) error
}

// TradeEngine applies trades to the ledger. Accepted trades enqueue a
// pending notification; rejected trades send one rejection to the user.
type TradeEngine struct {
	ledger  *store.Ledger
	pending *store.PendingStore
	bus     Bus
	logger  *slog.Logger
}

// NewTradeEngine creates a new TradeEngine with the given dependencies.
func NewTradeEngine(ledger *store.Ledger, pending *store.PendingStore, bus Bus, logger *slog.Logger) *TradeEngine {
	return &TradeEngine{
		ledger:  ledger,
		pending: pending,
		bus:     bus,
		logger:  logger,
	}
}

// Execute applies trade and returns the replacement position. On
// rejection the returned error is the cause, and it has already been
// reported to trade.User on the errors channel.
func (e *TradeEngine) Execute(ctx context.Context, trade domain.Trade) (domain.Position, error) {
	pos, err := e.apply(trade)
	if err != nil {
		e.reject(ctx, trade, err)
		return domain.Position{}, err
	}

	n := e.pending.Add(trade.User, pos, pos.UpdatedAt)
	e.logger.Debug("trade accepted",
		"trade_id", trade.TradeID,
		"trade", trade.String(),
		"shares", pos.Shares,
		"seq", n.Seq,
	)
	return pos, nil
}

func (e *TradeEngine) apply(trade domain.Trade) (domain.Position, error) {
	switch trade.Action {
	case domain.TradeActionBuy:
		return e.ledger.Buy(trade.User, trade.Ticker, trade.Shares)
	case domain.TradeActionSell:
		return e.ledger.Sell(trade.User, trade.Ticker, trade.Shares)
	default:
		return domain.Position{}, domain.ErrUnknownAction
	}
}

func (e *TradeEngine) reject(ctx context.Context, trade domain.Trade, cause error) {
	e.logger.Debug("trade rejected",
		"trade_id", trade.TradeID,
		"trade", trade.String(),
		"error", cause,
	)
	if err := e.bus.SendToUser(ctx, trade.User, message.NewRejection(trade, cause)); err != nil {
		e.logger.Warn("rejection not delivered",
			"trade_id", trade.TradeID,
			"user", trade.User,
			"error", err,
		)
	}
}
