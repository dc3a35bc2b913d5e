package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TradeAction indicates whether a trade adds or removes shares.
type TradeAction string

const (
	TradeActionBuy  TradeAction = "Buy"
	TradeActionSell TradeAction = "Sell"
)

// Valid reports whether a is a known action.
func (a TradeAction) Valid() bool {
	return a == TradeActionBuy || a == TradeActionSell
}

// Trade is a request from User to buy or sell Shares of Ticker. It is
// transient: trades fill immediately against the ledger and are not stored.
type Trade struct {
	TradeID string
	Ticker  string
	Shares  int64
	Action  TradeAction
	User    string
}

func (t Trade) String() string {
	return fmt.Sprintf("Trade{ticker=%s, shares=%d, action=%s, user=%s}", t.Ticker, t.Shares, t.Action, t.User)
}

// Quote is one synthetic price tick for a ticker.
type Quote struct {
	Ticker string
	Price  decimal.Decimal
}
