package domain

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Position is one held instrument within a portfolio. Positions are
// values: a trade never mutates a Position, it replaces it.
type Position struct {
	Company   string
	Ticker    string
	Price     decimal.Decimal
	Shares    int64
	UpdatedAt time.Time // zero for seeded positions
}

// withShares returns a copy of p carrying delta more shares, stamped at now.
func (p Position) withShares(delta int64, now time.Time) Position {
	p.Shares += delta
	p.UpdatedAt = now
	return p
}

// Portfolio holds one user's positions keyed by ticker. The per-portfolio
// lock serializes buy/sell so concurrent trades on the same portfolio never
// lose updates; different portfolios never contend.
type Portfolio struct {
	User string

	mu         sync.RWMutex
	positions  map[string]Position // ticker → position
	order      []string            // tickers in seeding order
	lastUpdate time.Time
}

// NewPortfolio creates a portfolio for user holding the given positions.
// Duplicate tickers keep the first occurrence.
func NewPortfolio(user string, positions ...Position) *Portfolio {
	p := &Portfolio{
		User:      user,
		positions: make(map[string]Position, len(positions)),
		order:     make([]string, 0, len(positions)),
	}
	for _, pos := range positions {
		if _, exists := p.positions[pos.Ticker]; exists {
			continue
		}
		p.positions[pos.Ticker] = pos
		p.order = append(p.order, pos.Ticker)
	}
	return p
}

// Positions returns a snapshot of the portfolio in seeding order.
func (p *Portfolio) Positions() []Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]Position, 0, len(p.order))
	for _, ticker := range p.order {
		result = append(result, p.positions[ticker])
	}
	return result
}

// Position returns the current position for ticker, if held.
func (p *Portfolio) Position(ticker string) (Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pos, ok := p.positions[ticker]
	return pos, ok
}

// Buy adds quantity shares to an already-held ticker and returns the
// replacement position. A buy that would overflow the share count is
// rejected with ErrQuantityTooLarge.
func (p *Portfolio) Buy(ticker string, quantity int64, now time.Time) (Position, error) {
	if quantity <= 0 {
		return Position{}, ErrNonPositiveQuantity
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.positions[ticker]
	if !ok {
		return Position{}, ErrUnknownPosition
	}
	if quantity > math.MaxInt64-current.Shares {
		return Position{}, fmt.Errorf("%w: holding %d, buying %d", ErrQuantityTooLarge, current.Shares, quantity)
	}
	return p.replace(current, quantity, now), nil
}

// Sell removes quantity shares from a held ticker. Selling down to zero
// shares is allowed and leaves the zero-share position in place.
func (p *Portfolio) Sell(ticker string, quantity int64, now time.Time) (Position, error) {
	if quantity <= 0 {
		return Position{}, ErrNonPositiveQuantity
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.positions[ticker]
	if !ok {
		return Position{}, ErrUnknownPosition
	}
	if quantity > current.Shares {
		return Position{}, fmt.Errorf("%w: holding %d, selling %d", ErrInsufficientShares, current.Shares, quantity)
	}
	return p.replace(current, -quantity, now), nil
}

// replace swaps in the new position. Caller must hold p.mu.
//
// Update timestamps are strictly increasing within a portfolio so that
// notifications ordered by time preserve the order trades were applied.
func (p *Portfolio) replace(current Position, delta int64, now time.Time) Position {
	if !now.After(p.lastUpdate) {
		now = p.lastUpdate.Add(time.Nanosecond)
	}
	p.lastUpdate = now

	next := current.withShares(delta, now)
	p.positions[next.Ticker] = next
	return next
}
