package store

import (
	"sync"
	"time"

	"github.com/efreitasn/tradefeed/internal/domain"
)

// Ledger is a thread-safe in-memory store of portfolios, keyed by user.
// It is populated once at startup; the ledger lock only guards the
// user → portfolio map, while each portfolio serializes its own trades.
type Ledger struct {
	mu         sync.RWMutex
	portfolios map[string]*domain.Portfolio
	now        func() time.Time
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		portfolios: make(map[string]*domain.Portfolio),
		now:        time.Now,
	}
}

// NewSeededLedger creates a Ledger holding the demo portfolios.
func NewSeededLedger() *Ledger {
	l := NewLedger()
	for _, p := range SeedPortfolios() {
		l.Put(p)
	}
	return l
}

// Put stores p under its user, replacing any previous portfolio.
func (l *Ledger) Put(p *domain.Portfolio) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.portfolios[p.User] = p
}

// Lookup retrieves a portfolio by user. It returns
// domain.ErrUnknownUser if the user has no portfolio.
func (l *Ledger) Lookup(user string) (*domain.Portfolio, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.portfolios[user]
	if !ok {
		return nil, domain.ErrUnknownUser
	}
	return p, nil
}

// Buy adds quantity shares of ticker to user's portfolio.
func (l *Ledger) Buy(user, ticker string, quantity int64) (domain.Position, error) {
	p, err := l.Lookup(user)
	if err != nil {
		return domain.Position{}, err
	}
	return p.Buy(ticker, quantity, l.now())
}

// Sell removes quantity shares of ticker from user's portfolio.
func (l *Ledger) Sell(user, ticker string, quantity int64) (domain.Position, error) {
	p, err := l.Lookup(user)
	if err != nil {
		return domain.Position{}, err
	}
	return p.Sell(ticker, quantity, l.now())
}

// Users returns the number of portfolios held.
func (l *Ledger) Users() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.portfolios)
}
