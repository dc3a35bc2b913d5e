package service

import (
	"github.com/efreitasn/tradefeed/internal/domain"
	"github.com/efreitasn/tradefeed/internal/store"
)

// PortfolioService answers position queries against the ledger.
type PortfolioService struct {
	ledger *store.Ledger
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(ledger *store.Ledger) *PortfolioService {
	return &PortfolioService{ledger: ledger}
}

// Positions returns user's positions in seeding order. It returns
// domain.ErrUnknownUser when the user has no portfolio.
func (s *PortfolioService) Positions(user string) ([]domain.Position, error) {
	if user == "" {
		return nil, &domain.ValidationError{Message: "user is required"}
	}
	p, err := s.ledger.Lookup(user)
	if err != nil {
		return nil, err
	}
	return p.Positions(), nil
}
