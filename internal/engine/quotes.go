// Package engine holds the trading core: trade execution, the delayed
// notification sweep, quote generation and the quote broadcaster.
package engine

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradefeed/internal/domain"
)

// Rand is the source of uniform draws in [0, 1).
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// QuoteGenerator produces synthetic quotes around a fixed seed price per
// ticker. Every tick is computed from the seed, never from the previous
// tick, so prices stay within seed × [1, 1+volatility).
type QuoteGenerator struct {
	seeds      map[string]decimal.Decimal
	volatility decimal.Decimal

	mu  sync.Mutex // guards rnd
	rnd Rand
}

// NewQuoteGenerator creates a generator over seeds. A nil rnd uses the
// process-wide random source.
func NewQuoteGenerator(seeds map[string]decimal.Decimal, volatility decimal.Decimal, rnd Rand) *QuoteGenerator {
	copied := make(map[string]decimal.Decimal, len(seeds))
	for ticker, price := range seeds {
		copied[ticker] = price
	}
	if rnd == nil {
		rnd = globalRand{}
	}
	return &QuoteGenerator{
		seeds:      copied,
		volatility: volatility,
		rnd:        rnd,
	}
}

// ParseSeedPrices converts a ticker → price-string table into decimals.
func ParseSeedPrices(raw map[string]string) (map[string]decimal.Decimal, error) {
	seeds := make(map[string]decimal.Decimal, len(raw))
	for ticker, s := range raw {
		price, err := domain.ParsePrice(s)
		if err != nil {
			return nil, fmt.Errorf("seed price for %s: %w", ticker, err)
		}
		seeds[ticker] = price
	}
	return seeds, nil
}

// Tickers returns the known tickers in lexical order.
func (g *QuoteGenerator) Tickers() []string {
	tickers := make([]string, 0, len(g.seeds))
	for ticker := range g.seeds {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// Seed returns the fixed seed price of ticker.
func (g *QuoteGenerator) Seed(ticker string) (decimal.Decimal, bool) {
	price, ok := g.seeds[ticker]
	return price, ok
}

// Generate returns one quote per known ticker. Order is unspecified.
//
// The random offset is seed × volatility × u, kept to two significant
// digits by rounding toward zero, so it never reaches the band's upper edge.
func (g *QuoteGenerator) Generate() []domain.Quote {
	quotes := make([]domain.Quote, 0, len(g.seeds))

	g.mu.Lock()
	defer g.mu.Unlock()

	for ticker, seed := range g.seeds {
		u := decimal.NewFromFloat(g.rnd.Float64())
		change := domain.RoundDownSignificant(u.Mul(seed.Mul(g.volatility)), 2)
		quotes = append(quotes, domain.Quote{
			Ticker: ticker,
			Price:  seed.Add(change),
		})
	}
	return quotes
}
