package store

import "github.com/efreitasn/tradefeed/internal/domain"

// SeedPortfolios returns the demo portfolios loaded at startup.
func SeedPortfolios() []*domain.Portfolio {
	return []*domain.Portfolio{
		domain.NewPortfolio("fabrice",
			position("Citrix Systems, Inc", "CTXS", "24.30", 75),
			position("Dell Inc.", "DELL", "13.44", 50),
			position("Microsoft", "MSFT", "34.15", 33),
			position("Oracle", "ORCL", "31.22", 45),
		),
		domain.NewPortfolio("paulson",
			position("EMC Corporation", "EMC", "24.30", 75),
			position("Google Inc", "GOOG", "905.09", 5),
			position("VMWare, Inc.", "VMW", "65.58", 23),
			position("Red Hat", "RHT", "48.30", 15),
		),
	}
}

// SeedQuotePrices returns the fixed seed price per ticker used by the
// quote generator.
func SeedQuotePrices() map[string]string {
	return map[string]string{
		"CTXS": "24.30",
		"DELL": "13.03",
		"EMC":  "24.13",
		"GOOG": "893.49",
		"MSFT": "34.21",
		"ORCL": "34.22",
		"RHT":  "48.30",
		"VMW":  "66.98",
	}
}

func position(company, ticker, price string, shares int64) domain.Position {
	return domain.Position{
		Company: company,
		Ticker:  ticker,
		Price:   domain.MustPrice(price),
		Shares:  shares,
	}
}
