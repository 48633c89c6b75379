// Package market fetches off-chain market data for tokens.
package market

import (
	"context"
	"time"
)

// Provider returns aggregated market data.
type Provider interface {
	// GetTokenMarket returns pool and trading data for mint.
	// A token with no pools returns a zero TokenMarket and no error.
	GetTokenMarket(ctx context.Context, mint string) (*TokenMarket, error)

	// GetQuotePriceUSD returns the USD price of SOL.
	GetQuotePriceUSD(ctx context.Context) (float64, error)
}

// TokenMarket aggregates all pools trading a token.
type TokenMarket struct {
	Name           string
	Symbol         string
	PriceUSD       float64
	LiquidityUSD   float64
	MarketCapUSD   float64
	Volume24h      float64
	Buys24h        int
	Sells24h       int
	PriceChange24h float64
	PairCreatedAt  *time.Time
	PoolAddresses  []string
	DexIDs         []string
	HasWebsite     bool
	HasTwitter     bool
}

// HasPools reports whether any pool trades the token.
func (m *TokenMarket) HasPools() bool {
	return m != nil && len(m.PoolAddresses) > 0
}

// AgeHours returns hours since the oldest pool was created, 0 if unknown.
func (m *TokenMarket) AgeHours(now time.Time) float64 {
	if m == nil || m.PairCreatedAt == nil {
		return 0
	}
	h := now.Sub(*m.PairCreatedAt).Hours()
	if h < 0 {
		return 0
	}
	return h
}
