package domain

// TxnCounts are 24h buy/sell transaction counts.
type TxnCounts struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// TokenSnapshot holds the basic token metrics consumed by the scorer.
type TokenSnapshot struct {
	Address               string    `json:"address"`
	Name                  string    `json:"name,omitempty"`
	Symbol                string    `json:"symbol,omitempty"`
	AgeHours              float64   `json:"age_hours"`
	LiquidityUSD          float64   `json:"liquidity_usd"`
	MarketCapUSD          float64   `json:"market_cap_usd"`
	Volume24h             float64   `json:"volume_24h"`
	PriceChange24h        float64   `json:"price_change_24h"` // percent
	Txns24h               TxnCounts `json:"txns_24h"`
	HolderCount           int       `json:"holder_count"`
	MintAuthorityActive   bool      `json:"mint_authority_active"`
	FreezeAuthorityActive bool      `json:"freeze_authority_active"`
	LPLockedPercent       float64   `json:"lp_locked_percent"`
	HasWebsite            bool      `json:"has_website"`
	HasTwitter            bool      `json:"has_twitter"`
	OnBondingCurve        bool      `json:"on_bonding_curve"`
	BondingCurveProgress  float64   `json:"bonding_curve_progress"` // percent of curve completed
}

// Established reports whether the token is mature enough that same-slot activity
// and round-number holdings are normal market behavior.
func (t TokenSnapshot) Established() bool {
	return t.AgeHours > 7*24 || t.LiquidityUSD > 100_000 || t.MarketCapUSD > 1_000_000
}

// BuySellRatio returns buys/sells, or 0 when there are no sells.
func (t TokenSnapshot) BuySellRatio() float64 {
	if t.Txns24h.Sells == 0 {
		return 0
	}
	return float64(t.Txns24h.Buys) / float64(t.Txns24h.Sells)
}
