package creator

import (
	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/domain"
)

// devActivity derives the creator's selling in mint from decoded history.
// Sold percent is measured against the initial allocation when known, else
// against everything the creator has held (sold plus current balance).
// An unknown balance (haveBal false) never reads as an exit.
func devActivity(details []*chain.TxDetail, mint, creator string, initial, current, supply float64, haveBal bool) *domain.DevActivity {
	act := &domain.DevActivity{HoldingsKnown: haveBal}
	if haveBal {
		act.CurrentHoldingsPercent = percentOf(current, supply)
	}

	var sold float64
	for _, d := range details {
		if d.Failed || !d.IsSwap {
			continue
		}
		var delta float64
		for _, c := range d.ChangesFor(mint) {
			if c.Owner == creator {
				delta += c.Delta()
			}
		}
		if delta < 0 {
			act.SellCount++
			sold += -delta
		}
	}

	act.HasSold = act.SellCount > 0
	if !act.HasSold {
		return act
	}

	base := initial
	if base < sold+current {
		base = sold + current
	}
	if base > 0 {
		act.PercentSold = min(100, sold/base*100)
	}
	return act
}
