// Package holders labels the largest holders of a token.
package holders

import (
	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/domain"
)

const (
	whalePercent   = 10.0
	insiderPercent = 5.0
)

// Input is the holder snapshot to classify.
type Input struct {
	Holders     []chain.RawHolder // ranked by balance, descending
	TotalSupply float64
	Creator     string // optional
}

// Classifier assigns a HolderRole to each holder.
type Classifier struct {
	addrs AddressClassifier
}

// NewClassifier creates a Classifier using addrs for liquidity detection.
func NewClassifier(addrs AddressClassifier) *Classifier {
	return &Classifier{addrs: addrs}
}

// Classify returns one record per input holder, in input order.
// Percentages are against TotalSupply; an unknown supply yields 0 for every holder.
func (c *Classifier) Classify(in Input) []domain.HolderRecord {
	records := make([]domain.HolderRecord, 0, len(in.Holders))
	for _, h := range in.Holders {
		rec := domain.HolderRecord{
			Address:      h.Owner,
			TokenAccount: h.TokenAccount,
			Balance:      h.Amount,
		}
		if rec.Address == "" {
			rec.Address = h.TokenAccount
		}
		if in.TotalSupply > 0 {
			rec.PercentOfSupply = h.Amount / in.TotalSupply * 100
		}

		switch {
		case c.addrs.ClassifyAddress(h.Owner, h.TokenAccount):
			rec.IsLiquidityPool = true
			rec.Role = domain.RoleLiquidityPool
		case in.Creator != "" && rec.Address == in.Creator:
			rec.Role = domain.RoleCreator
		case rec.PercentOfSupply > whalePercent:
			rec.Role = domain.RoleWhale
		case rec.PercentOfSupply > insiderPercent:
			rec.Role = domain.RoleInsider
		default:
			rec.Role = domain.RoleNormal
		}

		records = append(records, rec)
	}
	return records
}

// Find returns the record for address, or nil.
func Find(records []domain.HolderRecord, address string) *domain.HolderRecord {
	for i := range records {
		if records[i].Address == address {
			return &records[i]
		}
	}
	return nil
}
