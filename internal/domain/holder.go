package domain

// HolderRole labels a token-holding address.
type HolderRole string

const (
	RoleLiquidityPool HolderRole = "LIQUIDITY_POOL"
	RoleCreator       HolderRole = "CREATOR"
	RoleWhale         HolderRole = "WHALE"
	RoleInsider       HolderRole = "INSIDER"
	RoleNormal        HolderRole = "NORMAL"
)

// HolderRecord is one entry of the largest-holder snapshot.
// PercentOfSupply is computed against total supply, not the sampled sum.
type HolderRecord struct {
	Address         string // owning wallet
	TokenAccount    string
	Balance         float64 // UI amount (decimals applied)
	PercentOfSupply float64
	IsLiquidityPool bool
	Role            HolderRole
}

// NonPoolHolders returns holders that are not liquidity pools, preserving order.
func NonPoolHolders(holders []HolderRecord) []HolderRecord {
	out := make([]HolderRecord, 0, len(holders))
	for _, h := range holders {
		if !h.IsLiquidityPool {
			out = append(out, h)
		}
	}
	return out
}

// LargestNonPoolPercent returns the highest PercentOfSupply among non-LP holders.
func LargestNonPoolPercent(holders []HolderRecord) (float64, string) {
	var maxPct float64
	var addr string
	for _, h := range holders {
		if h.IsLiquidityPool {
			continue
		}
		if h.PercentOfSupply > maxPct {
			maxPct = h.PercentOfSupply
			addr = h.Address
		}
	}
	return maxPct, addr
}
