package holders

import (
	"strings"

	"solana-token-risk/internal/chain"
)

// AddressClassifier decides whether a holder is pool or curve liquidity.
type AddressClassifier interface {
	ClassifyAddress(owner, tokenAccount string) bool
}

// DefaultLPPrefixes are address prefixes of well-known pool authorities.
var DefaultLPPrefixes = []string{
	"5Q544fKr", // Raydium AMM v4 authority
	"GpMZbSM2", // Raydium CPMM authority
	"WLHv2UAZ", // Raydium LaunchLab authority
}

// ProgramTable matches program IDs, an explicit pool set and address prefixes.
type ProgramTable struct {
	pools    map[string]bool
	prefixes []string
}

var _ AddressClassifier = (*ProgramTable)(nil)

// NewProgramTable builds a table from the known AMM programs, DefaultLPPrefixes
// and pools (pair addresses, bonding-curve PDAs).
func NewProgramTable(pools ...string) *ProgramTable {
	t := &ProgramTable{
		pools:    make(map[string]bool),
		prefixes: append([]string(nil), DefaultLPPrefixes...),
	}
	t.AddPools(pools...)
	return t
}

// AddPools adds explicit pool addresses. Empty strings are ignored.
func (t *ProgramTable) AddPools(pools ...string) {
	for _, p := range pools {
		if p != "" {
			t.pools[p] = true
		}
	}
}

// AddPrefixes adds LP address prefixes.
func (t *ProgramTable) AddPrefixes(prefixes ...string) {
	t.prefixes = append(t.prefixes, prefixes...)
}

// ClassifyAddress reports whether owner or tokenAccount is liquidity.
func (t *ProgramTable) ClassifyAddress(owner, tokenAccount string) bool {
	for _, addr := range []string{owner, tokenAccount} {
		if addr == "" {
			continue
		}
		if chain.IsAMMProgram(addr) || t.pools[addr] {
			return true
		}
		for _, p := range t.prefixes {
			if strings.HasPrefix(addr, p) {
				return true
			}
		}
	}
	return false
}
