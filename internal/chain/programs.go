package chain

import (
	"regexp"
	"strings"
)

// Known program IDs.
const (
	// RaydiumAMMV4 is the Raydium AMM v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// RaydiumCPMM is the Raydium constant-product program ID.
	RaydiumCPMM = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"
	// RaydiumCLMM is the Raydium concentrated-liquidity program ID.
	RaydiumCLMM = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	// PumpFun is the pump.fun bonding-curve program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	// PumpSwap is the pump.fun AMM program that graduated tokens migrate to.
	PumpSwap = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"
	// OrcaWhirlpool is the Orca Whirlpool program ID.
	OrcaWhirlpool = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	// MeteoraDLMM is the Meteora DLMM program ID.
	MeteoraDLMM = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"
	// MeteoraPools is the Meteora dynamic AMM program ID.
	MeteoraPools = "Eo7WjKq67rjJQSZxS6z3YkapzY3eMj6Xy8X5EQVn5UaB"
	// Jupiter is the Jupiter v6 aggregator program ID.
	Jupiter = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"

	// TokenProgram is the SPL Token program ID.
	TokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	// Token2022Program is the SPL Token-2022 program ID.
	Token2022Program = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	// SystemProgram is the system program ID.
	SystemProgram = "11111111111111111111111111111111"
	// WSOL is the wrapped SOL mint.
	WSOL = "So11111111111111111111111111111111111111112"
)

// AMMPrograms lists the programs whose accounts hold pool or curve liquidity.
var AMMPrograms = []string{
	RaydiumAMMV4,
	RaydiumCPMM,
	RaydiumCLMM,
	PumpFun,
	PumpSwap,
	OrcaWhirlpool,
	MeteoraDLMM,
	MeteoraPools,
}

var swapPrograms = map[string]bool{
	RaydiumAMMV4:  true,
	RaydiumCPMM:   true,
	RaydiumCLMM:   true,
	PumpFun:       true,
	PumpSwap:      true,
	OrcaWhirlpool: true,
	MeteoraDLMM:   true,
	MeteoraPools:  true,
	Jupiter:       true,
}

var (
	invokePattern    = regexp.MustCompile(`^Program ([1-9A-HJ-NP-Za-km-z]{32,44}) invoke`)
	swapLogPattern   = regexp.MustCompile(`Program log: Instruction: (Buy|Sell|Swap\w*|Route\w*)`)
	createLogPattern = regexp.MustCompile(`Program log: (Instruction: (InitializeMint2?|Create)|Create)$`)
)

// InvokedPrograms returns the distinct program IDs invoked in logs, in order of first use.
func InvokedPrograms(logs []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, log := range logs {
		m := invokePattern.FindStringSubmatch(log)
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}

// IsSwap reports whether logs show a swap through a known AMM, curve or aggregator.
func IsSwap(logs []string) bool {
	touchesDEX := false
	for _, id := range InvokedPrograms(logs) {
		if swapPrograms[id] {
			touchesDEX = true
			break
		}
	}
	if !touchesDEX {
		return false
	}
	for _, log := range logs {
		if swapLogPattern.MatchString(log) {
			return true
		}
	}
	// Raydium v4 does not log instruction names.
	for _, log := range logs {
		if strings.HasPrefix(log, "Program "+RaydiumAMMV4+" invoke") {
			return true
		}
	}
	return false
}

// IsMintCreation reports whether logs contain a mint initialization or curve create.
func IsMintCreation(logs []string) bool {
	for _, log := range logs {
		if createLogPattern.MatchString(log) {
			return true
		}
	}
	return false
}

// IsAMMProgram reports whether id is a known pool or curve program.
func IsAMMProgram(id string) bool {
	for _, p := range AMMPrograms {
		if p == id {
			return true
		}
	}
	return false
}
