package solana

import (
	"github.com/shopspring/decimal"
)

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// Block represents a Solana block.
type Block struct {
	Slot         int64
	BlockTime    *int64
	Transactions []Transaction
}

// TokenAmount is an SPL token amount as returned by the token RPC methods.
type TokenAmount struct {
	Amount   string `json:"amount"`
	Decimals int    `json:"decimals"`
}

// UIAmount converts the raw integer amount to a float with decimals applied.
// Unparseable amounts yield 0.
func (a TokenAmount) UIAmount() float64 {
	raw, err := decimal.NewFromString(a.Amount)
	if err != nil {
		return 0
	}
	f, _ := raw.Shift(int32(-a.Decimals)).Float64()
	return f
}

// TokenAmountAccount is one entry of getTokenLargestAccounts.
type TokenAmountAccount struct {
	Address string
	TokenAmount
}

// OwnedTokenAccount is one entry of getTokenAccountsByOwner.
type OwnedTokenAccount struct {
	Address string
	Mint    string
	Owner   string
	TokenAmount
}

// ParsedAccount is the jsonParsed view of an account.
type ParsedAccount struct {
	Lamports uint64
	Owner    string // program owning the account
	Program  string // parser name, e.g. "spl-token"
	Type     string // e.g. "mint", "account"
	Info     ParsedInfo
}

// ParsedInfo holds the fields of spl-token mint and account types.
type ParsedInfo struct {
	// token account fields
	Mint        string       `json:"mint"`
	Owner       string       `json:"owner"`
	TokenAmount *TokenAmount `json:"tokenAmount"`

	// mint fields
	Supply          string  `json:"supply"`
	Decimals        int     `json:"decimals"`
	MintAuthority   *string `json:"mintAuthority"`
	FreezeAuthority *string `json:"freezeAuthority"`
	IsInitialized   bool    `json:"isInitialized"`
}

// TokenBalanceUI converts a transaction token balance to a float amount.
func TokenBalanceUI(b TokenBalance) float64 {
	return TokenAmount{Amount: b.Amount, Decimals: b.Decimals}.UIAmount()
}
