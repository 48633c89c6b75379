// Package chain exposes the on-chain reads the risk extractors depend on.
package chain

import (
	"context"
	"errors"

	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/solana"
)

var (
	// ErrAccountNotFound is returned when an account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNotAMint is returned when an account exists but is not a token mint.
	ErrNotAMint = errors.New("account is not a token mint")

	// ErrInvalidAddress is returned for malformed base58 addresses.
	ErrInvalidAddress = errors.New("invalid address")
)

// Provider is the chain data surface used by the risk extractors.
type Provider interface {
	// GetMintInfo returns supply, decimals and authorities of mint.
	// Returns ErrAccountNotFound if the mint does not exist.
	GetMintInfo(ctx context.Context, mint string) (*MintInfo, error)

	// GetTokenSupply returns the UI supply of mint.
	GetTokenSupply(ctx context.Context, mint string) (float64, error)

	// GetLargestHolders returns the largest token accounts of mint with resolved owners.
	GetLargestHolders(ctx context.Context, mint string) ([]RawHolder, error)

	// GetHolderCount returns the number of non-empty token accounts of mint.
	GetHolderCount(ctx context.Context, mint, tokenProgram string) (int, error)

	// GetRecentTransactions returns up to limit signatures touching address, newest first.
	GetRecentTransactions(ctx context.Context, address string, limit int) ([]TxRef, error)

	// GetOldestTransaction returns the earliest signature reachable for address, or nil.
	GetOldestTransaction(ctx context.Context, address string) (*TxRef, error)

	// GetTransactionDetail returns a decoded transaction. Returns nil if not found.
	GetTransactionDetail(ctx context.Context, signature string) (*TxDetail, error)

	// GetBlockTime returns the production time of slot, nil if the slot has no block.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)

	// GetBlock returns the block at slot, nil if the slot has no block.
	GetBlock(ctx context.Context, slot int64) (*solana.Block, error)

	// GetCurrentSlot returns the latest confirmed slot.
	GetCurrentSlot(ctx context.Context) (int64, error)

	// GetAccountOwner returns the program owning address.
	GetAccountOwner(ctx context.Context, address string) (string, error)

	// GetFirstFunder returns the wallet that sent wallet its first SOL, "" if unknown.
	GetFirstFunder(ctx context.Context, wallet string) (string, error)

	// GetWalletAge returns the age of wallet's first activity.
	GetWalletAge(ctx context.Context, wallet string) (domain.WalletAge, error)

	// GetTokenBalance returns owner's UI balance of mint across its token accounts.
	GetTokenBalance(ctx context.Context, owner, mint string) (float64, error)

	// GetBondingCurve returns the pump.fun curve of mint, nil if none exists.
	GetBondingCurve(ctx context.Context, mint string) (*BondingCurveState, error)
}

// MintInfo describes a token mint.
type MintInfo struct {
	Address         string
	Supply          float64
	Decimals        int
	MintAuthority   *string
	FreezeAuthority *string
	Program         string
}

// RawHolder is one of the largest token accounts of a mint.
type RawHolder struct {
	TokenAccount string
	Owner        string // "" if unresolved
	Amount       float64
}

// TxRef is a signature with its slot and status.
type TxRef struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Failed    bool
}

// BalanceChange is the token balance movement of one owner in one transaction.
type BalanceChange struct {
	Owner string
	Mint  string
	Pre   float64
	Post  float64
}

// Delta returns Post - Pre.
func (c BalanceChange) Delta() float64 {
	return c.Post - c.Pre
}

// TxDetail is a decoded transaction.
type TxDetail struct {
	Signature string
	Slot      int64
	BlockTime int64
	FeePayer  string
	Failed    bool
	IsSwap    bool

	// CreatesMint is set when the logs contain a mint initialization.
	CreatesMint bool
	// NewMints lists mints with no balance before the transaction and some after.
	NewMints []string

	AccountKeys []string
	Changes     []BalanceChange
	SOLChanges  map[string]int64 // lamport delta per account
}

// ChangesFor returns the balance changes for mint.
func (d *TxDetail) ChangesFor(mint string) []BalanceChange {
	var out []BalanceChange
	for _, c := range d.Changes {
		if c.Mint == mint {
			out = append(out, c)
		}
	}
	return out
}

// Mentions reports whether address is one of the transaction's account keys.
func (d *TxDetail) Mentions(address string) bool {
	for _, k := range d.AccountKeys {
		if k == address {
			return true
		}
	}
	return false
}
