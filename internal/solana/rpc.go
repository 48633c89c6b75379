package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface used by the risk engine.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature. Returns nil if not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetBlock retrieves a block by slot number.
	GetBlock(ctx context.Context, slot int64) (*Block, error)

	// GetSignaturesForAddress retrieves signatures for an address, newest first.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetAccountInfo retrieves raw account info. Returns nil if not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetParsedAccount retrieves jsonParsed account data. Returns nil if not found.
	GetParsedAccount(ctx context.Context, pubkey string) (*ParsedAccount, error)

	// GetTokenLargestAccounts returns the largest token accounts of a mint.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAmountAccount, error)

	// GetTokenSupply returns the total supply of a mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenAmount, error)

	// GetTokenAccountsByOwner returns parsed token accounts of owner for mint.
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]OwnedTokenAccount, error)

	// CountTokenHolders counts non-empty token accounts of mint under tokenProgram.
	CountTokenHolders(ctx context.Context, mint, tokenProgram string) (int, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlockTime retrieves the production time of a slot. Returns nil for skipped slots.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// FeePayer returns the first account key, which signs and pays for the transaction.
func (t *Transaction) FeePayer() string {
	if t == nil || t.Message == nil || len(t.Message.AccountKeys) == 0 {
		return ""
	}
	return t.Message.AccountKeys[0]
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// TokenBalance is one entry of pre/post token balances.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string // raw integer amount
	Decimals     int
}
