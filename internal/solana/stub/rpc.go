package stub

import (
	"context"
	"errors"
	"sync"

	"solana-token-risk/internal/solana"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
// Blocks absent from the store behave like skipped slots.
type RPCClient struct {
	mu sync.Mutex

	Transactions  map[string]*solana.Transaction
	Blocks        map[int64]*solana.Block
	Signatures    map[string][]solana.SignatureInfo
	Accounts      map[string]*solana.AccountInfo
	Parsed        map[string]*solana.ParsedAccount
	Largest       map[string][]solana.TokenAmountAccount
	Supplies      map[string]*solana.TokenAmount
	OwnedAccounts map[string][]solana.OwnedTokenAccount // key: owner + "/" + mint
	HolderCounts  map[string]int
	Slot          int64

	// Errors forces a method to fail, keyed by RPC method name.
	Errors map[string]error

	// Calls counts invocations per RPC method name.
	Calls map[string]int
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions:  make(map[string]*solana.Transaction),
		Blocks:        make(map[int64]*solana.Block),
		Signatures:    make(map[string][]solana.SignatureInfo),
		Accounts:      make(map[string]*solana.AccountInfo),
		Parsed:        make(map[string]*solana.ParsedAccount),
		Largest:       make(map[string][]solana.TokenAmountAccount),
		Supplies:      make(map[string]*solana.TokenAmount),
		OwnedAccounts: make(map[string][]solana.OwnedTokenAccount),
		HolderCounts:  make(map[string]int),
		Errors:        make(map[string]error),
		Calls:         make(map[string]int),
	}
}

func (c *RPCClient) enter(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls[method]++
	return c.Errors[method]
}

// CallCount returns how many times method was invoked.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[method]
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err := c.enter("getTransaction"); err != nil {
		return nil, err
	}
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetBlock retrieves a block by slot from the stub store.
func (c *RPCClient) GetBlock(_ context.Context, slot int64) (*solana.Block, error) {
	if err := c.enter("getBlock"); err != nil {
		return nil, err
	}
	return c.Blocks[slot], nil
}

// GetSignaturesForAddress returns stored signatures, newest first, honouring Before and Limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := c.enter("getSignaturesForAddress"); err != nil {
		return nil, err
	}
	sigs, ok := c.Signatures[address]
	if !ok {
		return nil, nil
	}

	if opts != nil && opts.Before != "" {
		idx := -1
		for i, s := range sigs {
			if s.Signature == opts.Before {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil
		}
		sigs = sigs[idx+1:]
	}

	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}

	return sigs, nil
}

// GetAccountInfo returns the stored raw account, or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.enter("getAccountInfo"); err != nil {
		return nil, err
	}
	return c.Accounts[pubkey], nil
}

// GetParsedAccount returns the stored parsed account, or nil.
func (c *RPCClient) GetParsedAccount(_ context.Context, pubkey string) (*solana.ParsedAccount, error) {
	if err := c.enter("getParsedAccount"); err != nil {
		return nil, err
	}
	return c.Parsed[pubkey], nil
}

// GetTokenLargestAccounts returns the stored largest accounts for mint.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenAmountAccount, error) {
	if err := c.enter("getTokenLargestAccounts"); err != nil {
		return nil, err
	}
	return c.Largest[mint], nil
}

// GetTokenSupply returns the stored supply for mint.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	if err := c.enter("getTokenSupply"); err != nil {
		return nil, err
	}
	s, ok := c.Supplies[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// GetTokenAccountsByOwner returns stored accounts of owner for mint.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, mint string) ([]solana.OwnedTokenAccount, error) {
	if err := c.enter("getTokenAccountsByOwner"); err != nil {
		return nil, err
	}
	return c.OwnedAccounts[owner+"/"+mint], nil
}

// CountTokenHolders returns the configured holder count of mint.
func (c *RPCClient) CountTokenHolders(_ context.Context, mint, _ string) (int, error) {
	if err := c.enter("getProgramAccounts"); err != nil {
		return 0, err
	}
	return c.HolderCounts[mint], nil
}

// GetSlot returns the configured current slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	if err := c.enter("getSlot"); err != nil {
		return 0, err
	}
	return c.Slot, nil
}

// GetBlockTime returns the block time of a stored block, or nil for a skipped slot.
func (c *RPCClient) GetBlockTime(_ context.Context, slot int64) (*int64, error) {
	if err := c.enter("getBlockTime"); err != nil {
		return nil, err
	}
	b, ok := c.Blocks[slot]
	if !ok {
		return nil, nil
	}
	return b.BlockTime, nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.Transactions[tx.Signature] = tx
}

// AddBlock adds a block to the stub store.
func (c *RPCClient) AddBlock(block *solana.Block) {
	c.Blocks[block.Slot] = block
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.Signatures[address] = sigs
}

// AddOwnedAccount registers a token account of owner for its mint.
func (c *RPCClient) AddOwnedAccount(acc solana.OwnedTokenAccount) {
	key := acc.Owner + "/" + acc.Mint
	c.OwnedAccounts[key] = append(c.OwnedAccounts[key], acc)
}
