package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/observability"
	"solana-token-risk/internal/solana"
)

const (
	signaturePageSize = 1000
	maxSignaturePages = 5
	ownerLookupLimit  = 5

	// slotFreshness bounds how old a pushed slot may be before GetSlot is used.
	slotFreshness = 10 * time.Second
)

// RPCProvider implements Provider on a Solana JSON-RPC client.
type RPCProvider struct {
	rpc   solana.RPCClient
	slots solana.SlotSource
	now   func() time.Time
	log   logrus.FieldLogger
}

var _ Provider = (*RPCProvider)(nil)

// ProviderOption configures an RPCProvider.
type ProviderOption func(*RPCProvider)

// WithSlotSource serves GetCurrentSlot from a pushed slot stream when fresh.
func WithSlotSource(src solana.SlotSource) ProviderOption {
	return func(p *RPCProvider) {
		p.slots = src
	}
}

// WithClock sets the time source used for wallet ages.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *RPCProvider) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) ProviderOption {
	return func(p *RPCProvider) {
		p.log = log
	}
}

// NewRPCProvider creates a provider backed by rpc.
func NewRPCProvider(rpc solana.RPCClient, opts ...ProviderOption) *RPCProvider {
	p := &RPCProvider{
		rpc: rpc,
		now: time.Now,
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithField("component", "chain")
	return p
}

// GetMintInfo returns supply, decimals and authorities of mint.
func (p *RPCProvider) GetMintInfo(ctx context.Context, mint string) (*MintInfo, error) {
	if err := ValidateAddress(mint); err != nil {
		return nil, err
	}

	acc, err := p.rpc.GetParsedAccount(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get mint account: %w", err)
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	if acc.Type != "mint" {
		return nil, fmt.Errorf("%w: %s has type %q", ErrNotAMint, mint, acc.Type)
	}

	supply := solana.TokenAmount{Amount: acc.Info.Supply, Decimals: acc.Info.Decimals}
	return &MintInfo{
		Address:         mint,
		Supply:          supply.UIAmount(),
		Decimals:        acc.Info.Decimals,
		MintAuthority:   acc.Info.MintAuthority,
		FreezeAuthority: acc.Info.FreezeAuthority,
		Program:         acc.Owner,
	}, nil
}

// GetTokenSupply returns the UI supply of mint.
func (p *RPCProvider) GetTokenSupply(ctx context.Context, mint string) (float64, error) {
	supply, err := p.rpc.GetTokenSupply(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("get token supply: %w", err)
	}
	if supply == nil {
		return 0, ErrAccountNotFound
	}
	return supply.UIAmount(), nil
}

// GetLargestHolders returns the largest token accounts of mint with resolved owners.
// Owners that cannot be resolved are left empty.
func (p *RPCProvider) GetLargestHolders(ctx context.Context, mint string) ([]RawHolder, error) {
	accounts, err := p.rpc.GetTokenLargestAccounts(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get largest accounts: %w", err)
	}

	holders := make([]RawHolder, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ownerLookupLimit)
	for i, acc := range accounts {
		i, acc := i, acc
		holders[i] = RawHolder{TokenAccount: acc.Address, Amount: acc.UIAmount()}
		g.Go(func() error {
			parsed, err := p.rpc.GetParsedAccount(gctx, acc.Address)
			if err != nil {
				p.log.WithError(err).WithField("account", acc.Address).Debug("owner lookup failed")
				return nil
			}
			if parsed != nil {
				holders[i].Owner = parsed.Info.Owner
			}
			return nil
		})
	}
	_ = g.Wait()

	return holders, nil
}

// GetHolderCount returns the number of non-empty token accounts of mint.
func (p *RPCProvider) GetHolderCount(ctx context.Context, mint, tokenProgram string) (int, error) {
	n, err := p.rpc.CountTokenHolders(ctx, mint, tokenProgram)
	if err != nil {
		return 0, fmt.Errorf("count holders: %w", err)
	}
	return n, nil
}

// GetRecentTransactions returns up to limit signatures touching address, newest first.
func (p *RPCProvider) GetRecentTransactions(ctx context.Context, address string, limit int) ([]TxRef, error) {
	sigs, err := p.rpc.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("get signatures: %w", err)
	}
	return toTxRefs(sigs), nil
}

// GetOldestTransaction pages backwards through address history and returns the
// earliest signature reached. Very active addresses are bounded by maxSignaturePages,
// in which case the result is a lower bound on age.
func (p *RPCProvider) GetOldestTransaction(ctx context.Context, address string) (*TxRef, error) {
	var oldest *solana.SignatureInfo
	before := ""
	for page := 0; page < maxSignaturePages; page++ {
		sigs, err := p.rpc.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{
			Before: before,
			Limit:  signaturePageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("get signatures page %d: %w", page, err)
		}
		if len(sigs) == 0 {
			break
		}
		last := sigs[len(sigs)-1]
		oldest = &last
		if len(sigs) < signaturePageSize {
			break
		}
		before = last.Signature
	}
	if oldest == nil {
		return nil, nil
	}
	ref := toTxRefs([]solana.SignatureInfo{*oldest})[0]
	return &ref, nil
}

func toTxRefs(sigs []solana.SignatureInfo) []TxRef {
	refs := make([]TxRef, len(sigs))
	for i, s := range sigs {
		refs[i] = TxRef{
			Signature: s.Signature,
			Slot:      s.Slot,
			BlockTime: s.BlockTime,
			Failed:    s.Err != nil,
		}
	}
	return refs
}

// GetTransactionDetail returns a decoded transaction. Returns nil if not found.
func (p *RPCProvider) GetTransactionDetail(ctx context.Context, signature string) (*TxDetail, error) {
	tx, err := p.rpc.GetTransaction(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if tx == nil {
		return nil, nil
	}
	return DetailFromTransaction(tx), nil
}

// DetailFromTransaction decodes balance movements and log classifications of tx.
func DetailFromTransaction(tx *solana.Transaction) *TxDetail {
	d := &TxDetail{
		Signature:  tx.Signature,
		Slot:       tx.Slot,
		BlockTime:  tx.BlockTime,
		FeePayer:   tx.FeePayer(),
		SOLChanges: make(map[string]int64),
	}
	if tx.Message != nil {
		d.AccountKeys = tx.Message.AccountKeys
	}
	if tx.Meta == nil {
		return d
	}

	d.Failed = tx.Meta.Err != nil
	d.IsSwap = IsSwap(tx.Meta.LogMessages)
	d.CreatesMint = IsMintCreation(tx.Meta.LogMessages)

	for i, key := range d.AccountKeys {
		if i >= len(tx.Meta.PreBalances) || i >= len(tx.Meta.PostBalances) {
			break
		}
		if delta := int64(tx.Meta.PostBalances[i]) - int64(tx.Meta.PreBalances[i]); delta != 0 {
			d.SOLChanges[key] = delta
		}
	}

	type key struct{ owner, mint string }
	changes := make(map[key]*BalanceChange)
	var order []key
	ownerOf := func(b solana.TokenBalance) string {
		if b.Owner != "" {
			return b.Owner
		}
		if b.AccountIndex < len(d.AccountKeys) {
			return d.AccountKeys[b.AccountIndex]
		}
		return ""
	}
	get := func(b solana.TokenBalance) *BalanceChange {
		k := key{ownerOf(b), b.Mint}
		c, ok := changes[k]
		if !ok {
			c = &BalanceChange{Owner: k.owner, Mint: k.mint}
			changes[k] = c
			order = append(order, k)
		}
		return c
	}

	preMints := make(map[string]bool)
	for _, b := range tx.Meta.PreTokenBalances {
		get(b).Pre += solana.TokenBalanceUI(b)
		preMints[b.Mint] = true
	}
	seenNew := make(map[string]bool)
	for _, b := range tx.Meta.PostTokenBalances {
		get(b).Post += solana.TokenBalanceUI(b)
		if d.CreatesMint && !preMints[b.Mint] && !seenNew[b.Mint] {
			seenNew[b.Mint] = true
			d.NewMints = append(d.NewMints, b.Mint)
		}
	}

	for _, k := range order {
		d.Changes = append(d.Changes, *changes[k])
	}
	return d
}

// GetBlockTime returns the production time of slot, nil if the slot has no block.
func (p *RPCProvider) GetBlockTime(ctx context.Context, slot int64) (*int64, error) {
	return p.rpc.GetBlockTime(ctx, slot)
}

// GetBlock returns the block at slot, nil if the slot has no block.
func (p *RPCProvider) GetBlock(ctx context.Context, slot int64) (*solana.Block, error) {
	return p.rpc.GetBlock(ctx, slot)
}

// GetCurrentSlot returns the latest slot, preferring a fresh pushed slot.
func (p *RPCProvider) GetCurrentSlot(ctx context.Context) (int64, error) {
	if p.slots != nil {
		if slot, at, ok := p.slots.LatestSlot(); ok && p.now().Sub(at) < slotFreshness {
			observability.UpdateHighestSlot(slot)
			return slot, nil
		}
	}
	slot, err := p.rpc.GetSlot(ctx)
	if err != nil {
		return 0, fmt.Errorf("get slot: %w", err)
	}
	observability.UpdateHighestSlot(slot)
	return slot, nil
}

// GetAccountOwner returns the program owning address.
func (p *RPCProvider) GetAccountOwner(ctx context.Context, address string) (string, error) {
	info, err := p.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return "", fmt.Errorf("get account info: %w", err)
	}
	if info == nil {
		return "", ErrAccountNotFound
	}
	return info.Owner, nil
}

// GetFirstFunder returns the wallet that paid for wallet's earliest transaction,
// or the account that sent it the most SOL in that transaction.
func (p *RPCProvider) GetFirstFunder(ctx context.Context, wallet string) (string, error) {
	oldest, err := p.GetOldestTransaction(ctx, wallet)
	if err != nil {
		return "", err
	}
	if oldest == nil {
		return "", nil
	}

	detail, err := p.GetTransactionDetail(ctx, oldest.Signature)
	if err != nil {
		return "", err
	}
	if detail == nil {
		return "", nil
	}

	if detail.FeePayer != "" && detail.FeePayer != wallet {
		return detail.FeePayer, nil
	}
	if detail.SOLChanges[wallet] <= 0 {
		return "", nil
	}

	funder := ""
	var largest int64
	for _, acc := range detail.AccountKeys {
		delta := detail.SOLChanges[acc]
		if acc == wallet || delta >= 0 {
			continue
		}
		if delta < largest {
			largest = delta
			funder = acc
		}
	}
	return funder, nil
}

// GetWalletAge returns the age of wallet's earliest reachable transaction.
func (p *RPCProvider) GetWalletAge(ctx context.Context, wallet string) (domain.WalletAge, error) {
	oldest, err := p.GetOldestTransaction(ctx, wallet)
	if err != nil {
		return domain.UnknownAge(), err
	}
	if oldest == nil || oldest.BlockTime == nil {
		return domain.UnknownAge(), nil
	}
	return domain.AgeFromTime(time.Unix(*oldest.BlockTime, 0), p.now()), nil
}

// GetTokenBalance returns owner's UI balance of mint across its token accounts.
func (p *RPCProvider) GetTokenBalance(ctx context.Context, owner, mint string) (float64, error) {
	accounts, err := p.rpc.GetTokenAccountsByOwner(ctx, owner, mint)
	if err != nil {
		return 0, fmt.Errorf("get token accounts: %w", err)
	}
	var total float64
	for _, acc := range accounts {
		total += acc.UIAmount()
	}
	return total, nil
}

// GetBondingCurve returns the pump.fun curve of mint, nil if none exists.
func (p *RPCProvider) GetBondingCurve(ctx context.Context, mint string) (*BondingCurveState, error) {
	addr, err := BondingCurveAddress(mint)
	if err != nil {
		return nil, err
	}
	info, err := p.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("get bonding curve account: %w", err)
	}
	if info == nil || info.Owner != PumpFun {
		return nil, nil
	}
	return DecodeBondingCurve(addr, info.Data)
}
