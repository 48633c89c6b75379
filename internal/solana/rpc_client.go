package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"solana-token-risk/internal/observability"
)

// Default configuration values.
// Sub-fetches are not retried by default: a failed fetch degrades to an absent signal.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 0
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
	DefaultCommitment  = "confirmed"
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	commitment  string
	requestID   atomic.Uint64
}

// Compile-time interface check.
var _ RPCClient = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithCommitment sets the commitment level sent with every request.
func WithCommitment(commitment string) ClientOption {
	return func(c *HTTPClient) {
		c.commitment = commitment
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		commitment:  DefaultCommitment,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Block-time RPC error codes for slots that were skipped or pruned.
const (
	rpcErrSlotSkipped         = -32007
	rpcErrLongTermStorageSlot = -32009
	rpcErrBlockNotAvailable   = -32004
	rpcErrBlockStatusNotAvail = -32014
)

// isMissingBlockError reports whether err means the slot has no block.
func isMissingBlockError(err error) bool {
	rerr, ok := err.(*rpcError)
	if !ok {
		return false
	}
	switch rerr.Code {
	case rpcErrSlotSkipped, rpcErrLongTermStorageSlot, rpcErrBlockNotAvailable, rpcErrBlockStatusNotAvail:
		return true
	}
	return false
}

// call performs a JSON-RPC call with optional retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
		if err != nil && !isMissingBlockError(err) {
			observability.RecordRPCError(method)
		}
	}()

	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	if c.maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// GetTransaction retrieves a transaction by signature.
func (c *HTTPClient) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "json",
			"commitment":                     c.commitment,
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result *getTransactionResult
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	if result == nil || (result.Slot == 0 && result.BlockTime == nil) {
		return nil, nil
	}

	tx := &Transaction{
		Slot:      result.Slot,
		Signature: signature,
	}
	if result.BlockTime != nil {
		tx.BlockTime = *result.BlockTime
	}
	tx.Meta = result.Meta.toMeta()
	if result.Transaction != nil {
		tx.Message = result.Transaction.Message.toMessage(result.Meta)
	}

	return tx, nil
}

// getTransactionResult is the raw RPC response for getTransaction.
type getTransactionResult struct {
	Slot        int64               `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *getTransactionMeta `json:"meta"`
	Transaction *getTransactionTx   `json:"transaction"`
}

type getTransactionMeta struct {
	Err               interface{}       `json:"err"`
	LogMessages       []string          `json:"logMessages"`
	PreBalances       []uint64          `json:"preBalances"`
	PostBalances      []uint64          `json:"postBalances"`
	PreTokenBalances  []rawTokenBalance `json:"preTokenBalances"`
	PostTokenBalances []rawTokenBalance `json:"postTokenBalances"`
	LoadedAddresses   *loadedAddresses  `json:"loadedAddresses"`
}

type loadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}

type rawTokenBalance struct {
	AccountIndex  int         `json:"accountIndex"`
	Mint          string      `json:"mint"`
	Owner         string      `json:"owner"`
	UITokenAmount TokenAmount `json:"uiTokenAmount"`
}

func (m *getTransactionMeta) toMeta() *TransactionMeta {
	if m == nil {
		return nil
	}
	return &TransactionMeta{
		Err:               m.Err,
		LogMessages:       m.LogMessages,
		PreBalances:       m.PreBalances,
		PostBalances:      m.PostBalances,
		PreTokenBalances:  convertTokenBalances(m.PreTokenBalances),
		PostTokenBalances: convertTokenBalances(m.PostTokenBalances),
	}
}

func convertTokenBalances(raw []rawTokenBalance) []TokenBalance {
	if len(raw) == 0 {
		return nil
	}
	out := make([]TokenBalance, len(raw))
	for i, r := range raw {
		out[i] = TokenBalance{
			AccountIndex: r.AccountIndex,
			Mint:         r.Mint,
			Owner:        r.Owner,
			Amount:       r.UITokenAmount.Amount,
			Decimals:     r.UITokenAmount.Decimals,
		}
	}
	return out
}

type getTransactionTx struct {
	Signatures []string               `json:"signatures"`
	Message    *getTransactionMessage `json:"message"`
}

type getTransactionMessage struct {
	AccountKeys []string `json:"accountKeys"`
}

// toMessage appends address-lookup-table keys so account indexes resolve for v0 transactions.
func (m *getTransactionMessage) toMessage(meta *getTransactionMeta) *TransactionMessage {
	if m == nil {
		return nil
	}
	keys := append([]string(nil), m.AccountKeys...)
	if meta != nil && meta.LoadedAddresses != nil {
		keys = append(keys, meta.LoadedAddresses.Writable...)
		keys = append(keys, meta.LoadedAddresses.Readonly...)
	}
	return &TransactionMessage{AccountKeys: keys}
}

// GetBlock retrieves a block by slot number.
func (c *HTTPClient) GetBlock(ctx context.Context, slot int64) (*Block, error) {
	params := []interface{}{
		slot,
		map[string]interface{}{
			"encoding":                       "json",
			"transactionDetails":             "full",
			"rewards":                        false,
			"commitment":                     c.commitment,
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result getBlockResult
	if err := c.call(ctx, "getBlock", params, &result); err != nil {
		if isMissingBlockError(err) {
			return nil, nil
		}
		return nil, err
	}

	block := &Block{
		Slot:      slot,
		BlockTime: result.BlockTime,
	}

	for _, txWrapper := range result.Transactions {
		tx := Transaction{
			Slot: slot,
		}
		if result.BlockTime != nil {
			tx.BlockTime = *result.BlockTime
		}
		if len(txWrapper.Transaction.Signatures) > 0 {
			tx.Signature = txWrapper.Transaction.Signatures[0]
		}
		tx.Meta = txWrapper.Meta.toMeta()
		tx.Message = txWrapper.Transaction.Message.toMessage(txWrapper.Meta)

		block.Transactions = append(block.Transactions, tx)
	}

	return block, nil
}

// getBlockResult is the raw RPC response for getBlock.
type getBlockResult struct {
	BlockTime    *int64              `json:"blockTime"`
	Transactions []getBlockTxWrapper `json:"transactions"`
}

type getBlockTxWrapper struct {
	Transaction getTransactionTx    `json:"transaction"`
	Meta        *getTransactionMeta `json:"meta"`
}

// GetSignaturesForAddress retrieves signatures for an address with pagination.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	config := map[string]interface{}{
		"commitment": c.commitment,
	}
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Until != "" {
			config["until"] = opts.Until
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{address, config}

	var result []getSignaturesResult
	if err := c.call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}

	return sigs, nil
}

// getSignaturesResult is the raw RPC response item for getSignaturesForAddress.
type getSignaturesResult struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": c.commitment,
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}

	if len(result.Value.Data) >= 1 {
		info.Data = result.Value.Data[0]
	}

	return info, nil
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetParsedAccount retrieves jsonParsed account data.
// Returns nil if account not found. Accounts the node cannot parse yield an empty Info.
func (c *HTTPClient) GetParsedAccount(ctx context.Context, pubkey string) (*ParsedAccount, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding":   "jsonParsed",
			"commitment": c.commitment,
		},
	}

	var result struct {
		Value *struct {
			Lamports uint64          `json:"lamports"`
			Owner    string          `json:"owner"`
			Data     json.RawMessage `json:"data"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}

	acc := &ParsedAccount{
		Lamports: result.Value.Lamports,
		Owner:    result.Value.Owner,
	}

	var parsed parsedData
	if err := json.Unmarshal(result.Value.Data, &parsed); err == nil {
		acc.Program = parsed.Program
		acc.Type = parsed.Parsed.Type
		acc.Info = parsed.Parsed.Info
	}
	return acc, nil
}

type parsedData struct {
	Program string `json:"program"`
	Parsed  struct {
		Type string     `json:"type"`
		Info ParsedInfo `json:"info"`
	} `json:"parsed"`
}

// GetTokenLargestAccounts returns the 20 largest token accounts of a mint.
func (c *HTTPClient) GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAmountAccount, error) {
	params := []interface{}{
		mint,
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value []struct {
			Address  string `json:"address"`
			Amount   string `json:"amount"`
			Decimals int    `json:"decimals"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenLargestAccounts", params, &result); err != nil {
		return nil, err
	}

	accounts := make([]TokenAmountAccount, len(result.Value))
	for i, v := range result.Value {
		accounts[i] = TokenAmountAccount{
			Address:     v.Address,
			TokenAmount: TokenAmount{Amount: v.Amount, Decimals: v.Decimals},
		}
	}
	return accounts, nil
}

// GetTokenSupply returns the total supply of a mint.
func (c *HTTPClient) GetTokenSupply(ctx context.Context, mint string) (*TokenAmount, error) {
	params := []interface{}{
		mint,
		map[string]interface{}{"commitment": c.commitment},
	}

	var result struct {
		Value *TokenAmount `json:"value"`
	}
	if err := c.call(ctx, "getTokenSupply", params, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// GetTokenAccountsByOwner returns token accounts of owner holding mint.
func (c *HTTPClient) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]OwnedTokenAccount, error) {
	params := []interface{}{
		owner,
		map[string]interface{}{"mint": mint},
		map[string]interface{}{
			"encoding":   "jsonParsed",
			"commitment": c.commitment,
		},
	}

	var result struct {
		Value []struct {
			Pubkey  string `json:"pubkey"`
			Account struct {
				Data parsedData `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return nil, err
	}

	accounts := make([]OwnedTokenAccount, 0, len(result.Value))
	for _, v := range result.Value {
		info := v.Account.Data.Parsed.Info
		acc := OwnedTokenAccount{
			Address: v.Pubkey,
			Mint:    info.Mint,
			Owner:   info.Owner,
		}
		if info.TokenAmount != nil {
			acc.TokenAmount = *info.TokenAmount
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// splTokenAccountSize is the data length of a legacy SPL token account.
const splTokenAccountSize = 165

// legacyTokenProgram is the SPL Token program ID.
const legacyTokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// CountTokenHolders counts token accounts of mint with a non-zero balance.
// Only the 8-byte amount field of each account is transferred.
func (c *HTTPClient) CountTokenHolders(ctx context.Context, mint, tokenProgram string) (int, error) {
	filters := []interface{}{
		map[string]interface{}{"memcmp": map[string]interface{}{"offset": 0, "bytes": mint}},
	}
	if tokenProgram == "" || tokenProgram == legacyTokenProgram {
		tokenProgram = legacyTokenProgram
		filters = append(filters, map[string]interface{}{"dataSize": splTokenAccountSize})
	}

	params := []interface{}{
		tokenProgram,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": c.commitment,
			"dataSlice":  map[string]interface{}{"offset": 64, "length": 8},
			"filters":    filters,
		},
	}

	var result []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data []string `json:"data"`
		} `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", params, &result); err != nil {
		return 0, err
	}

	count := 0
	for _, r := range result {
		if len(r.Account.Data) == 0 {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(r.Account.Data[0])
		if err != nil || len(raw) < 8 {
			continue
		}
		if binary.LittleEndian.Uint64(raw) > 0 {
			count++
		}
	}
	return count, nil
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": c.commitment},
	}
	var result int64
	if err := c.call(ctx, "getSlot", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// GetBlockTime retrieves the estimated production time of a block.
// Returns nil without error when the slot was skipped or is unavailable.
func (c *HTTPClient) GetBlockTime(ctx context.Context, slot int64) (*int64, error) {
	params := []interface{}{slot}
	var result *int64
	if err := c.call(ctx, "getBlockTime", params, &result); err != nil {
		if isMissingBlockError(err) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}
