package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_GetTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getTransaction" {
			t.Errorf("expected method getTransaction, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"slot":      int64(123456),
				"blockTime": int64(1700000000),
				"meta": map[string]interface{}{
					"err":         nil,
					"logMessages": []string{"Program log: Hello", "Program log: World"},
				},
				"transaction": map[string]interface{}{
					"message": map[string]interface{}{
						"accountKeys": []string{"addr1", "addr2"},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	tx, err := client.GetTransaction(ctx, "testsig123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if tx == nil {
		t.Fatal("expected transaction, got nil")
	}

	if tx.Slot != 123456 {
		t.Errorf("expected slot 123456, got %d", tx.Slot)
	}

	if tx.BlockTime != 1700000000 {
		t.Errorf("expected blockTime 1700000000, got %d", tx.BlockTime)
	}

	if tx.Meta == nil {
		t.Fatal("expected meta, got nil")
	}

	if len(tx.Meta.LogMessages) != 2 {
		t.Errorf("expected 2 log messages, got %d", len(tx.Meta.LogMessages))
	}

	if tx.Message == nil {
		t.Fatal("expected message, got nil")
	}

	if len(tx.Message.AccountKeys) != 2 {
		t.Errorf("expected 2 account keys, got %d", len(tx.Message.AccountKeys))
	}
}

func TestHTTPClient_GetTransaction_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  nil,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	tx, err := client.GetTransaction(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if tx != nil {
		t.Errorf("expected nil for not found, got %+v", tx)
	}
}

func TestHTTPClient_GetSignaturesForAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getSignaturesForAddress" {
			t.Errorf("expected method getSignaturesForAddress, got %s", req.Method)
		}

		blockTime := int64(1700000000)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{"signature": "sig1", "slot": int64(100), "blockTime": blockTime, "err": nil},
				{"signature": "sig2", "slot": int64(101), "blockTime": blockTime, "err": nil},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	sigs, err := client.GetSignaturesForAddress(ctx, "testaddr", &SignaturesOpts{Limit: 10})
	if err != nil {
		t.Fatalf("GetSignaturesForAddress: %v", err)
	}

	if len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(sigs))
	}

	if sigs[0].Signature != "sig1" {
		t.Errorf("expected sig1, got %s", sigs[0].Signature)
	}

	if sigs[1].Slot != 101 {
		t.Errorf("expected slot 101, got %d", sigs[1].Slot)
	}
}

func TestHTTPClient_GetBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getBlock" {
			t.Errorf("expected method getBlock, got %s", req.Method)
		}

		blockTime := int64(1700000000)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"blockTime": blockTime,
				"transactions": []map[string]interface{}{
					{
						"transaction": map[string]interface{}{
							"signatures": []string{"sig1"},
							"message": map[string]interface{}{
								"accountKeys": []string{"addr1"},
							},
						},
						"meta": map[string]interface{}{
							"err":         nil,
							"logMessages": []string{"log1"},
						},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	block, err := client.GetBlock(ctx, 12345)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}

	if block.Slot != 12345 {
		t.Errorf("expected slot 12345, got %d", block.Slot)
	}

	if block.BlockTime == nil || *block.BlockTime != 1700000000 {
		t.Errorf("expected blockTime 1700000000")
	}

	if len(block.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(block.Transactions))
	}

	if block.Transactions[0].Signature != "sig1" {
		t.Errorf("expected sig1, got %s", block.Transactions[0].Signature)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(999),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	slot, err := client.GetSlot(ctx)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}

	if slot != 999 {
		t.Errorf("expected slot 999, got %d", slot)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32600,
				"message": "Invalid Request",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	rpcErr, ok := err.(*rpcError)
	if !ok {
		t.Fatalf("expected rpcError, got %T", err)
	}

	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getAccountInfo" {
			t.Errorf("expected method getAccountInfo, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": map[string]interface{}{
					"lamports":   uint64(1000000),
					"owner":      "11111111111111111111111111111111",
					"data":       []string{"SGVsbG8gV29ybGQ=", "base64"},
					"executable": false,
					"rentEpoch":  uint64(100),
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	info, err := client.GetAccountInfo(ctx, "testpubkey")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}

	if info == nil {
		t.Fatal("expected account info, got nil")
	}

	if info.Lamports != 1000000 {
		t.Errorf("expected lamports 1000000, got %d", info.Lamports)
	}

	if info.Owner != "11111111111111111111111111111111" {
		t.Errorf("unexpected owner: %s", info.Owner)
	}

	if info.Data != "SGVsbG8gV29ybGQ=" {
		t.Errorf("unexpected data: %s", info.Data)
	}
}

func TestHTTPClient_GetAccountInfo_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"value": nil,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	info, err := client.GetAccountInfo(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}

	if info != nil {
		t.Errorf("expected nil for not found, got %+v", info)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func newJSONRPCServer(t *testing.T, method string, result interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != method {
			t.Errorf("expected method %s, got %s", method, req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
}

func TestHTTPClient_GetTransaction_TokenBalances(t *testing.T) {
	server := newJSONRPCServer(t, "getTransaction", map[string]interface{}{
		"slot":      int64(500),
		"blockTime": int64(1700000100),
		"meta": map[string]interface{}{
			"err": nil,
			"preTokenBalances": []map[string]interface{}{
				{"accountIndex": 2, "mint": "mintA", "owner": "buyer",
					"uiTokenAmount": map[string]interface{}{"amount": "0", "decimals": 6}},
			},
			"postTokenBalances": []map[string]interface{}{
				{"accountIndex": 2, "mint": "mintA", "owner": "buyer",
					"uiTokenAmount": map[string]interface{}{"amount": "2500000", "decimals": 6}},
			},
			"loadedAddresses": map[string]interface{}{
				"writable": []string{"alt1"},
				"readonly": []string{},
			},
		},
		"transaction": map[string]interface{}{
			"message": map[string]interface{}{
				"accountKeys": []string{"payer", "other"},
			},
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "sig")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx.FeePayer() != "payer" {
		t.Errorf("expected fee payer payer, got %s", tx.FeePayer())
	}
	if len(tx.Message.AccountKeys) != 3 {
		t.Errorf("expected lookup table keys appended, got %v", tx.Message.AccountKeys)
	}
	if len(tx.Meta.PostTokenBalances) != 1 {
		t.Fatalf("expected 1 post token balance, got %d", len(tx.Meta.PostTokenBalances))
	}
	if got := TokenBalanceUI(tx.Meta.PostTokenBalances[0]); got != 2.5 {
		t.Errorf("expected 2.5 tokens, got %v", got)
	}
}

func TestHTTPClient_GetTokenLargestAccounts(t *testing.T) {
	server := newJSONRPCServer(t, "getTokenLargestAccounts", map[string]interface{}{
		"value": []map[string]interface{}{
			{"address": "acc1", "amount": "1000000000", "decimals": 9},
			{"address": "acc2", "amount": "500000000", "decimals": 9},
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	accounts, err := client.GetTokenLargestAccounts(context.Background(), "mint")
	if err != nil {
		t.Fatalf("GetTokenLargestAccounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Address != "acc1" || accounts[0].UIAmount() != 1.0 {
		t.Errorf("unexpected first account: %+v", accounts[0])
	}
	if accounts[1].UIAmount() != 0.5 {
		t.Errorf("expected 0.5, got %v", accounts[1].UIAmount())
	}
}

func TestHTTPClient_GetTokenSupply(t *testing.T) {
	server := newJSONRPCServer(t, "getTokenSupply", map[string]interface{}{
		"value": map[string]interface{}{"amount": "1000000000000000", "decimals": 6},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	supply, err := client.GetTokenSupply(context.Background(), "mint")
	if err != nil {
		t.Fatalf("GetTokenSupply: %v", err)
	}
	if supply.UIAmount() != 1e9 {
		t.Errorf("expected 1e9, got %v", supply.UIAmount())
	}
}

func TestHTTPClient_GetParsedAccount_Mint(t *testing.T) {
	server := newJSONRPCServer(t, "getAccountInfo", map[string]interface{}{
		"value": map[string]interface{}{
			"lamports": uint64(1461600),
			"owner":    "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
			"data": map[string]interface{}{
				"program": "spl-token",
				"parsed": map[string]interface{}{
					"type": "mint",
					"info": map[string]interface{}{
						"supply":          "1000",
						"decimals":        0,
						"mintAuthority":   nil,
						"freezeAuthority": "freezer",
						"isInitialized":   true,
					},
				},
			},
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	acc, err := client.GetParsedAccount(context.Background(), "mint")
	if err != nil {
		t.Fatalf("GetParsedAccount: %v", err)
	}
	if acc.Type != "mint" {
		t.Errorf("expected type mint, got %s", acc.Type)
	}
	if acc.Info.MintAuthority != nil {
		t.Errorf("expected revoked mint authority")
	}
	if acc.Info.FreezeAuthority == nil || *acc.Info.FreezeAuthority != "freezer" {
		t.Errorf("expected freeze authority freezer")
	}
}

func TestHTTPClient_GetBlockTime_SkippedSlot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32007,
				"message": "Slot 100 was skipped",
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	bt, err := client.GetBlockTime(context.Background(), 100)
	if err != nil {
		t.Fatalf("expected skipped slot to be reported as nil, got error %v", err)
	}
	if bt != nil {
		t.Errorf("expected nil block time, got %d", *bt)
	}
}

func TestHTTPClient_CountTokenHolders(t *testing.T) {
	amount := func(v uint64) []string {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, v)
		return []string{base64.StdEncoding.EncodeToString(buf), "base64"}
	}

	var gotParams []interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotParams = req.Params
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": []map[string]interface{}{
				{"pubkey": "a", "account": map[string]interface{}{"data": amount(5)}},
				{"pubkey": "b", "account": map[string]interface{}{"data": amount(0)}},
				{"pubkey": "c", "account": map[string]interface{}{"data": amount(1)}},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	count, err := client.CountTokenHolders(context.Background(), "mint", "")
	if err != nil {
		t.Fatalf("CountTokenHolders: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 non-empty accounts, got %d", count)
	}
	if len(gotParams) != 2 || gotParams[0] != legacyTokenProgram {
		t.Errorf("expected legacy token program as first param, got %v", gotParams)
	}
}
