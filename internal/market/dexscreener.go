package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"solana-token-risk/internal/observability"
)

const (
	// DefaultBaseURL is the public DexScreener API.
	DefaultBaseURL = "https://api.dexscreener.com"

	wsolMint    = "So11111111111111111111111111111111111111112"
	solanaChain = "solana"
)

// DexScreenerClient implements Provider over the DexScreener HTTP API.
type DexScreenerClient struct {
	baseURL string
	client  *http.Client
}

var _ Provider = (*DexScreenerClient)(nil)

// ClientOption configures a DexScreenerClient.
type ClientOption func(*DexScreenerClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *DexScreenerClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *DexScreenerClient) {
		c.client = client
	}
}

// NewDexScreenerClient creates a client for baseURL; empty uses DefaultBaseURL.
func NewDexScreenerClient(baseURL string, opts ...ClientOption) *DexScreenerClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &DexScreenerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokensResponse struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD string `json:"priceUsd"`
	Txns     struct {
		H24 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"h24"`
	} `json:"txns"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	FDV           float64 `json:"fdv"`
	MarketCap     float64 `json:"marketCap"`
	PairCreatedAt int64   `json:"pairCreatedAt"` // unix millis
	Info          *struct {
		Websites []struct {
			URL string `json:"url"`
		} `json:"websites"`
		Socials []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"socials"`
	} `json:"info"`
}

func (p pair) liquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

func (p pair) priceUSD() float64 {
	d, err := decimal.NewFromString(p.PriceUSD)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

func (c *DexScreenerClient) fetchPairs(ctx context.Context, mint string) ([]pair, error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		observability.RecordMarketRequest("tokens", "error")
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.RecordMarketRequest("tokens", "error")
		return nil, fmt.Errorf("read response: %w", err)
	}
	observability.RecordMarketRequest("tokens", fmt.Sprint(resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out tokensResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	pairs := out.Pairs[:0]
	for _, p := range out.Pairs {
		if p.ChainID == solanaChain && p.BaseToken.Address == mint {
			pairs = append(pairs, p)
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].liquidityUSD() > pairs[j].liquidityUSD()
	})
	return pairs, nil
}

// GetTokenMarket aggregates every Solana pool where mint is the base token.
// Liquidity, volume and transaction counts are summed; price and market cap
// come from the deepest pool.
func (c *DexScreenerClient) GetTokenMarket(ctx context.Context, mint string) (*TokenMarket, error) {
	pairs, err := c.fetchPairs(ctx, mint)
	if err != nil {
		return nil, err
	}

	m := &TokenMarket{}
	if len(pairs) == 0 {
		return m, nil
	}

	top := pairs[0]
	m.Name = top.BaseToken.Name
	m.Symbol = top.BaseToken.Symbol
	m.PriceUSD = top.priceUSD()
	m.PriceChange24h = top.PriceChange.H24
	m.MarketCapUSD = top.MarketCap
	if m.MarketCapUSD == 0 {
		m.MarketCapUSD = top.FDV
	}

	dexes := make(map[string]bool)
	for _, p := range pairs {
		m.LiquidityUSD += p.liquidityUSD()
		m.Volume24h += p.Volume.H24
		m.Buys24h += p.Txns.H24.Buys
		m.Sells24h += p.Txns.H24.Sells
		m.PoolAddresses = append(m.PoolAddresses, p.PairAddress)
		if !dexes[p.DexID] {
			dexes[p.DexID] = true
			m.DexIDs = append(m.DexIDs, p.DexID)
		}

		if p.PairCreatedAt > 0 {
			created := time.UnixMilli(p.PairCreatedAt)
			if m.PairCreatedAt == nil || created.Before(*m.PairCreatedAt) {
				m.PairCreatedAt = &created
			}
		}

		if p.Info != nil {
			if len(p.Info.Websites) > 0 {
				m.HasWebsite = true
			}
			for _, s := range p.Info.Socials {
				if s.Type == "twitter" || s.Type == "x" {
					m.HasTwitter = true
				}
			}
		}
	}

	return m, nil
}

// GetQuotePriceUSD returns the SOL price from the deepest wrapped-SOL pool.
func (c *DexScreenerClient) GetQuotePriceUSD(ctx context.Context) (float64, error) {
	pairs, err := c.fetchPairs(ctx, wsolMint)
	if err != nil {
		return 0, err
	}
	for _, p := range pairs {
		if price := p.priceUSD(); price > 0 {
			return price, nil
		}
	}
	return 0, fmt.Errorf("no priced SOL pool")
}
