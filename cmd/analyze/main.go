// Package main assesses a single mint and writes its risk report.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"solana-token-risk/internal/analyzer"
	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/config"
	"solana-token-risk/internal/logging"
	"solana-token-risk/internal/market"
	"solana-token-risk/internal/reporting"
	"solana-token-risk/internal/solana"
	"solana-token-risk/internal/storage"
	chstore "solana-token-risk/internal/storage/clickhouse"
)

func main() {
	mint := flag.String("mint", "", "Token mint address to assess")
	format := flag.String("format", "markdown", "Output format: markdown or json")
	outputDir := flag.String("output-dir", "", "Write the report to this directory instead of stdout")
	historyCSV := flag.Bool("history-csv", false, "Also write HISTORY_<mint>.csv (requires --output-dir and ClickHouse)")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall assessment timeout")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides rpc.endpoint)")
	useMemory := flag.Bool("use-memory", false, "Skip ClickHouse history even when configured")
	flag.Parse()

	if *mint == "" {
		fmt.Fprintln(os.Stderr, "Error: --mint is required")
		os.Exit(2)
	}
	if *format != "markdown" && *format != "json" {
		fmt.Fprintln(os.Stderr, "Error: --format must be markdown or json")
		os.Exit(2)
	}
	if *historyCSV && *outputDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --history-csv requires --output-dir")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *rpcEndpoint != "" {
		cfg.RPC.Endpoint = *rpcEndpoint
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}
	// Reports go to stdout; keep logs on stderr.
	logger := logging.NewWithWriter(os.Stderr, cfg.Log.Level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// History lives in ClickHouse; in-memory mode has no prior runs to show.
	var history storage.AssessmentHistoryStore
	if !cfg.Storage.UseMemory {
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		history = chstore.NewAssessmentHistoryStore(conn)
	}

	rpc := solana.NewHTTPClient(cfg.RPC.Endpoint,
		solana.WithTimeout(cfg.RPC.Timeout),
		solana.WithMaxRetries(cfg.RPC.MaxRetries),
	)
	a, err := analyzer.New(analyzer.Options{
		Chain:   chain.NewRPCProvider(rpc, chain.WithLogger(logger)),
		Market:  market.NewDexScreenerClient(cfg.Market.BaseURL, market.WithTimeout(cfg.Market.Timeout)),
		History: history,
		Logger:  logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating analyzer: %v\n", err)
		os.Exit(1)
	}

	rec, err := a.Analyze(ctx, *mint)
	if err != nil {
		switch {
		case errors.Is(err, analyzer.ErrInvalidMint):
			fmt.Fprintf(os.Stderr, "Error: %s is not a valid mint address\n", *mint)
			os.Exit(2)
		case errors.Is(err, analyzer.ErrTokenNotFound):
			fmt.Fprintf(os.Stderr, "Error: token %s not found\n", *mint)
		default:
			fmt.Fprintf(os.Stderr, "Error analyzing token: %v\n", err)
		}
		os.Exit(1)
	}

	past, err := a.History(ctx, *mint, 50)
	if err != nil {
		logger.WithError(err).Warn("history lookup failed")
	}

	var out []byte
	name := "RISK_" + *mint
	if *format == "json" {
		out, err = json.MarshalIndent(rec, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding assessment: %v\n", err)
			os.Exit(1)
		}
		name += ".json"
	} else {
		out = []byte(reporting.RenderMarkdown(reporting.Build(rec, past, time.Now().UTC())))
		name += ".md"
	}

	if *outputDir == "" {
		os.Stdout.Write(out)
		return
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	files := map[string][]byte{name: out}
	if *historyCSV {
		files["HISTORY_"+*mint+".csv"] = []byte(reporting.RenderHistoryCSV(past))
	}
	for fname, data := range files {
		path := filepath.Join(*outputDir, fname)
		if err := os.WriteFile(path, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("  - %s\n", path)
	}
	fmt.Printf("%s: score %d (%s)\n", *mint, rec.Assessment.Score, rec.Assessment.Level)
}
