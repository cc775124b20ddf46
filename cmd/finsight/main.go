package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/finsight/finsight/pkg/adapters/embedding"
	_ "github.com/finsight/finsight/pkg/adapters/embedding/fake"
	_ "github.com/finsight/finsight/pkg/adapters/embedding/gemini"
	_ "github.com/finsight/finsight/pkg/adapters/embedding/openai"
	"github.com/finsight/finsight/pkg/adapters/llm"
	_ "github.com/finsight/finsight/pkg/adapters/llm/anthropic"
	_ "github.com/finsight/finsight/pkg/adapters/llm/fake"
	_ "github.com/finsight/finsight/pkg/adapters/llm/gemini"
	_ "github.com/finsight/finsight/pkg/adapters/llm/openai"
	"github.com/finsight/finsight/pkg/adapters/marketdata"
	_ "github.com/finsight/finsight/pkg/adapters/marketdata/fake"
	_ "github.com/finsight/finsight/pkg/adapters/marketdata/yahoo"
	"github.com/finsight/finsight/pkg/adapters/vectorstore"
	_ "github.com/finsight/finsight/pkg/adapters/vectorstore/chromadb"
	_ "github.com/finsight/finsight/pkg/adapters/vectorstore/memory"
	"github.com/finsight/finsight/pkg/agent"
	"github.com/finsight/finsight/pkg/analysis"
	"github.com/finsight/finsight/pkg/config"
	"github.com/finsight/finsight/pkg/mcpserver"
	fotel "github.com/finsight/finsight/pkg/otel"
	"github.com/finsight/finsight/pkg/portfolio"
	"github.com/finsight/finsight/pkg/rag"
	"github.com/finsight/finsight/pkg/tokens"
	"github.com/finsight/finsight/pkg/tools"
	"github.com/finsight/finsight/pkg/transcript"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

const systemPromptBase = `You are an expert stock recommendation agent with access to real-time market data,
portfolio analysis tools, and comprehensive financial analysis capabilities.

Your responsibilities:
1. Provide investment recommendations (buy/sell/hold) based on thorough analysis
2. Analyze stock fundamentals, valuation, growth, and risk factors
3. Consider the user's existing portfolio and diversification when making recommendations
4. Use available tools to find relevant portfolio context
5. Explain your reasoning clearly and concisely

Guidelines:
- Always fetch current data using the tools before making recommendations
- Consider portfolio context (sector exposure, diversification, existing positions)
- Provide specific, actionable recommendations with confidence levels
- Explain the key factors behind your recommendations
- When analyzing a stock, typically use: get_current_stock_price, get_stock_fundamentals,
  and recommend_action tools at minimum
- Be concise but thorough in your analysis

Available tools:
- Stock data: get_current_stock_price, get_stock_fundamentals, get_historical_data, get_stock_news
- Portfolio: get_portfolio_summary, get_position_details, add_position, remove_position
- RAG: search_portfolio_context, get_sector_exposure, find_similar_holdings (if available)
- Analysis: analyze_stock_valuation, calculate_portfolio_metrics, recommend_action%s

Remember: You are helping users make informed investment decisions. Be thorough but decisive.`

const ragUnavailableNote = "\n\nNOTE: Semantic search features (search_portfolio_context, find_similar_holdings) are currently unavailable. Use get_portfolio_summary and analyze sectors manually."

// systemPrompt renders the agent instruction, flagging unavailable semantic
// capabilities so the model does not keep retrying them.
func systemPrompt(index *rag.Index) string {
	note := ""
	if index == nil || !index.Available() {
		note = ragUnavailableNote
	}
	return fmt.Sprintf(systemPromptBase, note)
}

func main() {
	var showVersion, mcpMode bool
	var mcpAddr, sessionID string

	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.BoolVar(&mcpMode, "mcp", false, "serve the capability catalog over MCP instead of the REPL")
	flag.StringVar(&mcpAddr, "mcp-addr", "", "MCP SSE listen address (empty means stdio)")
	flag.StringVar(&sessionID, "session", "", "transcript session id (defaults to a fresh UUID)")
	flag.Parse()

	if showVersion {
		fmt.Printf("finsight %s (commit=%s, date=%s)\n", version, commit, date)
		return
	}

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Stdout stays clean for the REPL and for MCP stdio framing.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := fotel.Init(ctx, fotel.Config{ServiceName: "finsight", ServiceVersion: version, UseStdout: cfg.TraceStdout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "otel init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if err := run(ctx, cfg, log, mcpMode, mcpAddr, sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, mcpMode bool, mcpAddr, sessionID string) error {
	market, err := buildMarketData(ctx, cfg)
	if err != nil {
		return err
	}
	store := portfolio.NewFileStore(cfg.PortfolioPath, log)
	analyzer := analysis.New(market, store, cfg.Thresholds, log)
	index := buildIndex(ctx, cfg, market, log)

	registry := agent.NewRegistry()
	registry.MustRegister(tools.All(tools.Deps{
		Market:   market,
		Store:    store,
		Analyzer: analyzer,
		Index:    index,
		Log:      log,
	})...)

	if index.Available() {
		if book, err := store.Load(); err == nil {
			if err := index.SyncBook(ctx, book); err != nil {
				log.Warn("initial index sync failed", "error", err)
			}
		}
	}

	if mcpMode {
		srv, err := mcpserver.New(mcpserver.Config{
			Name:     "finsight",
			Version:  version,
			Registry: registry,
			Addr:     mcpAddr,
			Log:      log,
		})
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	}

	factory, ok := llm.Resolve(cfg.Provider)
	if !ok {
		return fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
	provider, err := factory(ctx, map[string]any{"model": cfg.Model})
	if err != nil {
		return err
	}

	estimate, err := tokens.NewTikTokenEstimator("gpt-4")
	if err != nil {
		log.Warn("tiktoken unavailable, using heuristic estimator", "error", err)
		estimate = tokens.Heuristic()
	}

	a, err := agent.New(agent.Config{
		Provider:       provider,
		Registry:       registry,
		System:         systemPrompt(index),
		Model:          cfg.Model,
		MaxIterations:  cfg.MaxIterations,
		MaxTokens:      cfg.MaxTokens,
		Timeout:        cfg.RequestTimeout,
		EstimateTokens: estimate,
		Log:            log,
	})
	if err != nil {
		return err
	}

	var ts transcript.Store
	if cfg.DatabaseURL != "" {
		db, err := transcript.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		ts = db
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return repl(ctx, a, ts, sessionID, log)
}

func buildMarketData(ctx context.Context, cfg config.Config) (marketdata.Provider, error) {
	factory, ok := marketdata.Resolve(cfg.MarketData)
	if !ok {
		return nil, fmt.Errorf("unknown market data provider %q", cfg.MarketData)
	}
	return factory(ctx, nil)
}

// buildIndex assembles the semantic index. Any construction failure yields an
// unavailable index rather than aborting startup.
func buildIndex(ctx context.Context, cfg config.Config, market marketdata.Provider, log *slog.Logger) *rag.Index {
	if cfg.EmbeddingProvider == "" {
		return rag.NewUnavailable("no embedding provider configured", log)
	}
	ef, ok := embedding.Resolve(cfg.EmbeddingProvider)
	if !ok {
		return rag.NewUnavailable(fmt.Sprintf("unknown embedding provider %q", cfg.EmbeddingProvider), log)
	}
	embedder, err := ef(ctx, nil)
	if err != nil {
		return rag.NewUnavailable(err.Error(), log)
	}
	vf, ok := vectorstore.Resolve(cfg.VectorStore)
	if !ok {
		return rag.NewUnavailable(fmt.Sprintf("unknown vector store %q", cfg.VectorStore), log)
	}
	vstore, err := vf(ctx, map[string]any{
		"base_url":          cfg.ChromaURL,
		"collection":        cfg.Collection,
		"create_if_missing": true,
	})
	if err != nil {
		return rag.NewUnavailable(err.Error(), log)
	}
	return rag.New(vstore, embedder, market, cfg.Collection, log)
}

func repl(ctx context.Context, a *agent.Agent, ts transcript.Store, sessionID string, log *slog.Logger) error {
	fmt.Println("finsight - stock recommendation agent")
	fmt.Println("Commands: reset, summary, quit")

	persisted := 0
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		switch line {
		case "quit", "exit":
			return nil
		case "reset":
			a.Reset()
			persisted = 0
			if ts != nil {
				if err := ts.Clear(ctx, sessionID); err != nil {
					log.Warn("transcript clear failed", "error", err)
				}
			}
			fmt.Println("Conversation reset.")
			continue
		case "summary":
			s := a.Summary()
			fmt.Printf("Conversation has %d turn(s).\n", s.TurnCount)
			continue
		}

		reply := a.Run(ctx, line)
		fmt.Printf("\nAgent: %s\n", reply)

		if ts != nil {
			persisted = persistNewTurns(ctx, a, ts, sessionID, persisted, log)
		}
	}
}

// persistNewTurns appends every turn not yet stored and returns the new
// persisted count.
func persistNewTurns(ctx context.Context, a *agent.Agent, ts transcript.Store, sessionID string, persisted int, log *slog.Logger) int {
	s := a.Summary()
	for i := persisted; i < len(s.Turns); i++ {
		if _, err := ts.Append(ctx, sessionID, s.Turns[i]); err != nil {
			log.Warn("transcript append failed", "error", err)
			return i
		}
	}
	return len(s.Turns)
}
