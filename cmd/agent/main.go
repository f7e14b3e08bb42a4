// Command agent runs a standalone O.N.A. consumer: it discovers a
// HyprCAT gateway's catalog, negotiates its next move through
// pluggable strategies, and attests every step to its own provenance
// chain, entirely independent of the gateway process.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hyprcat/hyprcat/internal/agent"
	"github.com/hyprcat/hyprcat/internal/client"
	"github.com/hyprcat/hyprcat/internal/provenance"
	"github.com/hyprcat/hyprcat/internal/strategy"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()
	slog.Info("starting hyprcat agent", "did", cfg.AgentDID, "start_url", cfg.StartURL)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	nav := client.NewNavigator(cfg.AgentDID, cfg.BearerToken, nil)
	chain := provenance.NewChain(cfg.AgentDID)

	strategies := []strategy.Strategy{
		strategy.Retail{},
		strategy.Analytics{DefaultQuery: cfg.DefaultQuery},
	}

	runtime := agent.NewRuntime(agent.Config{
		AgentDID:         cfg.AgentDID,
		StartURL:         cfg.StartURL,
		WalletURL:        cfg.WalletURL,
		MaxIterations:    cfg.MaxIterations,
		IterationDelay:   cfg.IterationDelay,
		AutoPayEnabled:   cfg.AutoPayEnabled,
		AutoPayMaxAmount: cfg.AutoPayMaxAmount,
		AutoPaySecret:    cfg.AutoPaySecret,
	}, nav, chain, strategies...)

	if err := runtime.Run(ctx); err != nil {
		slog.Error("agent run ended in error", "error", err, "state", runtime.State(), "iterations", runtime.Iteration())
		chain.Seal()
		os.Exit(1)
	}

	slog.Info("agent run completed", "state", runtime.State(), "iterations", runtime.Iteration(), "visited", len(nav.History()))
	chain.Seal()
}

// agentConfig is the standalone binary's configuration, loaded
// entirely from the environment to match internal/config's idiom
// without requiring the full gateway config schema.
type agentConfig struct {
	AgentDID     string
	BearerToken  string
	StartURL     string
	WalletURL    string
	DefaultQuery string

	MaxIterations  int
	IterationDelay time.Duration

	AutoPayEnabled   bool
	AutoPayMaxAmount int64
	AutoPaySecret    string
}

func loadConfig() agentConfig {
	return agentConfig{
		AgentDID:         getEnv("AGENT_DID", "did:key:agent-1"),
		BearerToken:      getEnv("AGENT_BEARER_TOKEN", ""),
		StartURL:         getEnv("AGENT_START_URL", "http://localhost:8080/catalog"),
		WalletURL:        getEnv("AGENT_WALLET_URL", "http://localhost:8080/wallet"),
		DefaultQuery:     getEnv("AGENT_DEFAULT_QUERY", "SELECT * FROM catalog LIMIT 10"),
		MaxIterations:    getEnvInt("AGENT_MAX_ITERATIONS", 25),
		IterationDelay:   time.Duration(getEnvInt("AGENT_ITERATION_DELAY_MS", 250)) * time.Millisecond,
		AutoPayEnabled:   getEnvBool("AGENT_AUTOPAY_ENABLED", true),
		AutoPayMaxAmount: getEnvInt64("AGENT_AUTOPAY_MAX_AMOUNT", 5000),
		AutoPaySecret:    getEnv("AGENT_AUTOPAY_SECRET", "dev-payment-secret"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}
