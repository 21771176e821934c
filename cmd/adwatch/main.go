// Command adwatch extracts advertisement listings from dynamically
// loaded ad-library pages.
//
// Usage:
//
//	adwatch -url https://example.com/ads     # one extraction run, JSON result on stdout
//	adwatch -config adwatch.yaml -url ...    # run with a YAML config
//	adwatch -mcp                             # serve the MCP tools over stdio
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/adwatch"
	"github.com/hazyhaar/adwatch/internal/selectors"
)

func main() {
	configPath := flag.String("config", "", "path to adwatch.yaml config file")
	targetURL := flag.String("url", "", "ad listing URL to extract")
	maxScrolls := flag.Int("max-scrolls", 0, "override the configured scroll cap")
	resume := flag.Bool("resume", false, "resume from the persisted checkpoint")
	mcpServe := flag.Bool("mcp", false, "serve the MCP tools over stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *targetURL, *maxScrolls, *resume, *mcpServe); err != nil {
		logger.Error("adwatch: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, targetURL string, maxScrolls int, resume, mcpServe bool) error {
	cfg := &adwatch.Config{}
	if configPath != "" {
		loaded, err := adwatch.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	opts := []adwatch.Option{adwatch.WithLogger(logger)}
	if cfg.Selectors.DB != "" {
		reg, err := loadSelectorDB(ctx, cfg.Selectors.DB)
		if err != nil {
			return fmt.Errorf("selector db: %w", err)
		}
		opts = append(opts, adwatch.WithSelectors(reg))
	}

	eng, err := adwatch.New(cfg, opts...)
	if err != nil {
		return err
	}

	if mcpServe {
		srv := mcp.NewServer(&mcp.Implementation{
			Name:    "adwatch",
			Version: "1.0.0",
		}, nil)
		eng.RegisterMCP(srv)
		logger.Info("adwatch: serving MCP over stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	if targetURL == "" {
		fmt.Fprintln(os.Stderr, "usage: adwatch -url <url> [-config <file>] [-max-scrolls n] [-resume] | adwatch -mcp")
		os.Exit(1)
	}

	res, err := eng.Run(ctx, adwatch.RunRequest{
		URL:        targetURL,
		MaxScrolls: maxScrolls,
		Resume:     resume,
	})
	if res != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(res); encErr != nil {
			return fmt.Errorf("encode result: %w", encErr)
		}
	}
	return err
}

func loadSelectorDB(ctx context.Context, path string) (*selectors.Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, selectors.Schema); err != nil {
		return nil, err
	}
	return selectors.LoadDB(ctx, db)
}
