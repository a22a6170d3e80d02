package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/DavidROliverBA/bac4-sub000/internal"
	"github.com/DavidROliverBA/bac4-sub000/internal/diagramstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/graphstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/index"
	"github.com/DavidROliverBA/bac4-sub000/internal/mcpserver"
	"github.com/DavidROliverBA/bac4-sub000/internal/migrate"
	"github.com/DavidROliverBA/bac4-sub000/internal/navigate"
	"github.com/DavidROliverBA/bac4-sub000/internal/storage"
	pkgconfig "github.com/DavidROliverBA/bac4-sub000/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// runMigrate converts every legacy document in the vault to the current
// format and prints the batch report as JSON.
func runMigrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	locks := storage.NewPathLocker()
	graph := graphstore.New(store, locks, logger)
	engine := migrate.New(store, locks, graph, logger)

	report, err := engine.MigrateVault(ctx, migrate.Options{
		DryRun: cmd.Bool("dry-run"),
		Backup: cmd.Bool("backup"),
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d file(s) failed to migrate", report.Failed)
	}
	return nil
}

// runMCP serves the MCP tools over stdio; logs go to stderr so stdout
// stays clean for the protocol.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	locks := storage.NewPathLocker()
	graph := graphstore.New(store, locks, logger)
	diagrams := diagramstore.New(store, locks, graph, logger)
	nav := navigate.New(store, locks, diagrams, logger)

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(store, db, graph, nav).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "bac4",
		Usage:  "Local-first C4 architecture diagram vault with versioned JSON storage and migration tooling",
		Action: runServe,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Migrate legacy diagram documents to the current format",
				Action: runMigrate,
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Detect and validate without writing anything",
					},
					&cli.BoolFlag{
						Name:  "backup",
						Usage: "Write version-tagged .bak siblings before overwriting",
						Value: true,
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio for LLM integration",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
