package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/nspace/internal"
	pkgconfig "github.com/starford/nspace/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func query(cmd *cli.Command) internal.Query {
	return internal.Query{
		PropertyID: cmd.String("property"),
		UserID:     cmd.String("user"),
		Date:       cmd.String("date"),
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func runSync(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Sync(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func runRentStatus(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RentStatus(ctx, query(cmd), internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func runActivity(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Activity(ctx, query(cmd), internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func main() {
	dateFlag := &cli.StringFlag{
		Name:    "date",
		Aliases: []string{"d"},
		Usage:   "Reference date YYYY-MM-DD (default: today)",
	}

	cmd := &cli.Command{
		Name:   "nspace",
		Usage:  "Property management records: rent status and activity feeds over a YAML ledger",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: run,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: runMCP,
			},
			{
				Name:   "sync",
				Usage:  "Import changed ledger files and print record counts",
				Action: runSync,
			},
			{
				Name:  "rent-status",
				Usage: "Print rent status for one or all properties",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "property", Aliases: []string{"p"}, Usage: "Property id (default: all)"},
					dateFlag,
				},
				Action: runRentStatus,
			},
			{
				Name:  "activity",
				Usage: "Print a property's activity feed as seen by a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "property", Aliases: []string{"p"}, Usage: "Property id", Required: true},
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Viewing user id", Required: true},
					dateFlag,
				},
				Action: runActivity,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
