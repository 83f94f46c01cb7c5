package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/StevenGann/ObsidianDB/internal"
	pkgconfig "github.com/StevenGann/ObsidianDB/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
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
		Name:   "obsidiandb",
		Usage:  "Synchronized Markdown vault database with content hashing, tag/link extraction, and full-text search",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:  "mcp",
				Usage: "Serve the vault over MCP stdio transport",
				Flags: []cli.Flag{configFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.RunMCP(ctx, cfg)
				},
			},
			{
				Name:  "dump",
				Usage: "Print the vault's JSON export to stdout",
				Flags: []cli.Flag{configFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.RunDump(cfg, os.Stdout)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
