// Command docgraph ingests a document corpus into a property graph.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agenthands/docgraph/internal/config"
	"github.com/agenthands/docgraph/internal/logger"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "docgraph"

type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Document to property-graph ingestion pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `docgraph parses business documents (invoices, contracts, pay stubs),
extracts typed entities and relationships with an LLM, resolves them against
the existing graph by embedding similarity and commits them to Neo4j.

Every stage before resolution is cached by content hash, and committing a
document is idempotent.`,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Config file path (TOML)")
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(ingestCmd(&g), serveCmd(&g), schemaCmd(&g), versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

// loadConfig reads .env, the TOML file and the environment, then starts the
// logger at the resulting level.
func loadConfig(g *globalFlags) (*config.Config, error) {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", g.envFile, err)
		}
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Init(logger.NewConsole(os.Stderr, cfg.Log.Level))
	return cfg, nil
}
