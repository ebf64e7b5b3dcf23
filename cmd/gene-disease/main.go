// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the gene-disease CLI. It resolves a
// gene and a disease, gathers evidence from public sources, optionally asks
// an LLM for a verdict, and keeps a local history of runs.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/gene-disease-engine/internal/metrics"
	"github.com/pdiddy/gene-disease-engine/internal/secrets"
	"github.com/pdiddy/gene-disease-engine/internal/store"
	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const secretsDir = ".secrets/"

// Process-wide state built in PersistentPreRunE.
var (
	pipelineCfg types.PipelineConfig
	keyring     *secrets.Keyring
	appMetrics  *metrics.Metrics
	logger      *slog.Logger
)

// rootCmd is the base command for the gene-disease CLI.
var rootCmd = &cobra.Command{
	Use:   "gene-disease",
	Short: "Synthesize gene-disease association evidence",
	Long: `gene-disease resolves a gene symbol and a disease label to canonical
identifiers, gathers evidence from Open Targets, Europe PMC and the GWAS
Catalog, and optionally asks an LLM (OpenAI or Anthropic) for a verdict on
the strength of the association.

Runs are recorded in a local SQLite history. API keys are read from
.secrets/openai-api-key and .secrets/anthropic-api-key, or from
OPENAI_API_KEY and ANTHROPIC_API_KEY.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			cfg.Store.Path = db
		}
		pipelineCfg = cfg

		keyring, err = secrets.NewKeyring(secretsDir, logger)
		if err != nil {
			return err
		}
		if names := keyring.Names(); len(names) > 0 {
			logger.Debug("loaded secrets", "keys", names)
		}

		appMetrics = metrics.New()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("metrics-file")
		return appMetrics.WriteTextfile(path)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./gene-disease.yaml or ~/.config/gene-disease/gene-disease.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite history database (default: gene-disease.db)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus metrics to this file on exit")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gene-disease")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "gene-disease"))
		}
	}

	viper.SetEnvPrefix("GENE_DISEASE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{"analyzer.provider", "analyzer.model", "store.path", "http.user_agent", "http.requests_per_second"} {
		viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig overlays the config file and environment on the defaults.
// Keys use the same snake_case names as the YAML tags.
func loadConfig() (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
	if err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

func openStore() (*store.Store, error) {
	return store.Open(pipelineCfg.Store)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
