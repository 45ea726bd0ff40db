// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litwatch CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litwatch/internal/secrets"
	"github.com/pdiddy/litwatch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, then the .secrets/ value for key,
// then the matching environment variable (ncbi-api-key -> NCBI_API_KEY).
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return os.Getenv(strings.ToUpper(strings.ReplaceAll(key, "-", "_")))
}

// rootCmd is the base command for the litwatch CLI.
var rootCmd = &cobra.Command{
	Use:   "litwatch",
	Short: "Watch bibliographic sources and triage new papers with a local model",
	Long: `litwatch polls bibliographic sources (PubMed, bioRxiv, medRxiv, OpenAlex)
for recently published papers, deduplicates them into a local SQLite archive,
and scores each paper's relevance with a local Ollama model.

Ingestion and scoring are separate subcommands (fetch, score) composed by
run for scheduled operation; the archive subcommands query and annotate
what has accumulated.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litwatch.yaml or ~/.config/litwatch/config.yaml)")
}

func initConfig() {
	// .env is honored for ad-hoc key overrides; absence is fine.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litwatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litwatch"))
		}
	}

	viper.SetEnvPrefix("LITWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	viper.SetDefault("archive.path", "litwatch.db")

	viper.SetDefault("sources.timeout_seconds", 30)
	viper.SetDefault("sources.user_agent", "litwatch/"+version)
	viper.SetDefault("sources.pubmed.enabled", true)
	viper.SetDefault("sources.pubmed.max_results", 20)
	viper.SetDefault("sources.biorxiv.enabled", true)
	viper.SetDefault("sources.medrxiv.enabled", true)
	viper.SetDefault("sources.openalex.enabled", false)
	viper.SetDefault("sources.openalex.max_results", 20)

	viper.SetDefault("ingest.lookback_days", 4)
	viper.SetDefault("ingest.max_new_per_run", 50)
	viper.SetDefault("ingest.workers", 4)
	viper.SetDefault("ingest.topics_file", "topics.yaml")

	viper.SetDefault("scoring.base_url", "http://localhost:11434")
	viper.SetDefault("scoring.model", "mistral")
	viper.SetDefault("scoring.temperature", 0.3)
	viper.SetDefault("scoring.timeout_seconds", 120)
	viper.SetDefault("scoring.max_retries", 2)
	viper.SetDefault("scoring.workers", 1)
	viper.SetDefault("scoring.abstract_max_chars", 4000)
	viper.SetDefault("scoring.min_display_score", 5)
}

// loadConfig assembles the stage configuration from viper, which has
// already merged defaults, the config file, and LITWATCH_* environment
// variables in that order.
func loadConfig() types.Config {
	return types.Config{
		Archive: types.ArchiveConfig{
			Path: viper.GetString("archive.path"),
		},
		Sources: types.SourcesConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   time.Duration(viper.GetInt("sources.timeout_seconds")) * time.Second,
				UserAgent: viper.GetString("sources.user_agent"),
			},
			PubMed: types.PubMedConfig{
				Enabled:    viper.GetBool("sources.pubmed.enabled"),
				MaxResults: viper.GetInt("sources.pubmed.max_results"),
				APIKey:     secretDefault("ncbi-api-key", viper.GetString("sources.pubmed.api_key")),
			},
			Biorxiv: types.PreprintConfig{
				Enabled: viper.GetBool("sources.biorxiv.enabled"),
			},
			Medrxiv: types.PreprintConfig{
				Enabled: viper.GetBool("sources.medrxiv.enabled"),
			},
			OpenAlex: types.OpenAlexConfig{
				Enabled:    viper.GetBool("sources.openalex.enabled"),
				Email:      secretDefault("openalex-email", viper.GetString("sources.openalex.email")),
				MaxResults: viper.GetInt("sources.openalex.max_results"),
			},
		},
		Ingest: types.IngestConfig{
			LookbackDays: viper.GetInt("ingest.lookback_days"),
			MaxNewPerRun: viper.GetInt("ingest.max_new_per_run"),
			Workers:      viper.GetInt("ingest.workers"),
			TopicsFile:   viper.GetString("ingest.topics_file"),
		},
		Scoring: types.ScoringConfig{
			BaseURL:          viper.GetString("scoring.base_url"),
			Model:            viper.GetString("scoring.model"),
			Temperature:      viper.GetFloat64("scoring.temperature"),
			Timeout:          time.Duration(viper.GetInt("scoring.timeout_seconds")) * time.Second,
			MaxRetries:       viper.GetInt("scoring.max_retries"),
			Workers:          viper.GetInt("scoring.workers"),
			AbstractMaxChars: viper.GetInt("scoring.abstract_max_chars"),
			MinDisplayScore:  viper.GetInt("scoring.min_display_score"),
			Instructions:     viper.GetString("scoring.instructions"),
		},
	}
}

func main() {
	// An interrupt cancels the command context; the engines stop
	// between papers and leave unfinished work pending.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
