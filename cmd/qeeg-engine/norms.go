// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/neurova/qeeg-engine/internal/norms"
	"github.com/neurova/qeeg-engine/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "qeeg-engine/0.1"
)

var normsCmd = &cobra.Command{
	Use:   "norms",
	Short: "Manage normative datasets (fetch, show)",
	Long: `Norms manages the normative band-power table used by interpret. Without
a fetched dataset, interpretation falls back to a built-in adult
eyes-closed table.`,
}

// --- fetch subcommand ---

var normsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a normative dataset CSV",
	Long: `Fetch downloads the configured normative dataset into norms/norms.csv.
An existing dataset is left in place; the download is validated before it
replaces anything. Rate-limited responses are retried with backoff.`,
	RunE: runNormsFetch,
}

func runNormsFetch(cmd *cobra.Command, args []string) error {
	cfg := normsConfig(cmd)

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	cfg.Timeout = timeout
	cfg.UserAgent = defaultUserAgent

	client := &http.Client{Timeout: cfg.Timeout}
	if _, err := norms.Fetch(context.Background(), client, cfg, os.Stdout); err != nil {
		return err
	}
	return nil
}

// --- show subcommand ---

var normsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active normative table",
	RunE:  runNormsShow,
}

func runNormsShow(cmd *cobra.Command, args []string) error {
	cfg := normsConfig(cmd)

	table, err := norms.Load(cfg.NormsDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "source: %s (%d entries)\n\n", table.Source, table.Len())
	table.Write(os.Stdout)
	return nil
}

// --- shared helpers ---

func normsConfig(cmd *cobra.Command) types.NormsConfig {
	normsDir, _ := cmd.Flags().GetString("norms-dir")
	datasetURL, _ := cmd.Flags().GetString("url")
	apiKey, _ := cmd.Flags().GetString("api-key")
	maxRetries, _ := cmd.Flags().GetInt("max-retries")

	return types.NormsConfig{
		NormsDir:   normsDir,
		DatasetURL: datasetURL,
		APIKey:     secretDefault("norms-api-key", apiKey),
		MaxRetries: maxRetries,
	}
}

func init() {
	normsCmd.PersistentFlags().String("norms-dir", "norms", "directory holding normative datasets")

	normsFetchCmd.Flags().String("url", "", "download URL for the normative CSV dataset")
	normsFetchCmd.Flags().String("api-key", "", "bearer token for the dataset provider (default: .secrets/norms-api-key)")
	normsFetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	normsFetchCmd.Flags().Int("max-retries", 0, "retry attempts on rate-limited downloads (default 5)")

	normsCmd.AddCommand(normsFetchCmd)
	normsCmd.AddCommand(normsShowCmd)

	rootCmd.AddCommand(normsCmd)
}
