// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the qeeg-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/neurova/qeeg-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the qeeg-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "qeeg-engine",
	Short: "Clinical QEEG analysis and report pipeline",
	Long: `qeeg-engine turns raw EEG recordings and supporting clinic documents into
clinical and patient-facing PDF reports. Recordings (.edf, .csv) are broken
into relative band powers, coherence, and normative Z-scores; uploaded
documents (.pdf, .docx, .csv, scanned images) are reduced to text and folded
into the clinical report.

Each pipeline stage is a subcommand: analyze, extract, interpret, report,
and session. Use serve to expose the pipeline over HTTP.`,
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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./qeeg-engine.yaml or ~/.config/qeeg-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("qeeg-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "qeeg-engine"))
		}
	}

	viper.SetEnvPrefix("QEEG_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
