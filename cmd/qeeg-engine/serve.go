// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/neurova/qeeg-engine/internal/server"
	"github.com/neurova/qeeg-engine/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report pipeline over HTTP",
	Long: `Serve runs an upload server: POST a recording plus supporting documents
to /api/sessions and download the generated PDFs from the returned URLs.
Each upload is processed in its own working tree under the data directory.

With a token configured (flag or .secrets/server-token), API requests
require Authorization: Bearer [token].`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8417)")
	serveCmd.Flags().String("data-dir", "data", "base directory for per-session working trees")
	serveCmd.Flags().String("token", "", "bearer token for API requests (default: .secrets/server-token)")
	serveCmd.Flags().String("norms-dir", "norms", "directory holding normative datasets")
	serveCmd.Flags().String("ocr-language", "", "Tesseract language string for image OCR (default eng)")
	serveCmd.Flags().Int64("max-upload", 0, "maximum upload size in bytes (default 256 MiB)")
	serveCmd.Flags().Bool("debug", false, "log pipeline stage output")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	token, _ := cmd.Flags().GetString("token")
	normsDir, _ := cmd.Flags().GetString("norms-dir")
	ocrLanguage, _ := cmd.Flags().GetString("ocr-language")
	maxUpload, _ := cmd.Flags().GetInt64("max-upload")
	debug, _ := cmd.Flags().GetBool("debug")

	log := logrus.New()
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := types.PipelineConfig{
		Extraction: types.ExtractionConfig{OCRLanguage: ocrLanguage},
		Norms:      types.NormsConfig{NormsDir: normsDir},
		Server: types.ServerConfig{
			Addr:           addr,
			DataDir:        dataDir,
			MaxUploadBytes: maxUpload,
			Token:          secretDefault("server-token", token),
		},
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, log).Run(ctx)
}
