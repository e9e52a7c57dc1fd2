// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package norms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/neurova/qeeg-engine/internal/httputil"
	"github.com/neurova/qeeg-engine/pkg/types"
)

const defaultUserAgent = "qeeg-engine/0.1"

// Fetch downloads the normative dataset configured in cfg into
// cfg.NormsDir/norms.csv. If the dataset already exists on disk the
// download is skipped. The downloaded file is validated before it replaces
// anything; an invalid dataset is removed and reported as an error.
func Fetch(ctx context.Context, client *http.Client, cfg types.NormsConfig, w io.Writer) (skipped bool, err error) {
	if cfg.DatasetURL == "" {
		return false, fmt.Errorf("no dataset URL configured")
	}

	dest := filepath.Join(cfg.NormsDir, DatasetFile)
	if _, err := os.Stat(dest); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", dest)
		return true, nil
	}

	if err := os.MkdirAll(cfg.NormsDir, 0o755); err != nil {
		return false, fmt.Errorf("creating norms directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.DatasetURL, nil)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, cfg.MaxRetries)
	if err != nil {
		return false, fmt.Errorf("downloading dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("downloading dataset: HTTP %d", resp.StatusCode)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return false, fmt.Errorf("creating dataset file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return false, fmt.Errorf("writing dataset: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("closing dataset file: %w", err)
	}

	// Validate before the dataset becomes visible to Load.
	if _, err := LoadCSV(tmp); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("fetched dataset invalid: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("installing dataset: %w", err)
	}

	fmt.Fprintf(w, "fetched: %s\n", dest)
	return false, nil
}
