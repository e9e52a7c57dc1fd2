// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package norms

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neurova/qeeg-engine/internal/httputil"
	"github.com/neurova/qeeg-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func TestBuiltinTable(t *testing.T) {
	table := Builtin()
	if table.Source != "builtin" {
		t.Errorf("Source = %q, want builtin", table.Source)
	}
	if table.Len() != 5 {
		t.Errorf("Len = %d, want 5", table.Len())
	}

	z, ok := table.ZScore("O1", types.BandAlpha, 0.50)
	if !ok {
		t.Fatal("alpha not covered by builtin table")
	}
	if math.Abs(z-2.0) > 1e-9 {
		t.Errorf("z = %v, want 2.0", z)
	}
}

func TestLoadCSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name:    "valid with header",
			content: "channel,band,mean,sd\nO1,Alpha,0.32,0.09\n,Theta,0.18,0.06\n",
		},
		{
			name:    "valid without header",
			content: "O1,Alpha,0.32,0.09\n",
		},
		{
			name:    "unknown band",
			content: "O1,Gamma,0.1,0.05\n",
			wantErr: true,
		},
		{
			name:    "non-positive sd",
			content: "O1,Alpha,0.32,0\n",
			wantErr: true,
		},
		{
			name:    "wrong column count",
			content: "O1,Alpha,0.32\n",
			wantErr: true,
		},
		{
			name:    "bad mean",
			content: "O1,Alpha,x,0.09\n",
			wantErr: true,
		},
		{
			name:    "header only",
			content: "channel,band,mean,sd\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "norms.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadCSV(path)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLookupPrefersChannelEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "norms.csv")
	content := "channel,band,mean,sd\n,Alpha,0.30,0.10\nO1,Alpha,0.40,0.05\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	if s, _ := table.Lookup("O1", types.BandAlpha); s.Mean != 0.40 {
		t.Errorf("O1 alpha mean = %v, want channel-specific 0.40", s.Mean)
	}
	if s, _ := table.Lookup("F3", types.BandAlpha); s.Mean != 0.30 {
		t.Errorf("F3 alpha mean = %v, want band-wide 0.30", s.Mean)
	}
	if _, ok := table.Lookup("F3", types.BandTheta); ok {
		t.Error("theta should not be covered")
	}
}

func TestLoadFallsBackToBuiltin(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "nothing-here"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Source != "builtin" {
		t.Errorf("Source = %q, want builtin", table.Source)
	}
}

func TestFetch(t *testing.T) {
	const dataset = "channel,band,mean,sd\nO1,Alpha,0.32,0.09\n"

	t.Run("downloads and validates", func(t *testing.T) {
		var calls int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			// First response is rate limited to exercise the retry path.
			if atomic.LoadInt32(&calls) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(dataset))
		}))
		defer ts.Close()

		dir := t.TempDir()
		cfg := types.NormsConfig{NormsDir: dir, DatasetURL: ts.URL}

		var out bytes.Buffer
		skipped, err := Fetch(context.Background(), ts.Client(), cfg, &out)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if skipped {
			t.Error("skipped = true on first fetch")
		}
		if atomic.LoadInt32(&calls) != 2 {
			t.Errorf("HTTP calls = %d, want 2 (one retry)", calls)
		}

		table, err := Load(dir)
		if err != nil {
			t.Fatalf("Load after fetch: %v", err)
		}
		if table.Source == "builtin" {
			t.Error("fetched dataset not loaded")
		}

		// Second fetch skips.
		skipped, err = Fetch(context.Background(), ts.Client(), cfg, &out)
		if err != nil {
			t.Fatalf("refetch: %v", err)
		}
		if !skipped {
			t.Error("skipped = false on refetch")
		}
	})

	t.Run("rejects invalid dataset", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("O1,Gamma,0.1,0.05\n"))
		}))
		defer ts.Close()

		dir := t.TempDir()
		cfg := types.NormsConfig{NormsDir: dir, DatasetURL: ts.URL}

		var out bytes.Buffer
		if _, err := Fetch(context.Background(), ts.Client(), cfg, &out); err == nil {
			t.Fatal("expected error for invalid dataset")
		}
		if _, err := os.Stat(filepath.Join(dir, DatasetFile)); !os.IsNotExist(err) {
			t.Error("invalid dataset left on disk")
		}
	})

	t.Run("propagates HTTP errors", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer ts.Close()

		cfg := types.NormsConfig{NormsDir: t.TempDir(), DatasetURL: ts.URL}
		var out bytes.Buffer
		if _, err := Fetch(context.Background(), ts.Client(), cfg, &out); err == nil {
			t.Fatal("expected error for HTTP 404")
		}
	})

	t.Run("requires a URL", func(t *testing.T) {
		var out bytes.Buffer
		if _, err := Fetch(context.Background(), http.DefaultClient, types.NormsConfig{NormsDir: t.TempDir()}, &out); err == nil {
			t.Fatal("expected error for missing URL")
		}
	})
}
