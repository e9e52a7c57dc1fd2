// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry holds one finding with session context for export.
type ExportEntry struct {
	SessionID     string   `json:"session_id" yaml:"session_id"`
	Channel       string   `json:"channel" yaml:"channel"`
	Band          string   `json:"band" yaml:"band"`
	RelativePower float64  `json:"relative_power" yaml:"relative_power"`
	ZScore        float64  `json:"z_score" yaml:"z_score"`
	Direction     string   `json:"direction" yaml:"direction"`
	BrodmannAreas []string `json:"brodmann_areas,omitempty" yaml:"brodmann_areas,omitempty"`
	Clinical      string   `json:"clinical" yaml:"clinical"`
	NormSource    string   `json:"norm_source,omitempty" yaml:"norm_source,omitempty"`
}

const exportLimit = 100000

// ExportYAML writes the session index to analysis/index/export.yaml.
// It supports the same filters as Retrieve.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.analysisDir, indexDir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the session index to analysis/index/export.json.
// It supports the same filters as Retrieve.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.analysisDir, indexDir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	opts.MaxResults = exportLimit
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(results))
	for i, r := range results {
		entries[i] = ExportEntry{
			SessionID:     r.SessionID,
			Channel:       r.Channel,
			Band:          string(r.Band),
			RelativePower: r.RelativePower,
			ZScore:        r.ZScore,
			Direction:     string(r.Direction),
			BrodmannAreas: r.BrodmannAreas,
			Clinical:      r.Clinical,
			NormSource:    r.NormSource,
		}
	}

	return entries, nil
}
