// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package norms manages normative band-power statistics: a builtin default
// table, CSV datasets fetched from a configured source, and Z-score lookup
// against either.
package norms

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/neurova/qeeg-engine/pkg/types"
)

// DatasetFile is the filename a fetched normative dataset is stored under.
const DatasetFile = "norms.csv"

// Stat holds the normative mean and standard deviation of relative power
// for one channel/band cell.
type Stat struct {
	Mean float64
	SD   float64
}

type key struct {
	channel string // empty = band-wide
	band    types.Band
}

// Table is a normative dataset. Lookup prefers a channel-specific entry and
// falls back to the band-wide one.
type Table struct {
	// Source describes where the table came from ("builtin" or a file path).
	Source string

	entries map[key]Stat
}

// Builtin returns the default band-wide normative table of relative power,
// used when no dataset file is present.
func Builtin() *Table {
	t := &Table{
		Source:  "builtin",
		entries: make(map[key]Stat),
	}
	for band, s := range map[types.Band]Stat{
		types.BandDelta:    {Mean: 0.25, SD: 0.08},
		types.BandTheta:    {Mean: 0.18, SD: 0.06},
		types.BandAlpha:    {Mean: 0.30, SD: 0.10},
		types.BandBeta:     {Mean: 0.20, SD: 0.07},
		types.BandHighBeta: {Mean: 0.07, SD: 0.03},
	} {
		t.entries[key{band: band}] = s
	}
	return t
}

// knownBands guards dataset parsing against typoed band names.
var knownBands = map[types.Band]bool{
	types.BandDelta:    true,
	types.BandTheta:    true,
	types.BandAlpha:    true,
	types.BandBeta:     true,
	types.BandHighBeta: true,
}

// LoadCSV parses a normative dataset with columns channel,band,mean,sd.
// An empty channel column defines a band-wide entry. A header row is
// detected and skipped.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening normative dataset: %w", err)
	}
	defer f.Close()

	t := &Table{
		Source:  path,
		entries: make(map[key]Stat),
	}

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	row := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading dataset row %d: %w", row+1, err)
		}
		row++

		if len(record) != 4 {
			return nil, fmt.Errorf("dataset row %d: want 4 columns (channel,band,mean,sd), got %d", row, len(record))
		}
		if row == 1 && strings.EqualFold(strings.TrimSpace(record[1]), "band") {
			continue
		}

		band := types.Band(strings.TrimSpace(record[1]))
		if !knownBands[band] {
			return nil, fmt.Errorf("dataset row %d: unknown band %q", row, record[1])
		}

		mean, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("dataset row %d: invalid mean: %w", row, err)
		}
		sd, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("dataset row %d: invalid sd: %w", row, err)
		}
		if sd <= 0 {
			return nil, fmt.Errorf("dataset row %d: sd must be positive, got %v", row, sd)
		}

		t.entries[key{
			channel: strings.TrimSpace(record[0]),
			band:    band,
		}] = Stat{Mean: mean, SD: sd}
	}

	if len(t.entries) == 0 {
		return nil, fmt.Errorf("normative dataset %s is empty", path)
	}
	return t, nil
}

// Load returns the normative table for a norms directory: the fetched
// dataset if present, the builtin defaults otherwise.
func Load(normsDir string) (*Table, error) {
	path := filepath.Join(normsDir, DatasetFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Builtin(), nil
		}
		return nil, fmt.Errorf("checking normative dataset: %w", err)
	}
	return LoadCSV(path)
}

// Lookup returns the normative stat for a channel/band cell, preferring a
// channel-specific entry over the band-wide one.
func (t *Table) Lookup(channel string, band types.Band) (Stat, bool) {
	if s, ok := t.entries[key{channel: channel, band: band}]; ok {
		return s, true
	}
	s, ok := t.entries[key{band: band}]
	return s, ok
}

// ZScore returns the deviation of value from the norm for channel/band in
// standard-deviation units. ok is false when no entry covers the cell.
func (t *Table) ZScore(channel string, band types.Band, value float64) (z float64, ok bool) {
	s, ok := t.Lookup(channel, band)
	if !ok {
		return 0, false
	}
	return (value - s.Mean) / s.SD, true
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// Write prints the table entries to w in band order, band-wide entries
// first, channel-specific entries grouped by channel.
func (t *Table) Write(w io.Writer) {
	keys := make([]key, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].channel != keys[j].channel {
			return keys[i].channel < keys[j].channel
		}
		return bandOrder(keys[i].band) < bandOrder(keys[j].band)
	})

	fmt.Fprintf(w, "%-10s  %-10s  %8s  %8s\n", "Channel", "Band", "Mean", "SD")
	for _, k := range keys {
		s := t.entries[k]
		channel := k.channel
		if channel == "" {
			channel = "(all)"
		}
		fmt.Fprintf(w, "%-10s  %-10s  %8.3f  %8.3f\n", channel, k.band, s.Mean, s.SD)
	}
}

func bandOrder(band types.Band) int {
	switch band {
	case types.BandDelta:
		return 0
	case types.BandTheta:
		return 1
	case types.BandAlpha:
		return 2
	case types.BandBeta:
		return 3
	case types.BandHighBeta:
		return 4
	}
	return 5
}
