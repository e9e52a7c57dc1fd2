// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package qeeg

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSVRecording holds a multichannel recording loaded from a CSV export:
// a header row of channel labels and one sample row per tick.
type CSVRecording struct {
	Labels  []string
	Samples [][]float64 // Samples[i] is the full series for Labels[i]
}

// ReadCSV loads a CSV recording. A leading time/index column (header "time",
// "t", "timestamp", or "index", case-insensitive) is dropped.
func ReadCSV(path string) (*CSVRecording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV recording: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	skip := -1
	if len(header) > 0 {
		switch strings.ToLower(strings.TrimSpace(header[0])) {
		case "time", "t", "timestamp", "index":
			skip = 0
		}
	}

	var labels []string
	for i, h := range header {
		if i == skip {
			continue
		}
		labels = append(labels, strings.TrimSpace(h))
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("CSV recording has no channel columns")
	}

	rec := &CSVRecording{
		Labels:  labels,
		Samples: make([][]float64, len(labels)),
	}

	row := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", row, err)
		}
		row++

		col := 0
		for i, cell := range record {
			if i == skip {
				continue
			}
			if col >= len(labels) {
				return nil, fmt.Errorf("CSV row %d has %d columns, want %d", row, len(record), len(header))
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("CSV row %d, column %q: %w", row, labels[col], err)
			}
			rec.Samples[col] = append(rec.Samples[col], v)
			col++
		}
		if col != len(labels) {
			return nil, fmt.Errorf("CSV row %d has %d columns, want %d", row, len(record), len(header))
		}
	}

	if len(rec.Samples[0]) == 0 {
		return nil, fmt.Errorf("CSV recording has no sample rows")
	}
	return rec, nil
}
