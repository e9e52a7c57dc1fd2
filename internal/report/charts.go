// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders the clinical and patient PDF reports for a
// recording, along with the per-band distribution charts they embed.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/neurova/qeeg-engine/internal/qeeg"
	"github.com/neurova/qeeg-engine/pkg/types"
)

// RenderBandChart draws a bar chart of relative power per channel for one
// band and saves it as a PNG.
func RenderBandChart(channels []string, values []float64, band string, path string) error {
	if len(channels) != len(values) {
		return fmt.Errorf("channel/value length mismatch: %d vs %d", len(channels), len(values))
	}

	p := plot.New()
	p.Title.Text = band + " Distribution"
	p.Y.Label.Text = "Relative Power"

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(24))
	if err != nil {
		return fmt.Errorf("building bar chart: %w", err)
	}
	bars.Color = color.RGBA{B: 0xff, A: 0xff}
	p.Add(bars)
	p.NominalX(channels...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving chart %s: %w", filepath.Base(path), err)
	}
	return nil
}

// RenderCharts writes one band-distribution chart per canonical band to
// outDir (named "[Band]_map.png") and returns the chart paths in band order.
func RenderCharts(mf types.MetricsFile, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating chart directory: %w", err)
	}

	channels := make([]string, 0, len(mf.Channels))
	for _, ch := range mf.Channels {
		channels = append(channels, ch.Channel)
	}

	var paths []string
	for _, band := range qeeg.Bands {
		values := make([]float64, 0, len(mf.Channels))
		for _, ch := range mf.Channels {
			values = append(values, ch.RelativePower[band.Name])
		}

		path := filepath.Join(outDir, fmt.Sprintf("%s_map.png", band.Name))
		if err := RenderBandChart(channels, values, string(band.Name), path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
