// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"go.yaml.in/yaml/v3"

	"github.com/neurova/qeeg-engine/internal/extract"
	"github.com/neurova/qeeg-engine/internal/qeeg"
	"github.com/neurova/qeeg-engine/pkg/types"
)

const (
	// ClinicalReportName and PatientReportName are the fixed output
	// filenames, one pair per recording.
	ClinicalReportName = "Clinical_Report.pdf"
	PatientReportName  = "Patient_Report.pdf"

	defaultExcerptLength = 500

	lineHeight = 8.0
)

var clinicalInterventions = []string{
	"swLORETA Neurofeedback",
	"Biofeedback",
	"Neuro-nutrition",
	"Functional Neurological Exercises",
}

var patientRecommendations = []string{
	"Neurofeedback training",
	"Relaxation breathing",
	"Omega-3 and magnesium",
	"Brain games & light exercise",
}

// Excerpt is a document snippet included in the clinical report.
type Excerpt struct {
	Name string
	Text string
}

// Input gathers everything one report pair is rendered from.
type Input struct {
	Metrics  types.MetricsFile
	Findings types.FindingsFile
	Excerpts []Excerpt
}

// newReport builds an A4 document with the shared page-number footer.
func newReport() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return pdf
}

func title(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, text, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
}

func paragraph(pdf *fpdf.Fpdf, text string) {
	pdf.MultiCell(0, lineHeight, text, "", "L", false)
}

func embedCharts(pdf *fpdf.Fpdf, paths []string) {
	for _, path := range paths {
		pdf.ImageOptions(path, 30, -1, 150, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.Ln(10)
	}
}

// channelLine formats one channel's relative powers in band order.
func channelLine(ch types.ChannelMetrics) string {
	parts := make([]string, 0, len(qeeg.Bands))
	for _, band := range qeeg.Bands {
		parts = append(parts, fmt.Sprintf("%s %.3f", band.Name, ch.RelativePower[band.Name]))
	}
	return fmt.Sprintf("%s: %s", ch.Channel, strings.Join(parts, ", "))
}

func pairLine(p types.PairMetrics) string {
	return fmt.Sprintf("%s-%s %s: coherence %.2f, phase lag %.1f deg",
		p.ChannelA, p.ChannelB, p.Band, p.Coherence, p.PhaseLagDeg)
}

// Generate renders the clinical and patient PDFs plus the band charts into
// outDir. excerptLen bounds the document snippets; <= 0 uses the default.
func Generate(input Input, outDir string, excerptLen int) error {
	if excerptLen <= 0 {
		excerptLen = defaultExcerptLength
	}

	charts, err := RenderCharts(input.Metrics, outDir)
	if err != nil {
		return err
	}

	clinical := newReport()
	title(clinical, "Comprehensive Clinical QEEG Report")

	patient := newReport()
	title(patient, "Patient-Friendly Brain Report")

	paragraph(clinical, fmt.Sprintf("Recording: %s (%.0f s, %d channels)",
		input.Metrics.Recording.ID, input.Metrics.Recording.DurationSec, len(input.Metrics.Channels)))

	paragraph(clinical, "QEEG Analysis Findings:")
	for _, ch := range input.Metrics.Channels {
		paragraph(clinical, channelLine(ch))
	}

	if len(input.Metrics.Pairs) > 0 {
		paragraph(clinical, "\nConnectivity:")
		for _, p := range input.Metrics.Pairs {
			paragraph(clinical, pairLine(p))
		}
	}

	if len(input.Findings.Findings) > 0 {
		paragraph(clinical, fmt.Sprintf("\nInterpretation (norms: %s):", input.Findings.NormSource))
		for _, f := range input.Findings.Findings {
			paragraph(clinical, f.Clinical)
			paragraph(patient, f.Patient)
		}
	} else {
		paragraph(patient, "Your brain activity measurements were within the expected ranges.")
	}

	if len(input.Excerpts) > 0 {
		paragraph(clinical, "\nUploaded Lifestyle/Background/Localisation Info:")
		for _, ex := range input.Excerpts {
			paragraph(clinical, fmt.Sprintf("\n%s:\n%s...", ex.Name, truncate(ex.Text, excerptLen)))
		}
	}

	paragraph(clinical, "\nRecommended Interventions:\n- "+strings.Join(clinicalInterventions, "\n- "))
	paragraph(patient, "\nYour Recommendations:\n- "+strings.Join(patientRecommendations, "\n- "))

	embedCharts(clinical, charts)
	embedCharts(patient, charts)

	if err := clinical.OutputFileAndClose(filepath.Join(outDir, ClinicalReportName)); err != nil {
		return fmt.Errorf("writing clinical report: %w", err)
	}
	if err := patient.OutputFileAndClose(filepath.Join(outDir, PatientReportName)); err != nil {
		return fmt.Errorf("writing patient report: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// BatchResult holds the outcome of a batch report run.
type BatchResult struct {
	Generated int
	Skipped   int
	Failed    int
}

// Total returns the total number of recordings processed.
func (r BatchResult) Total() int {
	return r.Generated + r.Skipped + r.Failed
}

// HasFailures reports whether any report generation failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// GenerateFile renders the report pair for one metrics artifact into
// cfg.ReportsDir/[id]/. If the clinical report already exists it skips the
// recording. Findings are optional; document excerpts come from every
// extracted text artifact.
func GenerateFile(metricsPath string, cfg types.ReportConfig, w io.Writer) (skipped bool, err error) {
	id := strings.TrimSuffix(filepath.Base(metricsPath), "-metrics.yaml")
	outDir := filepath.Join(cfg.ReportsDir, id)

	if _, err := os.Stat(filepath.Join(outDir, ClinicalReportName)); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", id)
		return true, nil
	}

	input, err := loadInput(metricsPath, id, cfg)
	if err != nil {
		return false, err
	}

	if err := Generate(input, outDir, cfg.ExcerptLength); err != nil {
		return false, err
	}

	fmt.Fprintf(w, "generated: %s (%d findings, %d excerpts)\n", id, len(input.Findings.Findings), len(input.Excerpts))
	return false, nil
}

// GenerateBatch renders reports for every metrics artifact under
// cfg.RecordingsDir/metrics/.
func GenerateBatch(cfg types.ReportConfig, w io.Writer) (BatchResult, error) {
	metricsDir := filepath.Join(cfg.RecordingsDir, "metrics")
	entries, err := os.ReadDir(metricsDir)
	if err != nil {
		return BatchResult{}, fmt.Errorf("reading metrics directory %s: %w", metricsDir, err)
	}

	var result BatchResult
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "-metrics.yaml") {
			continue
		}

		skipped, err := GenerateFile(filepath.Join(metricsDir, entry.Name()), cfg, w)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed:  %s (%v)\n", entry.Name(), err)
			result.Failed++
		case skipped:
			result.Skipped++
		default:
			result.Generated++
		}
	}

	fmt.Fprintf(w, "\nBatch summary: %d generated, %d skipped, %d failed (total: %d)\n",
		result.Generated, result.Skipped, result.Failed, result.Total())
	return result, nil
}

func loadInput(metricsPath, id string, cfg types.ReportConfig) (Input, error) {
	var input Input

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		return input, fmt.Errorf("reading metrics artifact: %w", err)
	}
	if err := yaml.Unmarshal(data, &input.Metrics); err != nil {
		return input, fmt.Errorf("parsing metrics artifact: %w", err)
	}

	findingsPath := filepath.Join(cfg.AnalysisDir, "findings", id+"-findings.yaml")
	if data, err := os.ReadFile(findingsPath); err == nil {
		if err := yaml.Unmarshal(data, &input.Findings); err != nil {
			return input, fmt.Errorf("parsing findings artifact: %w", err)
		}
	}

	input.Excerpts, err = loadExcerpts(filepath.Join(cfg.DocumentsDir, "text"))
	if err != nil {
		return input, err
	}
	return input, nil
}

// loadExcerpts reads every extracted text artifact, frontmatter stripped.
// A missing text directory means no documents were uploaded.
func loadExcerpts(textDir string) ([]Excerpt, error) {
	entries, err := os.ReadDir(textDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading text directory %s: %w", textDir, err)
	}

	var excerpts []Excerpt
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(textDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading text artifact %s: %w", entry.Name(), err)
		}
		excerpts = append(excerpts, Excerpt{
			Name: strings.TrimSuffix(entry.Name(), ".txt"),
			Text: extract.StripFrontmatter(string(data)),
		})
	}
	return excerpts, nil
}
