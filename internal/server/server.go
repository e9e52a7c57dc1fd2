// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the report pipeline over HTTP: clients upload a
// recording plus supporting documents and download the generated PDFs.
// Each upload gets its own working tree under the server data directory.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/neurova/qeeg-engine/internal/extract"
	"github.com/neurova/qeeg-engine/internal/qeeg"
	"github.com/neurova/qeeg-engine/internal/report"
	"github.com/neurova/qeeg-engine/pkg/types"
)

const (
	defaultAddr           = ":8417"
	defaultMaxUploadBytes = 256 << 20

	shutdownTimeout = 5 * time.Second
)

// Server runs the upload API.
type Server struct {
	cfg  types.PipelineConfig
	log  *logrus.Logger
	http *http.Server
}

// New builds a Server from the pipeline configuration. Stage settings
// (sample rate, thresholds, OCR language) apply to every uploaded session;
// stage directories are re-rooted into each session's working tree.
func New(cfg types.PipelineConfig, log *logrus.Logger) *Server {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = defaultMaxUploadBytes
	}

	s := &Server{cfg: cfg, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/sessions", s.auth(s.handleCreateSession))
	mux.HandleFunc("GET /api/sessions/{id}/clinical.pdf", s.auth(s.handleReport(report.ClinicalReportName)))
	mux.HandleFunc("GET /api/sessions/{id}/patient.pdf", s.auth(s.handleReport(report.PatientReportName)))

	s.http = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.http.Addr).Info("upload server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down upload server")
	return s.http.Shutdown(shutdownCtx)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond).String(),
		}).Info("request")
	})
}

// auth enforces bearer-token authentication when a token is configured.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.Token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != s.cfg.Server.Token {
				s.writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionResponse is the JSON body returned for a completed upload.
type sessionResponse struct {
	SessionID  string `json:"session_id"`
	Recordings int    `json:"recordings"`
	Documents  int    `json:"documents"`
	Findings   int    `json:"findings"`
	Clinical   string `json:"clinical_report_url"`
	Patient    string `json:"patient_report_url"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parsing upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	id := uuid.New().String()
	sessionDir := filepath.Join(s.cfg.Server.DataDir, id)

	recordings, documents, err := s.saveUploads(r, sessionDir)
	if err != nil {
		os.RemoveAll(sessionDir)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if recordings == 0 {
		os.RemoveAll(sessionDir)
		s.writeError(w, http.StatusBadRequest, "upload must include at least one .edf or .csv recording")
		return
	}

	findings, err := s.runPipeline(sessionDir)
	if err != nil {
		s.log.WithError(err).WithField("session", id).Error("pipeline failed")
		s.writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	s.log.WithFields(logrus.Fields{
		"session":    id,
		"recordings": recordings,
		"documents":  documents,
		"findings":   findings,
	}).Info("session processed")

	s.writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:  id,
		Recordings: recordings,
		Documents:  documents,
		Findings:   findings,
		Clinical:   fmt.Sprintf("/api/sessions/%s/clinical.pdf", id),
		Patient:    fmt.Sprintf("/api/sessions/%s/patient.pdf", id),
	})
}

// saveUploads writes multipart files into the session working tree.
// Recordings (.edf, or .csv in a "recording" field) go to recordings/raw/,
// documents to documents/raw/.
func (s *Server) saveUploads(r *http.Request, sessionDir string) (recordings, documents int, err error) {
	for field, headers := range r.MultipartForm.File {
		for _, header := range headers {
			name := filepath.Base(header.Filename)
			ext := strings.ToLower(filepath.Ext(name))

			var subdir string
			switch {
			case ext == ".edf":
				subdir = filepath.Join("recordings", "raw")
				recordings++
			case ext == ".csv" && field == "recording":
				subdir = filepath.Join("recordings", "raw")
				recordings++
			default:
				if _, ok := extract.KindForPath(name); !ok {
					return 0, 0, fmt.Errorf("unsupported file %q", name)
				}
				subdir = filepath.Join("documents", "raw")
				documents++
			}

			if err := saveUpload(header, filepath.Join(sessionDir, subdir, name)); err != nil {
				return 0, 0, err
			}
		}
	}
	return recordings, documents, nil
}

func saveUpload(header *multipart.FileHeader, dst string) error {
	src, err := header.Open()
	if err != nil {
		return fmt.Errorf("opening upload %q: %w", header.Filename, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating upload directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %q: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("writing %q: %w", dst, err)
	}
	return nil
}

// runPipeline executes analyze, extract, interpret, and report against one
// session working tree and returns the total finding count.
func (s *Server) runPipeline(sessionDir string) (int, error) {
	recordingsDir := filepath.Join(sessionDir, "recordings")
	documentsDir := filepath.Join(sessionDir, "documents")
	analysisDir := filepath.Join(sessionDir, "analysis")
	reportsDir := filepath.Join(sessionDir, "reports")

	out := s.log.WriterLevel(logrus.DebugLevel)
	defer out.Close()

	acfg := s.cfg.Analysis
	acfg.RecordingsDir = recordingsDir
	if result, err := qeeg.AnalyzeBatch(acfg, out); err != nil {
		return 0, fmt.Errorf("analyze: %w", err)
	} else if result.Analyzed == 0 {
		return 0, fmt.Errorf("no recording could be analyzed")
	}

	ecfg := s.cfg.Extraction
	ecfg.DocumentsDir = documentsDir
	if _, err := os.Stat(filepath.Join(documentsDir, "raw")); err == nil {
		result, err := extract.ExtractBatch(ecfg, out)
		if err != nil {
			return 0, fmt.Errorf("extract: %w", err)
		}
		// A document that cannot be extracted degrades the report but does
		// not fail the session.
		for _, doc := range result.Documents {
			if doc.Status == types.ExtractionFailed {
				s.log.WithFields(logrus.Fields{
					"document": doc.Name,
					"kind":     string(doc.Kind),
				}).Warn("document extraction failed")
			}
		}
	}

	icfg := s.cfg.Interpret
	icfg.RecordingsDir = recordingsDir
	icfg.AnalysisDir = analysisDir
	icfg.NormsDir = s.cfg.Norms.NormsDir
	if _, err := qeeg.InterpretBatch(icfg, out); err != nil {
		return 0, fmt.Errorf("interpret: %w", err)
	}

	rcfg := s.cfg.Report
	rcfg.RecordingsDir = recordingsDir
	rcfg.AnalysisDir = analysisDir
	rcfg.DocumentsDir = documentsDir
	rcfg.ReportsDir = reportsDir
	if result, err := report.GenerateBatch(rcfg, out); err != nil {
		return 0, fmt.Errorf("report: %w", err)
	} else if result.Generated == 0 {
		return 0, fmt.Errorf("no report could be generated")
	}

	return countFindings(filepath.Join(analysisDir, "findings"))
}

func countFindings(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading findings directory: %w", err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "-findings.yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		var ff types.FindingsFile
		if err := yaml.Unmarshal(data, &ff); err != nil {
			return 0, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		total += len(ff.Findings)
	}
	return total, nil
}

// handleReport serves a generated PDF. Sessions hold one report pair per
// recording; the first pair found is served.
func (s *Server) handleReport(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := uuid.Parse(id); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid session id")
			return
		}

		path, err := findReport(filepath.Join(s.cfg.Server.DataDir, id, "reports"), name)
		if err != nil {
			s.writeError(w, http.StatusNotFound, "report not found")
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		http.ServeFile(w, r, path)
	}
}

// findReport locates the named PDF in the per-recording subdirectories of
// a session's reports tree.
func findReport(reportsDir, name string) (string, error) {
	entries, err := os.ReadDir(reportsDir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(reportsDir, entry.Name(), name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", os.ErrNotExist
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("writing response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
