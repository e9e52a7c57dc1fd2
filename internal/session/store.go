// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session persists analyzed recordings, findings, and extracted
// document text in a SQLite index for cross-session retrieval.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/neurova/qeeg-engine/internal/extract"
	"github.com/neurova/qeeg-engine/pkg/types"
)

const (
	findingsDir = "findings"
	indexDir    = "index"
	metricsDir  = "metrics"
	textDir     = "text"
	dbFile      = "qeeg.db"
)

// Store manages the session index SQLite database.
type Store struct {
	db            *sql.DB
	analysisDir   string
	recordingsDir string
	documentsDir  string
	sessionID     string
	maxResults    int
}

// NewStore opens or creates the session index at
// analysisDir/index/qeeg.db, creating the schema if needed.
func NewStore(cfg types.SessionConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.AnalysisDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:            db,
		analysisDir:   cfg.AnalysisDir,
		recordingsDir: cfg.RecordingsDir,
		documentsDir:  cfg.DocumentsDir,
		sessionID:     cfg.SessionID,
		maxResults:    maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			format TEXT,
			start_time TEXT,
			duration_sec REAL,
			channels TEXT,
			analyzed_at TEXT,
			norm_source TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			channel TEXT NOT NULL,
			band TEXT NOT NULL,
			relative_power REAL,
			z_score REAL,
			direction TEXT,
			brodmann TEXT,
			clinical TEXT NOT NULL,
			patient TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_session_id ON findings(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_channel ON findings(channel)`,
		`CREATE TABLE IF NOT EXISTS channel_metrics (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			channel TEXT NOT NULL,
			band TEXT NOT NULL,
			relative_power REAL,
			z_score REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_channel_metrics_session_id ON channel_metrics(session_id)`,
		`CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			kind TEXT,
			content TEXT NOT NULL,
			UNIQUE(session_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			artifact TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual tables with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='findings_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE findings_fts USING fts5(clinical, patient, content=findings, content_rowid=rowid)`,
			`CREATE TRIGGER findings_ai AFTER INSERT ON findings BEGIN
				INSERT INTO findings_fts(rowid, clinical, patient) VALUES (new.rowid, new.clinical, new.patient);
			END`,
			`CREATE TRIGGER findings_ad AFTER DELETE ON findings BEGIN
				INSERT INTO findings_fts(findings_fts, rowid, clinical, patient) VALUES('delete', old.rowid, old.clinical, old.patient);
			END`,
			`CREATE TRIGGER findings_au AFTER UPDATE ON findings BEGIN
				INSERT INTO findings_fts(findings_fts, rowid, clinical, patient) VALUES('delete', old.rowid, old.clinical, old.patient);
				INSERT INTO findings_fts(rowid, clinical, patient) VALUES (new.rowid, new.clinical, new.patient);
			END`,
			`CREATE VIRTUAL TABLE documents_fts USING fts5(content, content=documents, content_rowid=rowid)`,
			`CREATE TRIGGER documents_ai AFTER INSERT ON documents BEGIN
				INSERT INTO documents_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
			`CREATE TRIGGER documents_ad AFTER DELETE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, content) VALUES('delete', old.rowid, old.content);
			END`,
			`CREATE TRIGGER documents_au AFTER UPDATE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, content) VALUES('delete', old.rowid, old.content);
				INSERT INTO documents_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from a session index run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of artifacts processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads findings artifacts from analysisDir/findings/ and extracted
// text artifacts from documentsDir/text/ and populates the database. It
// detects new, changed, and unchanged files for incremental updates.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	fDir := filepath.Join(s.analysisDir, findingsDir)
	entries, err := os.ReadDir(fDir)
	if err != nil && !os.IsNotExist(err) {
		return summary, fmt.Errorf("reading findings directory %s: %w", fDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "-findings.yaml") {
			continue
		}
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}
		s.ingestFindingsEntry(ctx, fDir, entry, w, &summary)
	}

	tDir := filepath.Join(s.documentsDir, textDir)
	entries, err = os.ReadDir(tDir)
	if err != nil && !os.IsNotExist(err) {
		return summary, fmt.Errorf("reading text directory %s: %w", tDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}
		s.ingestDocumentEntry(ctx, tDir, entry, w, &summary)
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 {
		if err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

// modCheck returns the artifact's mod time and whether it is unchanged
// since the last ingest. isUpdate reports a previous ingest of the artifact.
func (s *Store) modCheck(ctx context.Context, entry os.DirEntry, key string) (modTime string, unchanged, isUpdate bool, err error) {
	info, err := entry.Info()
	if err != nil {
		return "", false, false, err
	}
	modTime = info.ModTime().UTC().Format(time.RFC3339Nano)

	var stored string
	err = s.db.QueryRowContext(ctx,
		`SELECT file_mod_time FROM indexing_status WHERE artifact = ?`, key,
	).Scan(&stored)
	if err == nil {
		return modTime, stored == modTime, true, nil
	}
	if err == sql.ErrNoRows {
		return modTime, false, false, nil
	}
	return "", false, false, err
}

func (s *Store) ingestFindingsEntry(ctx context.Context, dir string, entry os.DirEntry, w io.Writer, summary *IngestSummary) {
	sessionID := strings.TrimSuffix(entry.Name(), "-findings.yaml")

	modTime, unchanged, isUpdate, err := s.modCheck(ctx, entry, entry.Name())
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", sessionID, err)
		summary.Failed++
		return
	}
	if unchanged {
		fmt.Fprintf(w, "skipped %s\n", sessionID)
		summary.Skipped++
		return
	}

	data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", sessionID, err)
		summary.Failed++
		return
	}

	var ff types.FindingsFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		fmt.Fprintf(w, "failed  %s: parse error: %v\n", sessionID, err)
		summary.Failed++
		return
	}

	metrics := loadSessionMetrics(filepath.Join(s.recordingsDir, metricsDir), sessionID)

	if err := s.ingestSession(ctx, sessionID, &ff, metrics, entry.Name(), modTime, isUpdate); err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", sessionID, err)
		summary.Failed++
		return
	}

	if isUpdate {
		fmt.Fprintf(w, "updated %s (%d findings)\n", sessionID, len(ff.Findings))
		summary.Updated++
	} else {
		fmt.Fprintf(w, "indexing %s (%d findings)\n", sessionID, len(ff.Findings))
		summary.Indexed++
	}
}

func (s *Store) ingestDocumentEntry(ctx context.Context, dir string, entry os.DirEntry, w io.Writer, summary *IngestSummary) {
	name := strings.TrimSuffix(entry.Name(), ".txt")

	// Status keys carry the session so per-session trees sharing one index
	// do not shadow each other's documents.
	key := entry.Name()
	if s.sessionID != "" {
		key = s.sessionID + "/" + entry.Name()
	}

	modTime, unchanged, isUpdate, err := s.modCheck(ctx, entry, key)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", name, err)
		summary.Failed++
		return
	}
	if unchanged {
		fmt.Fprintf(w, "skipped %s\n", name)
		summary.Skipped++
		return
	}

	data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", name, err)
		summary.Failed++
		return
	}
	content := extract.StripFrontmatter(string(data))

	if err := s.ingestDocument(ctx, name, content, key, modTime); err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", name, err)
		summary.Failed++
		return
	}

	if isUpdate {
		fmt.Fprintf(w, "updated %s (%d chars)\n", name, len(content))
		summary.Updated++
	} else {
		fmt.Fprintf(w, "indexing %s (%d chars)\n", name, len(content))
		summary.Indexed++
	}
}

func (s *Store) ingestSession(ctx context.Context, sessionID string, ff *types.FindingsFile, metrics *types.MetricsFile, artifact, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Remove old findings and metrics if updating.
	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("deleting old findings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM channel_metrics WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("deleting old channel metrics: %w", err)
		}
	}

	// Upsert session record.
	if metrics != nil {
		channelsJSON, _ := json.Marshal(metrics.Recording.Channels)
		startStr := ""
		if !metrics.Recording.StartTime.IsZero() {
			startStr = metrics.Recording.StartTime.Format(time.RFC3339)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, format, start_time, duration_sec, channels, analyzed_at, norm_source)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				format=excluded.format, start_time=excluded.start_time,
				duration_sec=excluded.duration_sec, channels=excluded.channels,
				analyzed_at=excluded.analyzed_at, norm_source=excluded.norm_source`,
			sessionID, metrics.Recording.Format, startStr,
			metrics.Recording.DurationSec, string(channelsJSON),
			metrics.AnalyzedAt.Format(time.RFC3339), ff.NormSource,
		)
		if err != nil {
			return fmt.Errorf("upserting session: %w", err)
		}
	} else {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, norm_source) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET norm_source=excluded.norm_source`,
			sessionID, ff.NormSource,
		)
		if err != nil {
			return fmt.Errorf("inserting session stub: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (session_id, channel, band, relative_power, z_score, direction, brodmann, clinical, patient)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range ff.Findings {
		brodmannJSON, _ := json.Marshal(f.BrodmannAreas)
		_, err := stmt.ExecContext(ctx,
			sessionID, f.Channel, string(f.Band), f.RelativePower, f.ZScore,
			string(f.Direction), string(brodmannJSON), f.Clinical, f.Patient,
		)
		if err != nil {
			return fmt.Errorf("inserting finding %s/%s: %w", f.Channel, f.Band, err)
		}
	}

	if metrics != nil {
		if err := insertChannelMetrics(ctx, tx, sessionID, ff, metrics); err != nil {
			return err
		}
	}

	if err := setIndexingStatus(ctx, tx, artifact, modTime); err != nil {
		return err
	}
	return tx.Commit()
}

// insertChannelMetrics stores every channel/band relative-power cell from the
// metrics artifact. Cells a finding was raised for carry the finding's
// z-score; the rest are stored with a NULL z-score.
func insertChannelMetrics(ctx context.Context, tx *sql.Tx, sessionID string, ff *types.FindingsFile, metrics *types.MetricsFile) error {
	zByCell := make(map[[2]string]float64, len(ff.Findings))
	for _, f := range ff.Findings {
		zByCell[[2]string{f.Channel, string(f.Band)}] = f.ZScore
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO channel_metrics (session_id, channel, band, relative_power, z_score)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing metrics insert: %w", err)
	}
	defer stmt.Close()

	for _, cm := range metrics.Channels {
		for band, rel := range cm.RelativePower {
			var z sql.NullFloat64
			if v, ok := zByCell[[2]string{cm.Channel, string(band)}]; ok {
				z = sql.NullFloat64{Float64: v, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, sessionID, cm.Channel, string(band), rel, z); err != nil {
				return fmt.Errorf("inserting metrics %s/%s: %w", cm.Channel, band, err)
			}
		}
	}
	return nil
}

func (s *Store) ingestDocument(ctx context.Context, name, content, artifact, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	kind, _ := extract.KindForPath(name)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (session_id, name, kind, content) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, name) DO UPDATE SET kind=excluded.kind, content=excluded.content`,
		s.sessionID, name, string(kind), content,
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	if err := setIndexingStatus(ctx, tx, artifact, modTime); err != nil {
		return err
	}
	return tx.Commit()
}

func setIndexingStatus(ctx context.Context, tx *sql.Tx, artifact, modTime string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO indexing_status (artifact, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(artifact) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		artifact, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}
	return nil
}

// loadSessionMetrics reads a MetricsFile from metricsDir/[id]-metrics.yaml.
// Returns nil if the file does not exist or cannot be parsed.
func loadSessionMetrics(metricsDir, sessionID string) *types.MetricsFile {
	path := filepath.Join(metricsDir, sessionID+"-metrics.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var mf types.MetricsFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil
	}
	return &mf
}
