// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/neurova/qeeg-engine/pkg/types"
)

// QueryOptions holds parameters for session index queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over finding narratives.
	Query string

	// Session filters by recording ID.
	Session string

	// Channel filters by channel label.
	Channel string

	// Band filters by band name.
	Band types.Band

	// MinAbsZ keeps only findings with |z| at or above the threshold.
	MinAbsZ float64

	// MaxResults limits result count. Zero uses store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Session == "" && q.Channel == "" && q.Band == "" && q.MinAbsZ == 0
}

// QueryResult is a Finding with its session context.
type QueryResult struct {
	types.Finding
	SessionID  string `json:"session_id" yaml:"session_id"`
	NormSource string `json:"norm_source" yaml:"norm_source"`
}

// Retrieve queries the session index with optional full-text search and
// structured filters. Results are ranked by relevance for full-text
// queries or sorted by session, channel, band otherwise.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT f.session_id, f.channel, f.band, f.relative_power, f.z_score,
				f.direction, f.brodmann, f.clinical, f.patient, se.norm_source
			FROM findings_fts
			JOIN findings f ON f.rowid = findings_fts.rowid
			LEFT JOIN sessions se ON f.session_id = se.id
			WHERE findings_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT f.session_id, f.channel, f.band, f.relative_power, f.z_score,
				f.direction, f.brodmann, f.clinical, f.patient, se.norm_source
			FROM findings f
			LEFT JOIN sessions se ON f.session_id = se.id
			WHERE 1=1`)
	}

	if opts.Session != "" {
		qb.WriteString(` AND f.session_id = ?`)
		args = append(args, opts.Session)
	}
	if opts.Channel != "" {
		qb.WriteString(` AND f.channel = ?`)
		args = append(args, opts.Channel)
	}
	if opts.Band != "" {
		qb.WriteString(` AND f.band = ?`)
		args = append(args, string(opts.Band))
	}
	if opts.MinAbsZ > 0 {
		qb.WriteString(` AND abs(f.z_score) >= ?`)
		args = append(args, opts.MinAbsZ)
	}

	if useFTS {
		qb.WriteString(` ORDER BY findings_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY f.session_id, f.channel, f.band`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying session index: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr           QueryResult
			band         string
			direction    string
			brodmannJSON sql.NullString
			normSource   sql.NullString
		)

		if err := rows.Scan(
			&qr.SessionID, &qr.Channel, &band, &qr.RelativePower, &qr.ZScore,
			&direction, &brodmannJSON, &qr.Clinical, &qr.Patient, &normSource,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		qr.Band = types.Band(band)
		qr.Direction = types.Direction(direction)
		if brodmannJSON.Valid {
			json.Unmarshal([]byte(brodmannJSON.String), &qr.BrodmannAreas)
		}
		if normSource.Valid {
			qr.NormSource = normSource.String
		}

		results = append(results, qr)
	}

	return results, rows.Err()
}

// DocumentHit is a document matched by full-text search. SessionID is empty
// for documents ingested without a session association.
type DocumentHit struct {
	SessionID string             `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Name      string             `json:"name" yaml:"name"`
	Kind      types.DocumentKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Snippet   string             `json:"snippet" yaml:"snippet"`
}

// SearchDocuments runs a full-text query over extracted document text and
// returns matches with a highlighted snippet.
func (s *Store) SearchDocuments(ctx context.Context, query string, maxResults int) ([]DocumentHit, error) {
	if query == "" {
		return nil, fmt.Errorf("document search requires a query")
	}
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.session_id, d.name, d.kind, snippet(documents_fts, 0, '[', ']', '...', 12)
		FROM documents_fts
		JOIN documents d ON d.rowid = documents_fts.rowid
		WHERE documents_fts MATCH ?
		ORDER BY documents_fts.rank
		LIMIT ?`, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var hits []DocumentHit
	for rows.Next() {
		var (
			hit  DocumentHit
			kind sql.NullString
		)
		if err := rows.Scan(&hit.SessionID, &hit.Name, &kind, &hit.Snippet); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		hit.Kind = types.DocumentKind(kind.String)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// MetricRow is one ingested channel/band relative-power cell. ZScore is nil
// for cells no finding was raised for.
type MetricRow struct {
	SessionID     string     `json:"session_id" yaml:"session_id"`
	Channel       string     `json:"channel" yaml:"channel"`
	Band          types.Band `json:"band" yaml:"band"`
	RelativePower float64    `json:"relative_power" yaml:"relative_power"`
	ZScore        *float64   `json:"z_score,omitempty" yaml:"z_score,omitempty"`
}

// Metrics queries ingested channel metrics with the structured filters of
// opts. The full-text query does not apply; MinAbsZ matches only cells that
// carry a z-score. Rows are ordered by session, channel, band.
func (s *Store) Metrics(ctx context.Context, opts QueryOptions) ([]MetricRow, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT session_id, channel, band, relative_power, z_score
		FROM channel_metrics
		WHERE 1=1`)

	if opts.Session != "" {
		qb.WriteString(` AND session_id = ?`)
		args = append(args, opts.Session)
	}
	if opts.Channel != "" {
		qb.WriteString(` AND channel = ?`)
		args = append(args, opts.Channel)
	}
	if opts.Band != "" {
		qb.WriteString(` AND band = ?`)
		args = append(args, string(opts.Band))
	}
	if opts.MinAbsZ > 0 {
		qb.WriteString(` AND z_score IS NOT NULL AND abs(z_score) >= ?`)
		args = append(args, opts.MinAbsZ)
	}

	qb.WriteString(` ORDER BY session_id, channel, band LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying channel metrics: %w", err)
	}
	defer rows.Close()

	var results []MetricRow
	for rows.Next() {
		var (
			mr   MetricRow
			band string
			z    sql.NullFloat64
		)
		if err := rows.Scan(&mr.SessionID, &mr.Channel, &band, &mr.RelativePower, &z); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		mr.Band = types.Band(band)
		if z.Valid {
			v := z.Float64
			mr.ZScore = &v
		}
		results = append(results, mr)
	}
	return results, rows.Err()
}

// SessionInfo summarizes one indexed session.
type SessionInfo struct {
	ID          string    `json:"id" yaml:"id"`
	Format      string    `json:"format" yaml:"format"`
	StartTime   time.Time `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	DurationSec float64   `json:"duration_sec" yaml:"duration_sec"`
	Channels    []string  `json:"channels" yaml:"channels"`
	NormSource  string    `json:"norm_source" yaml:"norm_source"`
	Findings    int       `json:"findings" yaml:"findings"`
	MaxAbsZ     float64   `json:"max_abs_z" yaml:"max_abs_z"`
}

// Sessions lists every indexed session with finding counts, newest first.
func (s *Store) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT se.id, se.format, se.start_time, se.duration_sec, se.channels, se.norm_source,
			count(f.rowid), coalesce(max(abs(f.z_score)), 0)
		FROM sessions se
		LEFT JOIN findings f ON f.session_id = se.id
		GROUP BY se.id
		ORDER BY se.analyzed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var (
			info         SessionInfo
			format       sql.NullString
			startStr     sql.NullString
			duration     sql.NullFloat64
			channelsJSON sql.NullString
			normSource   sql.NullString
		)
		if err := rows.Scan(&info.ID, &format, &startStr, &duration, &channelsJSON,
			&normSource, &info.Findings, &info.MaxAbsZ); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		info.Format = format.String
		info.NormSource = normSource.String
		if duration.Valid {
			info.DurationSec = duration.Float64
		}
		if startStr.Valid && startStr.String != "" {
			if t, err := time.Parse(time.RFC3339, startStr.String); err == nil {
				info.StartTime = t
			}
		}
		if channelsJSON.Valid {
			json.Unmarshal([]byte(channelsJSON.String), &info.Channels)
		}

		infos = append(infos, info)
	}
	return infos, rows.Err()
}
