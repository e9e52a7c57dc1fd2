// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neurova/qeeg-engine/internal/session"
	"github.com/neurova/qeeg-engine/pkg/types"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the session index (store, retrieve, export)",
	Long: `Session manages a local SQLite index built from findings artifacts and
extracted document text. Use subcommands to index sessions, query findings,
search documents, or export.`,
}

// --- store subcommand ---

var sessionStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest findings and document text into the session index",
	Long: `Store reads findings YAML from analysis/findings/ and text artifacts
from documents/text/, ingests them into a SQLite database with FTS5
indexing, and writes an export file. Unchanged artifacts are skipped on
subsequent runs.`,
	RunE: runSessionStore,
}

func runSessionStore(cmd *cobra.Command, args []string) error {
	store, err := session.NewStore(sessionConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d artifact(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- retrieve subcommand ---

var sessionRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query indexed findings with full-text search and filters",
	Long: `Retrieve searches finding narratives using FTS5 full-text search,
structured filters (session, channel, band, minimum |z|), or a combination
of both.

Use --documents to search extracted document text instead of findings, or
--metrics to list ingested channel metrics matching the filters.`,
	RunE: runSessionRetrieve,
}

func runSessionRetrieve(cmd *cobra.Command, args []string) error {
	store, err := session.NewStore(sessionConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	searchDocs, _ := cmd.Flags().GetBool("documents")
	showMetrics, _ := cmd.Flags().GetBool("metrics")
	opts := queryOptsFromFlags(cmd, args)

	if searchDocs {
		hits, err := store.SearchDocuments(context.Background(), opts.Query, opts.MaxResults)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		for _, hit := range hits {
			name := hit.Name
			if hit.SessionID != "" {
				name = hit.SessionID + "/" + name
			}
			fmt.Fprintf(os.Stdout, "%s: %s\n", name, hit.Snippet)
		}
		return nil
	}

	if showMetrics {
		rows, err := store.Metrics(context.Background(), opts)
		if err != nil {
			return err
		}
		return formatMetricsOutput(rows)
	}

	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --session, --channel, --band, or --min-z")
	}

	results, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(results, jsonOutput)
}

func formatRetrieveOutput(results []session.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-20s  %-8s  %-10s  %7s  %s\n",
		"Rank", "Session", "Channel", "Band", "Z", "Finding")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, r := range results {
		sessionID := r.SessionID
		if len(sessionID) > 20 {
			sessionID = sessionID[:17] + "..."
		}
		clinical := r.Clinical
		if len(clinical) > 50 {
			clinical = clinical[:47] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-20s  %-8s  %-10s  %+7.2f  %s\n",
			i+1, sessionID, r.Channel, r.Band, r.ZScore, clinical)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

func formatMetricsOutput(rows []session.MetricRow) error {
	if len(rows) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-8s  %-10s  %9s  %7s\n",
		"Session", "Channel", "Band", "Rel Power", "Z")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 62))

	for _, r := range rows {
		sessionID := r.SessionID
		if len(sessionID) > 20 {
			sessionID = sessionID[:17] + "..."
		}
		z := "      -"
		if r.ZScore != nil {
			z = fmt.Sprintf("%+7.2f", *r.ZScore)
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-8s  %-10s  %9.3f  %s\n",
			sessionID, r.Channel, r.Band, r.RelativePower, z)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(rows))
	return nil
}

// --- list subcommand ---

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed sessions with finding counts",
	RunE:  runSessionList,
}

func runSessionList(cmd *cobra.Command, args []string) error {
	store, err := session.NewStore(sessionConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.Sessions(context.Background())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No sessions indexed.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-30s  %-6s  %8s  %8s  %8s\n",
		"Session", "Format", "Duration", "Findings", "Max |z|")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 68))
	for _, info := range infos {
		fmt.Fprintf(os.Stdout, "%-30s  %-6s  %7.0fs  %8d  %8.2f\n",
			info.ID, info.Format, info.DurationSec, info.Findings, info.MaxAbsZ)
	}
	return nil
}

// --- export subcommand ---

var sessionExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the session index to YAML or JSON",
	Long: `Export writes the full session index (or a filtered subset) to
analysis/index/export.yaml or export.json. Supports the same filter flags
as retrieve for partial exports.`,
	RunE: runSessionExport,
}

func runSessionExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := session.NewStore(sessionConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to analysis/index/export.yaml")
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to analysis/index/export.json")
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func sessionConfig(cmd *cobra.Command) types.SessionConfig {
	analysisDir, _ := cmd.Flags().GetString("analysis-dir")
	recordingsDir, _ := cmd.Flags().GetString("recordings-dir")
	documentsDir, _ := cmd.Flags().GetString("documents-dir")
	sessionID, _ := cmd.Flags().GetString("session")
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.SessionConfig{
		AnalysisDir:   analysisDir,
		RecordingsDir: recordingsDir,
		DocumentsDir:  documentsDir,
		SessionID:     sessionID,
		MaxResults:    maxResults,
	}
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) session.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	sessionID, _ := cmd.Flags().GetString("session")
	channel, _ := cmd.Flags().GetString("channel")
	band, _ := cmd.Flags().GetString("band")
	minZ, _ := cmd.Flags().GetFloat64("min-z")
	limit, _ := cmd.Flags().GetInt("limit")

	return session.QueryOptions{
		Query:      queryText,
		Session:    sessionID,
		Channel:    channel,
		Band:       types.Band(band),
		MinAbsZ:    minZ,
		MaxResults: limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	sessionCmd.PersistentFlags().String("analysis-dir", "analysis", "base directory for analysis (contains findings/, index/)")
	sessionCmd.PersistentFlags().String("recordings-dir", "recordings", "base directory for recordings (contains metrics/)")
	sessionCmd.PersistentFlags().String("documents-dir", "documents", "base directory for documents (contains text/)")
	sessionCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	// Store flags.
	sessionStoreCmd.Flags().String("session", "", "attribute ingested documents to this recording session")

	// Retrieve flags.
	sessionRetrieveCmd.Flags().String("query", "", "full-text search query")
	sessionRetrieveCmd.Flags().String("session", "", "filter by recording ID")
	sessionRetrieveCmd.Flags().String("channel", "", "filter by channel label")
	sessionRetrieveCmd.Flags().String("band", "", "filter by band: Delta, Theta, Alpha, Beta, High Beta")
	sessionRetrieveCmd.Flags().Float64("min-z", 0, "keep findings with |z| at or above this value")
	sessionRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	sessionRetrieveCmd.Flags().Bool("documents", false, "search extracted document text instead of findings")
	sessionRetrieveCmd.Flags().Bool("metrics", false, "list ingested channel metrics matching the filters")
	sessionRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	sessionExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	sessionExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	sessionExportCmd.Flags().String("session", "", "filter by recording ID for partial export")
	sessionExportCmd.Flags().String("channel", "", "filter by channel for partial export")
	sessionExportCmd.Flags().String("band", "", "filter by band for partial export")
	sessionExportCmd.Flags().Float64("min-z", 0, "minimum |z| for partial export")
	sessionExportCmd.Flags().Int("limit", 0, "maximum findings to export (0 = all)")

	// Wire subcommands.
	sessionCmd.AddCommand(sessionStoreCmd)
	sessionCmd.AddCommand(sessionRetrieveCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionExportCmd)

	rootCmd.AddCommand(sessionCmd)
}
