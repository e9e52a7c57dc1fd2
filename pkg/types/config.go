package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "qeeg-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AnalysisConfig holds settings for the recording analysis stage.
type AnalysisConfig struct {
	// RecordingsDir is the base directory for recordings (contains raw/, metrics/).
	RecordingsDir string `json:"recordings_dir" yaml:"recordings_dir"`

	// SampleRate is the sample rate in Hz assumed for CSV recordings.
	// EDF recordings carry their own per-signal rates. Default 256.
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"`

	// WindowSec is the Welch segment length in seconds (default 2).
	WindowSec float64 `json:"window_sec" yaml:"window_sec"`

	// LowCut and HighCut bound the bandpass filter in Hz (defaults 1 and 45).
	LowCut  float64 `json:"low_cut" yaml:"low_cut"`
	HighCut float64 `json:"high_cut" yaml:"high_cut"`

	// Pairs lists channel pairs for coherence and phase-lag estimation,
	// as "A-B" strings (e.g. "F3-F4"). Empty means homologous pairs
	// present in the recording.
	Pairs []string `json:"pairs,omitempty" yaml:"pairs,omitempty"`
}

// ExtractionConfig holds settings for the document text extraction stage.
type ExtractionConfig struct {
	// DocumentsDir is the base directory for documents (contains raw/, text/).
	DocumentsDir string `json:"documents_dir" yaml:"documents_dir"`

	// OCRLanguage is the Tesseract language string for image OCR
	// (e.g. "eng", "eng+fra"). Default "eng".
	OCRLanguage string `json:"ocr_language" yaml:"ocr_language"`
}

// InterpretConfig holds settings for the interpretation stage.
type InterpretConfig struct {
	// RecordingsDir is the base directory for recordings (contains metrics/).
	RecordingsDir string `json:"recordings_dir" yaml:"recordings_dir"`

	// AnalysisDir is the base directory for analysis output (contains findings/).
	AnalysisDir string `json:"analysis_dir" yaml:"analysis_dir"`

	// NormsDir is the directory holding normative datasets.
	NormsDir string `json:"norms_dir" yaml:"norms_dir"`

	// ZThreshold is the |z| at which a deviation becomes a finding (default 1.96).
	ZThreshold float64 `json:"z_threshold" yaml:"z_threshold"`

	// RelativeThreshold flags a band when no norm covers it and relative
	// power exceeds this fraction (default 0.3).
	RelativeThreshold float64 `json:"relative_threshold" yaml:"relative_threshold"`
}

// ReportConfig holds settings for the report generation stage.
type ReportConfig struct {
	// RecordingsDir is the base directory for recordings (contains metrics/).
	RecordingsDir string `json:"recordings_dir" yaml:"recordings_dir"`

	// AnalysisDir is the base directory for analysis output (contains findings/).
	AnalysisDir string `json:"analysis_dir" yaml:"analysis_dir"`

	// DocumentsDir is the base directory for documents (contains text/).
	DocumentsDir string `json:"documents_dir" yaml:"documents_dir"`

	// ReportsDir is the output directory for PDFs and charts.
	ReportsDir string `json:"reports_dir" yaml:"reports_dir"`

	// ExcerptLength is the number of characters of each extracted document
	// included in the clinical report (default 500).
	ExcerptLength int `json:"excerpt_length" yaml:"excerpt_length"`
}

// SessionConfig holds settings for the session store.
type SessionConfig struct {
	// AnalysisDir is the base directory for analysis (contains findings/, index/).
	AnalysisDir string `json:"analysis_dir" yaml:"analysis_dir"`

	// RecordingsDir is the base directory for recordings (contains metrics/).
	RecordingsDir string `json:"recordings_dir" yaml:"recordings_dir"`

	// DocumentsDir is the base directory for documents (contains text/).
	DocumentsDir string `json:"documents_dir" yaml:"documents_dir"`

	// SessionID attributes ingested documents to one recording session.
	// Empty attributes them to the whole tree.
	SessionID string `json:"session_id" yaml:"session_id"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// NormsConfig holds settings for normative dataset management.
type NormsConfig struct {
	HTTPConfig `yaml:",inline"`

	// NormsDir is the directory holding normative datasets.
	NormsDir string `json:"norms_dir" yaml:"norms_dir"`

	// DatasetURL is the download URL for the normative CSV dataset.
	DatasetURL string `json:"dataset_url" yaml:"dataset_url"`

	// APIKey, when non-empty, is sent as a bearer token to the dataset
	// provider. Usually loaded from .secrets/norms-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries bounds retry attempts on rate-limited downloads (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ServerConfig holds settings for the upload server.
type ServerConfig struct {
	// Addr is the listen address (default ":8417").
	Addr string `json:"addr" yaml:"addr"`

	// DataDir is the base directory for per-session working trees.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxUploadBytes caps the total size of a multipart upload (default 256 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// Token, when non-empty, requires Authorization: Bearer [token] on API
	// requests. Usually loaded from .secrets/server-token.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Analysis   AnalysisConfig   `json:"analysis" yaml:"analysis"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Interpret  InterpretConfig  `json:"interpret" yaml:"interpret"`
	Report     ReportConfig     `json:"report" yaml:"report"`
	Session    SessionConfig    `json:"session" yaml:"session"`
	Norms      NormsConfig      `json:"norms" yaml:"norms"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}
