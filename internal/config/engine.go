package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
)

// DefaultConfigPath is where flowrun looks for engine settings when no
// -config flag is given. A missing file at this path is not an error.
const DefaultConfigPath = "flowrun.json"

// EngineConfig holds the host-level settings of the dataflow engine. Every
// field is optional; the Get* methods supply defaults for omitted ones, so a
// partial file is always safe.
type EngineConfig struct {
	// Graph params
	MaxInFlightFrames *int    `json:"max_in_flight_frames,omitempty"`
	DefaultVerbosity  *string `json:"default_verbosity,omitempty"` // none|low|medium|high|max
	TimingEnabled     *bool   `json:"timing_enabled,omitempty"`

	// Output params
	ResultDB   *string `json:"result_db,omitempty"`
	OverlayDir *string `json:"overlay_dir,omitempty"`
	ReportFile *string `json:"report_file,omitempty"`

	// Logging
	LogLevel *string `json:"log_level,omitempty"` // ops|diag|trace
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

var verbosityNames = []string{"none", "low", "medium", "high", "max"}

var logLevels = []string{"ops", "diag", "trace"}

// EmptyEngineConfig returns an EngineConfig with all fields set to nil.
func EmptyEngineConfig() *EngineConfig {
	return &EngineConfig{}
}

// DefaultEngineConfig returns an EngineConfig with every field populated
// from the built-in defaults.
func DefaultEngineConfig() *EngineConfig {
	c := EmptyEngineConfig()
	return &EngineConfig{
		MaxInFlightFrames: ptrInt(c.GetMaxInFlightFrames()),
		DefaultVerbosity:  ptrString(c.GetDefaultVerbosity()),
		TimingEnabled:     ptrBool(c.GetTimingEnabled()),
		ResultDB:          ptrString(c.GetResultDB()),
		OverlayDir:        ptrString(c.GetOverlayDir()),
		ReportFile:        ptrString(c.GetReportFile()),
		LogLevel:          ptrString(c.GetLogLevel()),
	}
}

// LoadEngineConfig loads an EngineConfig from a JSON file.
// The file must have a .json extension and be under the max file size.
// Unknown keys are rejected so that typos do not silently fall back to
// defaults.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyEngineConfig()
	if err := json.Unmarshal(data, cfg, json.RejectUnknownMembers(true)); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it exists. A missing file yields the
// defaults; any other failure is returned.
func LoadOrDefault(path string) (*EngineConfig, error) {
	if _, err := os.Stat(filepath.Clean(path)); os.IsNotExist(err) {
		return EmptyEngineConfig(), nil
	}
	return LoadEngineConfig(path)
}

// Validate checks that the configuration values are valid.
func (c *EngineConfig) Validate() error {
	if c.MaxInFlightFrames != nil && *c.MaxInFlightFrames < 0 {
		return fmt.Errorf("max_in_flight_frames must be non-negative, got %d", *c.MaxInFlightFrames)
	}
	if c.DefaultVerbosity != nil && !oneOf(*c.DefaultVerbosity, verbosityNames) {
		return fmt.Errorf("default_verbosity must be one of %s, got %q", strings.Join(verbosityNames, "|"), *c.DefaultVerbosity)
	}
	if c.LogLevel != nil && !oneOf(*c.LogLevel, logLevels) {
		return fmt.Errorf("log_level must be one of %s, got %q", strings.Join(logLevels, "|"), *c.LogLevel)
	}
	if c.ResultDB != nil && strings.TrimSpace(*c.ResultDB) == "" {
		return fmt.Errorf("result_db must not be empty")
	}
	return nil
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// GetMaxInFlightFrames returns the max_in_flight_frames value or the default.
// Zero disables eviction of incomplete groups.
func (c *EngineConfig) GetMaxInFlightFrames() int {
	if c.MaxInFlightFrames == nil {
		return 8
	}
	return *c.MaxInFlightFrames
}

// GetDefaultVerbosity returns the default_verbosity value or the default.
func (c *EngineConfig) GetDefaultVerbosity() string {
	if c.DefaultVerbosity == nil {
		return "low"
	}
	return strings.ToLower(*c.DefaultVerbosity)
}

// GetTimingEnabled returns the timing_enabled value or the default.
func (c *EngineConfig) GetTimingEnabled() bool {
	if c.TimingEnabled == nil {
		return false
	}
	return *c.TimingEnabled
}

// GetResultDB returns the result_db value or the default.
func (c *EngineConfig) GetResultDB() string {
	if c.ResultDB == nil {
		return "flowrun.db"
	}
	return *c.ResultDB
}

// GetOverlayDir returns the overlay_dir value. Empty disables overlay output.
func (c *EngineConfig) GetOverlayDir() string {
	if c.OverlayDir == nil {
		return ""
	}
	return *c.OverlayDir
}

// GetReportFile returns the report_file value. Empty disables the report.
func (c *EngineConfig) GetReportFile() string {
	if c.ReportFile == nil {
		return ""
	}
	return *c.ReportFile
}

// GetLogLevel returns the log_level value or the default.
func (c *EngineConfig) GetLogLevel() string {
	if c.LogLevel == nil {
		return "ops"
	}
	return strings.ToLower(*c.LogLevel)
}
