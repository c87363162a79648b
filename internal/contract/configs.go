package contract

import (
	"fmt"
	"maps"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/huangsam/ratingfit/schema"
)

// Default values for configuration.
const (
	DefaultGroups           = 4
	DefaultSeason           = 2020
	DefaultCanonicalVersion = "NBA2k20"
	DefaultSalaryMarker     = "$"
	DefaultStatsDelimiter   = ";"
	DefaultMaxIter          = 10000
	DefaultTolerance        = 1e-4
	DefaultC                = 1.0
	DefaultPrecision        = 2
	MaxPrecision            = 3
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for a pipeline run.
// This struct is the "final, validated" config.
type Config struct {
	// Join settings
	Season           int
	CanonicalVersion string
	SalaryMarker     string
	DropColumns      []string

	// Ensemble settings
	Groups    int
	Seed      uint64 // 0 means draw a fresh seed per run
	Model     schema.ModelKind
	MaxIter   int
	Tolerance float64
	C         float64 // Inverse regularization strength
	Workers   int
	Timeout   time.Duration // 0 disables the overall deadline

	// CSV sources; when both are set the source store is bypassed
	StatsCSV       string
	RatingsCSV     string
	StatsDelimiter rune

	// Output settings
	Output      schema.OutputMode
	OutputFile  string
	Precision   int
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool
	PlotFile    string
	MetricsFile string

	SourceBackend   schema.DatabaseBackend
	SourceDBConnect string // Please use env var as this is plaintext

	AnalysisBackend   schema.DatabaseBackend
	AnalysisDBConnect string // Please use env var as this is plaintext

	ModelBackend   schema.DatabaseBackend
	ModelDBConnect string // Please use env var as this is plaintext

	LogLevel  string
	LogFormat string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Workers           int    `mapstructure:"workers"`
	Output            string `mapstructure:"output"`
	OutputFile        string `mapstructure:"output-file"`
	Precision         int    `mapstructure:"precision"`
	Width             int    `mapstructure:"width"`
	Color             string `mapstructure:"color"`
	SourceBackend     string `mapstructure:"source-backend"`
	SourceDBConnect   string `mapstructure:"source-db-connect"`
	AnalysisBackend   string `mapstructure:"analysis-backend"`
	AnalysisDBConnect string `mapstructure:"analysis-db-connect"`
	ModelBackend      string `mapstructure:"model-backend"`
	ModelDBConnect    string `mapstructure:"model-db-connect"`
	LogLevel          string `mapstructure:"log-level"`
	LogFormat         string `mapstructure:"log-format"`
	Season            int    `mapstructure:"season"`
	StatsCSV          string `mapstructure:"stats-csv"`
	RatingsCSV        string `mapstructure:"ratings-csv"`
	StatsDelimiter    string `mapstructure:"stats-delimiter"`

	// --- Fields from runCmd.Flags() ---
	Groups           int     `mapstructure:"groups"`
	CanonicalVersion string  `mapstructure:"canonical-version"`
	SalaryMarker     string  `mapstructure:"salary-marker"`
	DropColumns      string  `mapstructure:"drop-columns"`
	Seed             int64   `mapstructure:"seed"`
	Model            string  `mapstructure:"model"`
	MaxIter          int     `mapstructure:"max-iter"`
	Tolerance        float64 `mapstructure:"tolerance"`
	C                float64 `mapstructure:"c"`
	Timeout          string  `mapstructure:"timeout"`
	PlotFile         string  `mapstructure:"plot-file"`
	MetricsFile      string  `mapstructure:"metrics-file"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.DropColumns != nil {
		clone.DropColumns = make([]string, len(c.DropColumns))
		copy(clone.DropColumns, c.DropColumns)
	}
	return &clone
}

// UseCSVSource reports whether the run reads CSV files instead of the source store.
func (c *Config) UseCSVSource() bool {
	return c.StatsCSV != "" && c.RatingsCSV != ""
}

// Params returns the run parameters recorded with every analysis run.
func (c *Config) Params() map[string]any {
	params := map[string]any{
		"groups":            c.Groups,
		"season":            c.Season,
		"canonical_version": c.CanonicalVersion,
		"model":             string(c.Model),
		"max_iter":          c.MaxIter,
		"tolerance":         c.Tolerance,
		"c":                 c.C,
		"workers":           c.Workers,
	}
	if c.UseCSVSource() {
		maps.Copy(params, map[string]any{"stats_csv": c.StatsCSV, "ratings_csv": c.RatingsCSV})
	} else {
		params["source_backend"] = string(c.SourceBackend)
	}
	return params
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processJoinSettings(cfg, input); err != nil {
		return err
	}
	if err := processEnsembleSettings(cfg, input); err != nil {
		return err
	}
	if err := processSources(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends. The flag name is used in error messages.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr, flag string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("%s is required when using %s backend", flag, backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("%s is required when using %s backend", flag, backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// parseBackend validates a backend name. An empty name is allowed when optional is set.
func parseBackend(raw, flag string, optional bool) (schema.DatabaseBackend, error) {
	backend := schema.DatabaseBackend(strings.ToLower(raw))
	if backend == "" && optional {
		return "", nil
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid %s '%s'. must be sqlite, mysql, postgresql, none", flag, raw)
	}
	return backend, nil
}

// validateBackendConfigs validates the source, analysis and model store configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	var err error

	// --- Source Backend Validation ---
	if cfg.SourceBackend, err = parseBackend(input.SourceBackend, "source-backend", false); err != nil {
		return err
	}
	cfg.SourceDBConnect = input.SourceDBConnect
	if err := ValidateDatabaseConnectionString(cfg.SourceBackend, cfg.SourceDBConnect, "source-db-connect"); err != nil {
		return err
	}

	// --- Model Backend Validation ---
	if cfg.ModelBackend, err = parseBackend(input.ModelBackend, "model-backend", false); err != nil {
		return err
	}
	cfg.ModelDBConnect = input.ModelDBConnect
	if err := ValidateDatabaseConnectionString(cfg.ModelBackend, cfg.ModelDBConnect, "model-db-connect"); err != nil {
		return err
	}

	// --- Analysis Backend Validation ---
	if cfg.AnalysisBackend, err = parseBackend(input.AnalysisBackend, "analysis-backend", true); err != nil {
		return err
	}
	if cfg.AnalysisBackend == "" {
		return nil
	}
	cfg.AnalysisDBConnect = input.AnalysisDBConnect
	if err := ValidateDatabaseConnectionString(cfg.AnalysisBackend, cfg.AnalysisDBConnect, "analysis-db-connect"); err != nil {
		return err
	}

	// Validate that model and analysis stores use different SQLite files
	if cfg.ModelBackend == schema.SQLiteBackend && cfg.AnalysisBackend == schema.SQLiteBackend {
		modelDBPath := cfg.ModelDBConnect
		if modelDBPath == "" {
			modelDBPath = GetModelDBFilePath()
		}
		analysisDBPath := cfg.AnalysisDBConnect
		if analysisDBPath == "" {
			analysisDBPath = GetAnalysisDBFilePath()
		}
		if modelDBPath == analysisDBPath {
			return fmt.Errorf("model and analysis storage must use different SQLite database files. Both resolve to %q", modelDBPath)
		}
	}

	return nil
}

// validateSimpleInputs processes and validates output and runtime fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.PlotFile = input.PlotFile
	cfg.MetricsFile = input.MetricsFile

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("--output-file is required for parquet output")
	}

	// --- 3. Logging Validation ---
	if err := ValidateLogSettings(input.LogLevel, input.LogFormat); err != nil {
		return err
	}
	cfg.LogLevel = strings.ToLower(input.LogLevel)
	cfg.LogFormat = strings.ToLower(input.LogFormat)

	return nil
}

// processJoinSettings validates the season, canonical version and column handling.
func processJoinSettings(cfg *Config, input *ConfigRawInput) error {
	if input.Season < 0 {
		return fmt.Errorf("season must be 0 (all seasons) or a year (received %d)", input.Season)
	}
	cfg.Season = input.Season

	cfg.CanonicalVersion = strings.TrimSpace(input.CanonicalVersion)
	if cfg.CanonicalVersion == "" {
		return fmt.Errorf("canonical-version must not be empty")
	}

	if utf8.RuneCountInString(input.SalaryMarker) != 1 {
		return fmt.Errorf("salary-marker must be a single character (received %q)", input.SalaryMarker)
	}
	cfg.SalaryMarker = input.SalaryMarker

	cfg.DropColumns = ParseColumnList(input.DropColumns)
	if len(cfg.DropColumns) == 0 {
		cfg.DropColumns = append([]string(nil), schema.DefaultDropColumns...)
	}
	return nil
}

// processEnsembleSettings validates the group count, estimator and solver settings.
func processEnsembleSettings(cfg *Config, input *ConfigRawInput) error {
	if input.Groups < 2 {
		return fmt.Errorf("groups must be at least 2 (received %d)", input.Groups)
	}
	cfg.Groups = input.Groups

	if input.Seed < 0 {
		return fmt.Errorf("seed must not be negative (received %d)", input.Seed)
	}
	cfg.Seed = uint64(input.Seed)

	cfg.Model = schema.ModelKind(strings.ToLower(input.Model))
	if _, ok := schema.ValidModelKinds[cfg.Model]; !ok {
		return fmt.Errorf("invalid model '%s'. must be logistic, linear", input.Model)
	}

	if input.MaxIter <= 0 {
		return fmt.Errorf("max-iter must be greater than 0 (received %d)", input.MaxIter)
	}
	cfg.MaxIter = input.MaxIter

	if input.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be greater than 0 (received %g)", input.Tolerance)
	}
	cfg.Tolerance = input.Tolerance

	if input.C <= 0 {
		return fmt.Errorf("c must be greater than 0 (received %g)", input.C)
	}
	cfg.C = input.C

	cfg.Timeout = 0
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout value: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("timeout must not be negative (received %s)", d)
		}
		cfg.Timeout = d
	}
	return nil
}

// processSources validates the CSV source settings.
func processSources(cfg *Config, input *ConfigRawInput) error {
	cfg.StatsCSV = input.StatsCSV
	cfg.RatingsCSV = input.RatingsCSV
	if (cfg.StatsCSV == "") != (cfg.RatingsCSV == "") {
		return fmt.Errorf("stats-csv and ratings-csv must be provided together")
	}

	delim := input.StatsDelimiter
	if delim == "" {
		delim = DefaultStatsDelimiter
	}
	if utf8.RuneCountInString(delim) != 1 {
		return fmt.Errorf("stats-delimiter must be a single character (received %q)", input.StatsDelimiter)
	}
	r, _ := utf8.DecodeRuneInString(delim)
	cfg.StatsDelimiter = r
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// ParseColumnList splits a comma-separated column list and drops blanks.
func ParseColumnList(s string) []string {
	var cols []string
	for p := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			cols = append(cols, trimmed)
		}
	}
	return cols
}
