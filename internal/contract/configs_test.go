package contract

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/ratingfit/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput mirrors the flag defaults of the run command.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Workers:          4,
		Output:           "text",
		Precision:        2,
		Color:            "yes",
		SourceBackend:    string(schema.SQLiteBackend),
		ModelBackend:     string(schema.SQLiteBackend),
		LogLevel:         "info",
		LogFormat:        "text",
		Season:           DefaultSeason,
		StatsDelimiter:   DefaultStatsDelimiter,
		Groups:           DefaultGroups,
		CanonicalVersion: DefaultCanonicalVersion,
		SalaryMarker:     DefaultSalaryMarker,
		Model:            string(schema.LogisticModel),
		MaxIter:          DefaultMaxIter,
		Tolerance:        DefaultTolerance,
		C:                DefaultC,
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "zero workers", mutate: func(in *ConfigRawInput) { in.Workers = 0 }, expectError: true},
		{name: "single group", mutate: func(in *ConfigRawInput) { in.Groups = 1 }, expectError: true},
		{name: "negative season", mutate: func(in *ConfigRawInput) { in.Season = -1 }, expectError: true},
		{name: "all seasons", mutate: func(in *ConfigRawInput) { in.Season = 0 }},
		{name: "blank canonical version", mutate: func(in *ConfigRawInput) { in.CanonicalVersion = "  " }, expectError: true},
		{name: "long salary marker", mutate: func(in *ConfigRawInput) { in.SalaryMarker = "US$" }, expectError: true},
		{name: "euro salary marker", mutate: func(in *ConfigRawInput) { in.SalaryMarker = "€" }},
		{name: "negative seed", mutate: func(in *ConfigRawInput) { in.Seed = -5 }, expectError: true},
		{name: "invalid model", mutate: func(in *ConfigRawInput) { in.Model = "forest" }, expectError: true},
		{name: "linear model", mutate: func(in *ConfigRawInput) { in.Model = "LINEAR" }},
		{name: "zero max iter", mutate: func(in *ConfigRawInput) { in.MaxIter = 0 }, expectError: true},
		{name: "zero tolerance", mutate: func(in *ConfigRawInput) { in.Tolerance = 0 }, expectError: true},
		{name: "negative c", mutate: func(in *ConfigRawInput) { in.C = -1 }, expectError: true},
		{name: "bad timeout", mutate: func(in *ConfigRawInput) { in.Timeout = "soon" }, expectError: true},
		{name: "precision too high", mutate: func(in *ConfigRawInput) { in.Precision = 4 }, expectError: true},
		{name: "invalid output format", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: true},
		{name: "parquet without file", mutate: func(in *ConfigRawInput) { in.Output = "parquet" }, expectError: true},
		{name: "invalid color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: true},
		{name: "invalid log level", mutate: func(in *ConfigRawInput) { in.LogLevel = "loud" }, expectError: true},
		{name: "only stats csv", mutate: func(in *ConfigRawInput) { in.StatsCSV = "stats.csv" }, expectError: true},
		{name: "long delimiter", mutate: func(in *ConfigRawInput) { in.StatsDelimiter = ";;" }, expectError: true},
		{name: "invalid source backend", mutate: func(in *ConfigRawInput) { in.SourceBackend = "oracle" }, expectError: true},
		{
			name:        "mysql model backend without connection string",
			mutate:      func(in *ConfigRawInput) { in.ModelBackend = string(schema.MySQLBackend) },
			expectError: true,
		},
		{
			name: "mysql model backend with connection string",
			mutate: func(in *ConfigRawInput) {
				in.ModelBackend = string(schema.MySQLBackend)
				in.ModelDBConnect = "user:pass@tcp(localhost:3306)/ratingfit"
			},
		},
		{
			name:        "postgresql source backend without connection string",
			mutate:      func(in *ConfigRawInput) { in.SourceBackend = string(schema.PostgreSQLBackend) },
			expectError: true,
		},
		{name: "none model backend", mutate: func(in *ConfigRawInput) { in.ModelBackend = string(schema.NoneBackend) }},
		{
			name: "shared sqlite file for models and analysis",
			mutate: func(in *ConfigRawInput) {
				in.AnalysisBackend = string(schema.SQLiteBackend)
				in.AnalysisDBConnect = "/tmp/shared.db"
				in.ModelDBConnect = "/tmp/shared.db"
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)

			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)

			if tt.expectError {
				assert.Error(t, err, "contract.ProcessAndValidate should return an error for %s", tt.name)
				return
			}
			require.NoError(t, err, "contract.ProcessAndValidate should not return an error for %s", tt.name)
			// Basic validation that config was populated
			assert.Equal(t, input.Groups, cfg.Groups)
			assert.Equal(t, input.Workers, cfg.Workers)
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	input := validInput()
	input.Timeout = "90s"
	input.Seed = 42
	input.StatsCSV = filepath.Join("data", "stats.csv")
	input.RatingsCSV = filepath.Join("data", "ratings.csv")

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, schema.DefaultDropColumns, cfg.DropColumns)
	assert.Equal(t, ';', cfg.StatsDelimiter)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, schema.LogisticModel, cfg.Model)
	assert.True(t, cfg.UseColors)
	assert.True(t, cfg.UseCSVSource())
	assert.Empty(t, cfg.AnalysisBackend)

	params := cfg.Params()
	assert.Equal(t, 4, params["groups"])
	assert.Equal(t, input.StatsCSV, params["stats_csv"])
	assert.NotContains(t, params, "source_backend")
}

func TestProcessAndValidateDropColumns(t *testing.T) {
	input := validInput()
	input.DropColumns = "Pos, Age,,Tm "

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, []string{"Pos", "Age", "Tm"}, cfg.DropColumns)
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Groups: 4, DropColumns: []string{"Pos"}}
	clone := cfg.Clone()
	clone.DropColumns[0] = "Age"
	clone.Groups = 6

	assert.Equal(t, "Pos", cfg.DropColumns[0])
	assert.Equal(t, 4, cfg.Groups)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{"sqlite empty", schema.SQLiteBackend, "", false},
		{"none", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "u:p@tcp(localhost:3306)/db", false},
		{"mysql missing tcp", schema.MySQLBackend, "u:p@localhost/db", true},
		{"mysql missing db", schema.MySQLBackend, "u:p@tcp(localhost:3306)", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost dbname=db", false},
		{"postgres missing host", schema.PostgreSQLBackend, "dbname=db", true},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn, "model-db-connect")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessProfilingConfig(t *testing.T) {
	var profile ProfileConfig
	require.NoError(t, ProcessProfilingConfig(&profile, ""))
	assert.False(t, profile.Enabled)

	require.NoError(t, ProcessProfilingConfig(&profile, "out/prof"))
	assert.True(t, profile.Enabled)
	assert.Equal(t, "out/prof", profile.Prefix)
}
