package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for a store.
	DatabaseBackend string

	// ModelKind represents the estimator fitted per group.
	ModelKind string

	// DeltaLabel buckets the gap between approximate and true rating.
	DeltaLabel string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All model kinds supported.
const (
	LogisticModel ModelKind = "logistic" // default
	LinearModel   ModelKind = "linear"
)

// Delta labels used in table output.
const (
	ExactLabel DeltaLabel = "Exact"
	CloseLabel DeltaLabel = "Close"
	OffLabel   DeltaLabel = "Off"
	MissLabel  DeltaLabel = "Miss"
)

// Source table names, kept identical to the original data pipeline.
const (
	StatsTableName   = "stats_player"
	RatingsTableName = "stats_2k"
)

// Stats source key columns.
const (
	PlayerColumn = "Player"
	YearColumn   = "Year"
)

// Rating source columns.
const (
	FullNameColumn = "full_name"
	RatingColumn   = "rating"
	SalaryColumn   = "salary"
	VersionColumn  = "version"
)

// DefaultDropColumns lists the non-predictive metadata columns of the stats source.
var DefaultDropColumns = []string{
	"Pos", "Age", "Tm", "GS", "Year", "Pts Won", "Pts Max", "Share", "Team",
	"W", "L", "W/L%", "GB", "PS/G", "PA/G", "SRS",
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidModelKinds lists all valid model kinds.
var ValidModelKinds = map[ModelKind]struct{}{
	LogisticModel: {},
	LinearModel:   {},
}

// GetDeltaLabel buckets an absolute rating delta.
func GetDeltaLabel(delta int) DeltaLabel {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta == 0:
		return ExactLabel
	case delta <= 1:
		return CloseLabel
	case delta <= 3:
		return OffLabel
	default:
		return MissLabel
	}
}
