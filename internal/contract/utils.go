package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/ratingfit/schema"
)

// Color variables for console output.
var (
	ExactColor = color.New(color.FgGreen, color.Bold) // ExactColor marks a perfect approximation.
	CloseColor = color.New(color.FgCyan)              // CloseColor marks an off-by-one approximation.
	OffColor   = color.New(color.FgYellow)            // OffColor marks a small miss.
	MissColor  = color.New(color.FgRed, color.Bold)   // MissColor marks a large miss.
)

// GetPlainLabel returns the plain text delta label for an approximation delta.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(delta int) string {
	return string(schema.GetDeltaLabel(delta))
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(delta int) string {
	text := schema.GetDeltaLabel(delta)

	switch text {
	case schema.ExactLabel:
		return ExactColor.Sprint(text)
	case schema.CloseLabel:
		return CloseColor.Sprint(text)
	case schema.OffLabel:
		return OffColor.Sprint(text)
	default: // "Miss"
		return MissColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

func homeDBPath(name string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(homeDir, name)
}

// GetSourceDBFilePath returns the path to the SQLite DB file for the source tables.
func GetSourceDBFilePath() string {
	return homeDBPath(".ratingfit_source.db")
}

// GetModelDBFilePath returns the path to the SQLite DB file for model snapshots.
func GetModelDBFilePath() string {
	return homeDBPath(".ratingfit_models.db")
}

// GetAnalysisDBFilePath returns the path to the SQLite DB file for analysis storage.
func GetAnalysisDBFilePath() string {
	return homeDBPath(".ratingfit_analysis.db")
}

// TruncateName truncates a player name to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so that at least one character survives next to the "...".
func TruncateName(name string, maxWidth int) string {
	runes := []rune(name)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return name
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// ModelKey returns the model store key for a group of a run.
func ModelKey(runKey string, group int) string {
	return fmt.Sprintf("%s/group-%d", runKey, group)
}
