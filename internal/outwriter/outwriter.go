// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the output formats and gives the core logic one call per artifact.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteRun prints the final table of a run using the configured output format.
func (ow *OutWriter) WriteRun(report schema.RunReport, cfg *contract.Config, duration time.Duration) error {
	return WriteRunResults(report, cfg, duration)
}

// WritePlot saves the rating scatter of a run when a plot file is configured.
func (ow *OutWriter) WritePlot(report schema.RunReport, cfg *contract.Config) error {
	if cfg.PlotFile == "" {
		return nil
	}
	return WriteRatingPlot(report.Table, cfg.PlotFile)
}
