package iocache

import (
	"fmt"
	"io"
	"slices"

	"github.com/huangsam/ratingfit/schema"
)

const statusTimeFormat = "2006-01-02 15:04:05"

// PrintSourceStatus prints source store status information.
func PrintSourceStatus(w io.Writer, status schema.SourceStatus) {
	_, _ = fmt.Fprintf(w, "Source Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	for _, table := range []string{schema.StatsTableName, schema.RatingsTableName} {
		if n, ok := status.TableSizes[table]; ok {
			_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, n)
		} else {
			_, _ = fmt.Fprintf(w, "  %s: missing\n", table)
		}
	}
	_, _ = fmt.Fprintf(w, "Ready: %t\n", status.Ready())
}

// PrintModelStatus prints model store status information.
func PrintModelStatus(w io.Writer, status schema.ModelStoreStatus) {
	_, _ = fmt.Fprintf(w, "Model Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Models: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		_, _ = fmt.Fprintf(w, "Last Model: %s\n", status.LastEntryTime.Format(statusTimeFormat))
		_, _ = fmt.Fprintf(w, "Oldest Model: %s\n", status.OldestEntryTime.Format(statusTimeFormat))
	}
	_, _ = fmt.Fprintf(w, "Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintAnalysisStatus prints analysis status information.
func PrintAnalysisStatus(w io.Writer, status schema.AnalysisStatus) {
	_, _ = fmt.Fprintf(w, "Analysis Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(w, "Last Run ID: %d\n", status.LastRunID)
		_, _ = fmt.Fprintf(w, "Last Run Key: %s\n", status.LastRunKey)
		_, _ = fmt.Fprintf(w, "Last Run: %s\n", status.LastRunTime.Format(statusTimeFormat))
		_, _ = fmt.Fprintf(w, "Oldest Run: %s\n", status.OldestRunTime.Format(statusTimeFormat))
		_, _ = fmt.Fprintf(w, "Total Rows Scored: %d\n", status.TotalRowsScored)
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
