package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/internal/parquet"
	"github.com/huangsam/ratingfit/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteRunResults outputs the final table of a run, dispatching based on the output format configured.
func WriteRunResults(report schema.RunReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := floatFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONResultsForRun(w, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResultsForRun(w, report.Table, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := parquet.WriteFinalTableParquet(report.Table, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		contract.Log().WithField("file", cfg.OutputFile).Info("Wrote Parquet")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunTable(report, cfg, fmtFloat, duration, w)
		}, "Wrote table")
	}
	return nil
}

// writeRunTable generates and writes the human-readable table.
func writeRunTable(report schema.RunReport, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration, writer io.Writer) error {
	table := tablewriter.NewWriter(writer)
	table.Header([]string{"Row", "Player", "Group", "Rating", "Approx", "Delta", "Salary", "Label"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	label := contract.GetPlainLabel
	if cfg.UseColors {
		label = contract.GetColorLabel
	}
	nameWidth := GetMaxTableNameWidth(cfg)

	data := make([][]string, 0, len(report.Table.Rows))
	for i, r := range report.Table.Rows {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncateName(r.Player, nameWidth),
			strconv.Itoa(r.GroupIndex),
			strconv.Itoa(r.Rating),
			strconv.Itoa(r.ApproxRating),
			fmt.Sprintf("%+d", r.Delta()),
			fmtFloat(r.Salary),
			label(r.Delta()),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	ev := report.Evaluation
	if _, err := fmt.Fprintf(writer, "Scored %d players across %d groups (exact: %d, within one: %d)\n",
		ev.Rows, len(report.Groups), ev.Exact, ev.WithinOne); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "Accuracy %s, MAE %s, RMSE %s, Pearson %s\n",
		fmtFloat(ev.Accuracy), fmtFloat(ev.MAE), fmtFloat(ev.RMSE), fmtFloat(ev.Pearson)); err != nil {
		return err
	}
	j := report.Join
	if _, err := fmt.Fprintf(writer, "Joined %d of %d stats rows (%d mismatched, %d canonical picks)\n",
		j.Joined, j.StatsRows, len(j.Mismatches), j.CanonicalPicks); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "Run %s completed in %v with %d workers. Model: %s, seed: %d\n",
		report.RunKey, duration, cfg.Workers, report.Model, report.Seed); err != nil {
		return err
	}
	return nil
}

// runCSVHeader is the column layout of the CSV final table.
var runCSVHeader = []string{"row", "player", "group", "rating", "approx_rating", "delta", "salary", "label"}

// writeCSVResultsForRun writes the final table in CSV format.
func writeCSVResultsForRun(w io.Writer, table schema.FinalTable, fmtFloat func(float64) string) error {
	return writeCSVWithHeader(w, runCSVHeader, func(cw *csv.Writer) error {
		for i, r := range table.Rows {
			rec := []string{
				strconv.Itoa(i + 1),
				r.Player,
				strconv.Itoa(r.GroupIndex),
				strconv.Itoa(r.Rating),
				strconv.Itoa(r.ApproxRating),
				strconv.Itoa(r.Delta()),
				fmtFloat(r.Salary),
				contract.GetPlainLabel(r.Delta()),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeJSONResultsForRun writes the whole run report in JSON format.
func writeJSONResultsForRun(w io.Writer, report schema.RunReport) error {
	if report.Table.Rows == nil {
		report.Table.Rows = []schema.ScoredRow{}
	}
	if report.Join.Mismatches == nil {
		report.Join.Mismatches = []schema.Mismatch{}
	}
	return writeJSON(w, report)
}
