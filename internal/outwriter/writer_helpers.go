package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/huangsam/ratingfit/internal/contract"
)

// writeWithFile runs write against the output file, or stdout when outputFile is empty.
// Writes to a file are logged with successMsg.
func writeWithFile(outputFile string, write func(io.Writer) error, successMsg string) error {
	out, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	toFile := out != os.Stdout
	if toFile {
		defer func() { _ = out.Close() }()
	}

	if err := write(out); err != nil {
		return err
	}
	if toFile {
		contract.Log().WithField("file", outputFile).Info(successMsg)
	}
	return nil
}

// writeJSON encodes data with two-space indentation.
func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader writes the header row, then lets writeRows fill in the records.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(cw); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// floatFormatter renders floats with the configured number of decimals.
func floatFormatter(precision int) func(float64) string {
	return func(v float64) string {
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
}
