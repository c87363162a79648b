package contract

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Supported log formats.
const (
	TextLogFormat = "text"
	JSONLogFormat = "json"
)

// logger is shared by the whole process. Output goes to stderr so that
// table, CSV and JSON results on stdout stay machine readable.
var logger = newLogger()

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return log
}

// ValidateLogSettings checks a log level and format pair.
func ValidateLogSettings(level, format string) error {
	if _, err := logrus.ParseLevel(strings.ToLower(level)); err != nil {
		return fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	switch strings.ToLower(format) {
	case TextLogFormat, JSONLogFormat:
		return nil
	default:
		return fmt.Errorf("invalid log format '%s'. must be text, json", format)
	}
}

// InitLogger configures the shared logger with the given level and format.
func InitLogger(level, format string) error {
	if err := ValidateLogSettings(level, format); err != nil {
		return err
	}
	lvl, _ := logrus.ParseLevel(strings.ToLower(level))
	logger.SetLevel(lvl)

	if strings.ToLower(format) == JSONLogFormat {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return nil
}

// SetLogOutput redirects the shared logger, mostly for tests.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Log returns the shared logger.
func Log() *logrus.Logger {
	return logger
}

// WithRun creates a log entry with run context.
func WithRun(runKey string) *logrus.Entry {
	return logger.WithField("run", runKey)
}

// WithGroup creates a log entry with group context.
func WithGroup(index int) *logrus.Entry {
	return logger.WithField("group", index)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	logger.WithError(err).Fatal(msg)
}

// LogWarn logs a warning message with its cause.
func LogWarn(msg string, err error) {
	logger.WithError(err).Warn(msg)
}
