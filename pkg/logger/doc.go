// Package logger provides the structured logging interface used across the
// collector.
//
// It wraps zerolog with:
//   - leveled logging (Debug, Info, Warn, Error, Fatal)
//   - immutable child loggers carrying fields
//   - colourised console output, optionally teed to a JSON log file
//   - a global logger for command wiring
//   - capture and no-op loggers for tests
//
// Basic usage:
//
//	err := logger.Initialize(&cfg.Logging, os.Stderr)
//	logger.WithField("endpoint", "EN").Info("Fetched records")
//
// The operator-facing action log (log.txt next to the data files) has a
// fixed format and is written by package storage, not by this package.
package logger
