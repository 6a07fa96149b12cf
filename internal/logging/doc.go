// Package logging provides structured logging for the backup engine.
//
// # Overview
//
// The logging package provides a structured logging interface with support for:
//
//   - Multiple log levels (debug, info, warn, error)
//   - Text and JSON output formats
//   - Run ID tracking, so every line a single backup or restore emits
//     can be grepped out of a shared log
//   - Field-based contextual logging
//
// # Creating a Logger
//
// Create a logger with configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/pg_arman/pg_arman.log",
//	})
//
// Or use defaults:
//
//	logger := logging.NewDefault() // Info level, text format, stdout
//
// For testing, use a no-op logger:
//
//	logger := logging.NewNop()
//
// # Log Levels
//
// Four log levels are supported:
//
//	logger.Debug("detailed debugging info", "key", "value")
//	logger.Info("informational message", "key", "value")
//	logger.Warn("warning message", "key", "value")
//	logger.Error("error message", "key", "value")
//
// Parse level from string:
//
//	level := logging.ParseLevel("debug") // Returns LevelDebug
//
// # Structured Logging
//
// Add key-value pairs to log entries:
//
//	logger.Info("segment archived",
//	    "segment", "000000010000000000000005",
//	    "bytes", 16777216,
//	)
//
// Output (JSON format):
//
//	{
//	    "ts": "2026-02-18T10:30:00Z",
//	    "level": "info",
//	    "msg": "segment archived",
//	    "segment": "000000010000000000000005",
//	    "bytes": 16777216
//	}
//
// # Run ID Tracking
//
// Tag every log line from one backup run with its catalog ID:
//
//	runLogger := logger.WithRun(record.ID)
//	runLogger.Info("copy started") // Includes run_id field
//
// # Contextual Fields
//
// Create loggers with persistent fields:
//
//	fileLogger := logger.WithFields("relfilenode", node)
//
//	// All subsequent logs include these fields
//	fileLogger.Info("verbatim copy")
//	fileLogger.Info("copy complete")
//
// # Output Formats
//
// Text format (human-readable):
//
//	2026-02-18T10:30:00Z [info] segment archived segment=... bytes=16777216
//
// JSON format (machine-parseable):
//
//	{"ts":"2026-02-18T10:30:00Z","level":"info","msg":"segment archived",...}
//
// # Output Destinations
//
// Configure output destination:
//
//	logging.Config{Output: "stdout"}                  // Standard output
//	logging.Config{Output: "stderr"}                  // Standard error
//	logging.Config{Output: "/var/log/pg_arman.log"}   // File path
package logging
