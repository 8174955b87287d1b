// Package logging provides structured logging for dropdash.
//
// This package wraps Go's standard log/slog package so that every
// component logs with the same handler and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("stream").Info("connected", "url", url)
package logging
