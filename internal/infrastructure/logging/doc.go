// Package logging provides structured logging for mazerunner.
//
// It wraps log/slog with JSON or text output, level filtering and the
// default fields service=mazerunner and version on every entry.
//
// Configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("joined lobby", "lobby", cfg.Game.Lobby)
//
// Never log broker passwords or InfluxDB tokens.
package logging
