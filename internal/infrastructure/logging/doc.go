// Package logging provides structured logging for the irrigation controller.
//
// It wraps log/slog so every component logs with the same handler and
// default fields (service, version).
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("cycle complete", "commands", 3)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
