// Package logger builds slog loggers from environment-driven settings.
//
// It wraps the standard library handlers with a small option surface so
// services can pick the encoding, level, and static attributes in one call:
//
//	log := logger.New(
//		logger.WithFormat(logger.FormatText),
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithAttrs(slog.String("service", "flags-api")),
//	)
package logger
