package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}

// setupLogger installs the default slog logger. The zap formats route
// slog records through a zap core.
func (c *commands) setupLogger(ctx *cli.Context) error {
	level, err := parseLevel(ctx.String("log-level"))
	if err != nil {
		return err
	}

	var handler slog.Handler
	switch format := strings.ToLower(ctx.String("log-format")); format {
	case "text":
		handler = slog.NewTextHandler(ctx.App.ErrWriter, &slog.HandlerOptions{Level: level})
	case "json":
		handler = slog.NewJSONHandler(ctx.App.ErrWriter, &slog.HandlerOptions{Level: level})
	case "zap", "zap-dev":
		cfg := zap.NewProductionConfig()
		if format == "zap-dev" {
			cfg = zap.NewDevelopmentConfig()
		}
		var zl zapcore.Level
		if err := zl.UnmarshalText([]byte(level.String())); err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(zl)

		logger, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		c.zap = logger
		handler = zapslog.NewHandler(logger.Core())
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json, zap, zap-dev", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func (c *commands) syncLogger(*cli.Context) error {
	if c.zap != nil {
		// stderr cannot be synced on some platforms
		_ = c.zap.Sync()
	}
	return nil
}
