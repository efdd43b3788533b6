package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"tc-cloud-server/internal/config"
)

func New(cfg config.Config, version string, appName string) *slog.Logger {
	if version == "dev" {
		// Seconds matter when eyeballing ingest timing, so not time.Kitchen.
		h := tint.NewHandler(os.Stdout, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.TimeOnly,
		})
		return slog.New(h).With("app", appName, "env", cfg.AppEnv)
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}
