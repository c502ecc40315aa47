package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/gindecomp/internal/ctxlog"
	"github.com/specialistvlad/gindecomp/internal/schema"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *schema.Registry
	config   *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and the
// sealed schema registry.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg, err := schema.Load(ctx, cfg.SchemaPath)
	if err != nil {
		// A failure to load the schema table is a fatal startup error.
		panic(fmt.Errorf("failed to load schema registry: %w", err))
	}
	logger.Debug("Schema registry loaded.", "entries", reg.Len())

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
	}
}

// Registry returns the application's schema registry. This is primarily
// for testing.
func (a *App) Registry() *schema.Registry {
	return a.registry
}
