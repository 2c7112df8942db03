package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tellae/eqasim/internal/config"
	"github.com/tellae/eqasim/internal/ctxlog"
	"github.com/tellae/eqasim/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	cfg      *Config
	logger   *slog.Logger
	registry *registry.Registry
	document *config.Document
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Startup failures (unreadable document, invalid configuration, unknown run
// stages) are programmer or operator errors that leave nothing to run, so
// NewApp panics; the entrypoint recovers and reports them.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	doc, err := loader.Load(ctx, cfg.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	if issues := config.Validate(doc); len(issues) > 0 {
		panic(fmt.Errorf("invalid configuration %s:\n- %s", cfg.ConfigPath, strings.Join(issues, "\n- ")))
	}
	logger.Debug("Configuration loaded.", "path", doc.Path, "run", doc.Run)

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All stage modules registered.", "stages", reg.Len())

	// Every run entry must name a registered stage; report all typos at
	// once.
	if issues := reg.Missing(doc.Run); len(issues) > 0 {
		panic(fmt.Errorf("invalid run list in %s:\n- %s", cfg.ConfigPath, strings.Join(issues, "\n- ")))
	}

	return &App{
		outW:     outW,
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		document: doc,
	}
}

// Registry returns the application's registry. This is primarily for
// testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Document returns the loaded configuration document. This is primarily
// for testing.
func (a *App) Document() *config.Document {
	return a.document
}
