package app

import (
	"io"
	"log/slog"

	"github.com/vk/optalg/internal/gen"
	"github.com/vk/optalg/internal/hclload"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle for one invocation.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   *hclload.Loader
	renderer *gen.Renderer
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		loader:   hclload.NewLoader(),
		renderer: &gen.Renderer{MaxStatementLen: cfg.MaxStatementLen},
	}
}
