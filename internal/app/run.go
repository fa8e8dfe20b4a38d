package app

import (
	"context"
	"fmt"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/ctxlog"
	"github.com/vk/optalg/internal/gtx"
)

// Run executes the main application logic: populate a container from the
// configured inputs, then either write it to a container file or dump the
// statement listing to the output writer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	c := algebra.New()
	defer c.Close()

	if a.config.GTXIn != "" {
		a.logger.Debug("Importing container file.", "path", a.config.GTXIn)
		if err := gtx.ReadFile(ctx, c, a.config.GTXIn); err != nil {
			return fmt.Errorf("failed to import %s: %w", a.config.GTXIn, err)
		}
	}
	if a.config.DataPath != "" {
		a.logger.Debug("Loading data files.", "path", a.config.DataPath)
		if err := a.loader.Load(ctx, c, a.config.DataPath); err != nil {
			return fmt.Errorf("failed to load data: %w", err)
		}
	}

	symbols := c.Symbols()
	a.logger.Info("Container populated.", "symbols", len(symbols))

	if a.config.GTXOut != "" {
		if err := gtx.WriteFile(ctx, c, a.config.GTXOut); err != nil {
			return fmt.Errorf("failed to write %s: %w", a.config.GTXOut, err)
		}
		a.logger.Info("Container file written.", "path", a.config.GTXOut)
		return nil
	}

	for _, sym := range symbols {
		if decl := a.renderer.Declaration(sym); decl != "" {
			fmt.Fprintln(a.outW, decl)
		}
		for _, stmt := range a.renderer.Data(sym) {
			fmt.Fprintln(a.outW, stmt)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
