package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"weeklymix/internal/repositories"
	"weeklymix/internal/shared"
	"weeklymix/internal/tasks"
	"weeklymix/internal/ui"
)

// Preview launches the interactive TUI: build the mix, browse it, and publish
// on confirmation.
func (r *Runner) Preview(ctx context.Context, cmd *cli.Command) error {
	var store tasks.RunStore
	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("run history disabled", "err", err)
	} else {
		defer db.Close()
		store = repositories.NewRunRepository(db)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/weeklymix-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	engine, err := r.buildEngine(store, engineOpts{withArtwork: true})
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, engine)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return model.Err()
}
