package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"weeklymix/internal/formatter"
	"weeklymix/internal/repositories"
	"weeklymix/internal/shared"
)

// Export renders a past run in the requested format, to a file or stdout.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)

	runID := cmd.String("id")
	if runID == "" {
		runs, err := repo.List(ctx, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("%w: no runs recorded yet", shared.ErrInvalidInput)
		}
		runID = runs[0].ID
	}

	run, err := repo.Get(ctx, runID)
	if err != nil {
		return err
	}
	tracks, err := repo.Tracks(ctx, runID)
	if err != nil {
		return err
	}

	data, err := formatter.Export(cmd.String("format"), run.MixSummary, tracks)
	if err != nil {
		return err
	}

	if outputPath := cmd.String("output"); outputPath != "" {
		if err := formatter.WriteFile(outputPath, data); err != nil {
			return err
		}
		r.logger.Info("run exported", "run", runID, "path", outputPath)
		return r.writePlainln("Exported run %s to %s", runID, outputPath)
	}

	return r.writePlain("%s", data)
}
