package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"weeklymix/internal/repositories"
)

// History lists past runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)
	runs, err := repo.List(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		return r.writePlainln("No runs recorded yet. Run 'weeklymix generate' first.")
	}

	for _, run := range runs {
		if err := r.writePlain("%s  %s  %3d tracks (%d/%d/%d)  %s\n",
			run.CreatedAt.Format("2006-01-02"),
			run.TargetWeek,
			run.Total(),
			run.AICount, run.AnchorCount, run.SearchCount,
			run.ID,
		); err != nil {
			return err
		}
	}
	return nil
}
