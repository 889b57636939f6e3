package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"weeklymix/internal/repositories"
	"weeklymix/internal/shared"
	"weeklymix/internal/tasks"
)

// Generate runs the weekly pipeline end to end: assemble the mix, reorder it,
// and publish the playlist. With --dry-run it stops after assembly and prints
// the plan.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	if cmd.IsSet("config") {
		loaded, err := shared.LoadConfig(cmd.String("config"))
		if err != nil {
			return err
		}
		r.config = loaded
	}

	var store tasks.RunStore
	if !cmd.Bool("no-history") && !cmd.Bool("dry-run") {
		db, err := r.openDatabase()
		if err != nil {
			r.logger.Warn("run history disabled", "err", err)
		} else {
			defer db.Close()
			store = repositories.NewRunRepository(db)
		}
	}

	if market := cmd.String("market"); market != "" {
		r.config.Playlist.Market = market
	}

	engine, err := r.buildEngine(store, engineOpts{
		withArtwork: !cmd.Bool("no-artwork"),
		seed:        cmd.Int("seed"),
		temperature: cmd.Float("temperature"),
	})
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.drainProgress(progress, done)

	if cmd.Bool("dry-run") {
		plan, err := engine.BuildPlan(ctx, progress)
		close(progress)
		<-done
		if err != nil {
			return err
		}
		return r.printPlan(plan, cmd.Bool("json"))
	}

	report, err := engine.Run(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}
	return r.printReport(report, cmd.Bool("json"))
}

func (r *Runner) printPlan(plan *tasks.MixPlan, asJSON bool) error {
	if asJSON {
		return r.writeJSON(map[string]any{
			"playlist_name": plan.PlaylistName,
			"source_week":   plan.SourceWeek,
			"target_week":   plan.TargetWeek,
			"collisions":    plan.Collisions,
			"summary":       plan.Summary(),
			"tracks":        plan.Tracks,
		}, true)
	}

	if err := r.writePlainln("%s (%s)", plan.PlaylistName, plan.TargetWeek); err != nil {
		return err
	}
	summary := plan.Summary()
	if err := r.writePlain("Tracks: %d (%d AI, %d anchor, %d search), %d adjacent same-artist pairs\n\n",
		summary.Total(), summary.AICount, summary.AnchorCount, summary.SearchCount, plan.Collisions); err != nil {
		return err
	}
	for _, track := range plan.Tracks {
		if err := r.writePlain("%3d. %s [%s]\n", track.Position, track.URI, track.Slot); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) printReport(report *tasks.MixReport, asJSON bool) error {
	if asJSON {
		return r.writeJSON(map[string]any{
			"playlist": report.Playlist,
			"summary":  report.Summary,
			"run_id":   report.RunID,
		}, true)
	}

	if err := r.writePlainln("Published %q with %d tracks (%s)",
		report.Playlist.Name, report.Summary.Total(), shared.VisibilityString(report.Playlist.Public)); err != nil {
		return err
	}
	if report.Playlist.URL != "" {
		if err := r.writePlain("%s\n", report.Playlist.URL); err != nil {
			return err
		}
	}
	if report.RunID != "" {
		return r.writePlain("Run saved as %s\n", report.RunID)
	}
	return nil
}
