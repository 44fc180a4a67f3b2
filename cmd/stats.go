package main

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/urfave/cli/v3"
)

// StatsShow prints the server's usage counters.
func (r *Runner) StatsShow(ctx context.Context, cmd *cli.Command) error {
	if r.api == nil {
		return fmt.Errorf("%w: api not configured", shared.ErrMissingConfig)
	}
	stats, err := r.api.Statistics(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}
	r.writePlainHeader("Statistics")
	for _, name := range slices.Sorted(maps.Keys(stats)) {
		r.writePlain("%-16s %d\n", name, stats[name])
	}
	return nil
}

// StatsTrack records one usage event.
func (r *Runner) StatsTrack(ctx context.Context, cmd *cli.Command) error {
	if r.api == nil {
		return fmt.Errorf("%w: api not configured", shared.ErrMissingConfig)
	}
	event := models.TrackEvent(cmd.StringArg("event"))
	if _, err := event.Metric(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUnknownMetric, err)
	}
	if err := r.api.Track(ctx, event); err != nil {
		return err
	}
	return r.writePlain("✓ Tracked %s\n", event)
}
