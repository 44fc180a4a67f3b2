package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/lunastream/internal/formatter"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/urfave/cli/v3"
)

// SettingsGet prints every setting, or the value of one key.
func (r *Runner) SettingsGet(ctx context.Context, cmd *cli.Command) error {
	settings, err := r.settings.Get()
	if err != nil {
		return err
	}

	fields := settingFields(settings)
	if key := strings.ToLower(cmd.StringArg("key")); key != "" {
		for _, f := range fields {
			if f[0] == key {
				return r.writePlain("%s\n", f[1])
			}
		}
		return fmt.Errorf("%w: unknown setting %q", shared.ErrInvalidArgument, key)
	}

	if cmd.Bool("json") {
		return r.writeJSON(settings, cmd.Bool("pretty"))
	}
	for _, f := range fields {
		r.writePlain("%-14s %s\n", f[0], f[1])
	}
	return nil
}

// SettingsSet changes one setting. Players are checked against the embed table.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	key, value := strings.ToLower(cmd.StringArg("key")), cmd.StringArg("value")
	if key == "" || value == "" {
		return fmt.Errorf("%w: key and value", shared.ErrMissingArgument)
	}
	if key == "player" {
		if _, ok := formatter.LookupPlayer(models.KindMovie, value); !ok {
			return fmt.Errorf("%w: %q (see 'luna players')", shared.ErrUnknownPlayer, value)
		}
	}

	if _, err := r.settings.Set(key, value); err != nil {
		return err
	}
	return r.writePlain("✓ %s updated\n", key)
}

func settingFields(s models.Settings) [][2]string {
	return [][2]string{
		{"play_trailers", fmt.Sprint(s.PlayTrailers)},
		{"show_intro", fmt.Sprint(s.ShowIntro)},
		{"player", s.Player},
		{"accent_color", s.AccentColor},
	}
}
