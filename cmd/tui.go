package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lunastream/internal/localstore"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// TUI launches the interactive continue-watching and search UI.
//
// Device store files are watched so edits from other luna processes show up live. Settings changes reach the
// model through a settings subscription.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("%w: luna tui needs an interactive terminal", shared.ErrInvalidArgument)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := cmp.Or(cmd.String("log-file"), filepath.Join(r.deviceDir, "tui.log"))
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes := make(chan string, 8)
	model := ui.NewModel(ctx, ui.Options{
		Progress: r.progress,
		Catalog:  r.catalog,
		Settings: r.settings,
		Open:     r.open,
		Changes:  changes,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := r.settings.Subscribe(func(s models.Settings) { p.Send(ui.SettingsChangedMsg(s)) })
	defer unsubscribe()

	go func() {
		err := localstore.Watch(ctx, r.deviceDir, func(name string) {
			if name == localstore.SettingsFile {
				if _, err := r.settings.Reload(); err != nil {
					r.logger.Warn("failed to reload settings", "error", err)
				}
				return
			}
			select {
			case changes <- name:
			default:
			}
		})
		if err != nil {
			r.logger.Warn("live reload disabled", "error", err)
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
