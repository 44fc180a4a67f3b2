package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/lunastream/internal/server"
	"github.com/desertthunder/lunastream/internal/services"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// NotificationsList prints the signed-in user's notifications, unread first.
func (r *Runner) NotificationsList(ctx context.Context, cmd *cli.Command) error {
	api, err := r.signedIn()
	if err != nil {
		return err
	}

	items, err := api.Notifications(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	unread, err := api.UnreadCount(ctx)
	if err != nil {
		return err
	}
	r.writePlainHeader(fmt.Sprintf("Notifications (%d unread)", unread))
	r.writeNotifications(items)
	return nil
}

// NotificationsRead marks one notification read.
func (r *Runner) NotificationsRead(ctx context.Context, cmd *cli.Command) error {
	api, err := r.signedIn()
	if err != nil {
		return err
	}
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: notification id", shared.ErrMissingArgument)
	}
	if err := api.MarkRead(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Marked %s read\n", id)
}

// NotificationsReadAll marks every notification read.
func (r *Runner) NotificationsReadAll(ctx context.Context, cmd *cli.Command) error {
	api, err := r.signedIn()
	if err != nil {
		return err
	}
	if err := api.MarkAllRead(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ All notifications marked read\n")
}

// AdminNotify publishes a notification.
func (r *Runner) AdminNotify(ctx context.Context, cmd *cli.Command) error {
	api, err := r.admin(cmd)
	if err != nil {
		return err
	}
	item, err := api.CreateNotification(ctx, cmd.String("title"), cmd.String("content"))
	if err != nil {
		return err
	}
	r.logger.Info("notification created", "id", item.ID)
	return r.writePlain("✓ Published %q (%s)\n", item.Title, item.ID)
}

// AdminNotifications lists every notification.
func (r *Runner) AdminNotifications(ctx context.Context, cmd *cli.Command) error {
	api, err := r.admin(cmd)
	if err != nil {
		return err
	}
	items, err := api.AdminNotifications(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}
	r.writePlainHeader(fmt.Sprintf("Notifications (%d)", len(items)))
	r.writeNotifications(items)
	return nil
}

// AdminDelete deletes a notification.
func (r *Runner) AdminDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: notification id", shared.ErrMissingArgument)
	}
	api, err := r.admin(cmd)
	if err != nil {
		return err
	}
	if err := api.DeleteNotification(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// AdminHashPassword prints a bcrypt hash for the server's admin_password_hash.
func (r *Runner) AdminHashPassword(ctx context.Context, cmd *cli.Command) error {
	password, err := r.password(cmd, true)
	if err != nil {
		return err
	}
	hash, err := server.HashPassword(password)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", hash)
}

func (r *Runner) signedIn() (*services.APIService, error) {
	if r.api == nil {
		return nil, fmt.Errorf("%w: api not configured", shared.ErrMissingConfig)
	}
	if !r.api.HasToken() {
		return nil, fmt.Errorf("%w: run 'luna auth login' first", shared.ErrNotAuthenticated)
	}
	return r.api, nil
}

func (r *Runner) admin(cmd *cli.Command) (*services.APIService, error) {
	if r.api == nil {
		return nil, fmt.Errorf("%w: api not configured", shared.ErrMissingConfig)
	}
	password, err := r.password(cmd, false)
	if err != nil {
		return nil, err
	}
	return r.api.WithAdminPassword(password), nil
}

// password returns --password, or prompts on the terminal without echo.
func (r *Runner) password(cmd *cli.Command, confirm bool) (string, error) {
	if p := cmd.String("password"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: pass --password or set LUNA_ADMIN_PASSWORD", shared.ErrMissingCredentials)
	}

	prompt := func(label string) (string, error) {
		fmt.Fprint(os.Stderr, label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	password, err := prompt("Admin password: ")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", fmt.Errorf("%w: empty password", shared.ErrInvalidInput)
	}
	if confirm {
		again, err := prompt("Confirm password: ")
		if err != nil {
			return "", err
		}
		if again != password {
			return "", fmt.Errorf("%w: passwords do not match", shared.ErrInvalidInput)
		}
	}
	return password, nil
}

func (r *Runner) writeNotifications(items []services.NotificationItem) {
	if len(items) == 0 {
		r.writePlain("Nothing here\n")
		return
	}
	for _, n := range items {
		marker := "●"
		if n.Read {
			marker = " "
		}
		r.writePlain("%s %s  %s  [%s]\n", marker, n.CreatedAt, n.Title, n.ID)
		if n.Content != "" {
			r.writePlain("    %s\n", n.Content)
		}
	}
}
