package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"weeklymix/internal/services"
	"weeklymix/internal/shared"
)

// Auth verifies that the configured refresh token works and carries every
// required scope.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("url") {
		svc, err := services.NewSpotifyService(r.config.Credentials.Spotify, nil, r.logger)
		if err != nil {
			return err
		}
		return r.writePlainln("%s", svc.AuthorizeURL())
	}

	if r.music == nil {
		return fmt.Errorf("%w: Spotify credentials not configured", shared.ErrServiceUnavailable)
	}

	if err := r.music.Authenticate(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	user, err := r.music.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	r.logger.Info("authenticated", "user", user.ID)
	return r.writePlainln("Authenticated as %s. Scopes OK: %s", name, strings.Join(services.RequiredScopes, ", "))
}
