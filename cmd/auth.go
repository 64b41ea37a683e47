package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/server"
	"github.com/desertthunder/crate/internal/shared"
)

// AuthLogin runs the PKCE authorization flow.
//
// The callback listener is bound before the browser is opened, so the redirect
// always finds it. The command then waits for the redirect, a server failure,
// or the timeout.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	handler := server.NewCallbackHandler(r.auth, r.config.CallbackPath(), r.logger)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	srv, err := server.StartCallbackServer(r.config.Server.Addr(), router, r.logger)
	if err != nil {
		return err
	}
	defer srv.Shutdown()

	r.logger.Info("waiting for authorization callback", "addr", srv.Addr(), "path", r.config.CallbackPath())

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	authURL, err := r.auth.BeginAuthorization(cmd.String("return-to"))
	if err != nil {
		if authURL == "" {
			return err
		}
		r.logger.Warn("failed to open browser automatically", "err", err)
		r.writePlainln("%s", r.palette.Warn("Could not open browser automatically."))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	result, err := srv.Await(ctx, handler, timeout)
	if err != nil {
		return err
	}

	r.writePlainln("%s", r.palette.OK("Authorization successful"))
	if result.ReturnPath != "" {
		r.writePlain("Returning to %s\n", result.ReturnPath)
	}
	return nil
}

// AuthLogout clears every stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	r.auth.Logout()
	return r.writePlain("%s\n", r.palette.OK("Logged out"))
}

// AuthStatus prints the credential state without token values.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	status := r.auth.Status()
	return r.emit(ctx, cmd, status, func() error {
		r.writePlainHeader("Spotify authorization")
		if status.LoggedIn {
			r.writePlain("Status: %s\n", r.palette.OK("logged in"))
		} else {
			r.writePlain("Status: %s\n", r.palette.Fail("not logged in"))
		}
		r.writePlain("State: %s\n", status.StateName)
		r.writePlain("Access token: %s\n", present(status.HasAccessToken))
		r.writePlain("Refresh token: %s\n", present(status.HasRefreshToken))
		if !status.ExpiresAt.IsZero() {
			label := "expires"
			if status.Expired {
				label = "expired"
			}
			r.writePlain("Token %s: %s\n", label, status.ExpiresAt.Local().Format(time.RFC1123))
		}
		r.writePlain("Storage: %s (%s)\n", r.config.Storage.Backend, present(status.StorageEnabled))
		if len(status.StoredFields) > 0 {
			r.writePlain("Stored fields: %s\n", strings.Join(status.StoredFields, ", "))
		}
		return nil
	})
}

// AuthToken prints a valid access token for use with other tools.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	if cmd.Bool("refresh") {
		if err := r.auth.Refresh(ctx); err != nil {
			return err
		}
	}

	token, ok := r.auth.EnsureValidToken(ctx)
	if !ok {
		return fmt.Errorf("%w: no valid access token", shared.ErrUnauthenticated)
	}
	return r.writePlain("%s\n", token)
}

func present(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
