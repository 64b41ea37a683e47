package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/store"
)

// Refresh exchanges the stored refresh token for a new access token.
//
// Without a refresh token, or when the token endpoint rejects it with 400, every
// credential is cleared and the user is logged out. Other failures leave the
// stored credentials untouched.
func (m *Manager) Refresh(ctx context.Context) error {
	rt, ok := m.store.Get(store.RefreshToken)
	if !ok {
		m.logger.Warn("no refresh token stored, logging out")
		m.Logout()
		return shared.ErrNoRefreshToken
	}

	m.setState(Refreshing)

	src := m.oauth.TokenSource(m.oauthContext(ctx), &oauth2.Token{RefreshToken: rt})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode == http.StatusBadRequest {
			m.logger.Error("refresh token rejected, logging out", "err", describeTokenError(err))
			m.Logout()
			return fmt.Errorf("%w: %s", shared.ErrRefreshRejected, describeTokenError(err))
		}

		m.logger.Error("token refresh failed", "err", describeTokenError(err))
		m.settle()
		return fmt.Errorf("%w: %s", shared.ErrRefreshFailed, describeTokenError(err))
	}

	m.storeToken(tok)
	m.setState(LoggedIn)
	m.publish()
	m.logger.Debug("access token refreshed")
	return nil
}

// EnsureValidToken returns a usable access token, refreshing once if the stored
// token is missing or within a minute of expiry. Refresh failures are logged and
// reported as absent.
func (m *Manager) EnsureValidToken(ctx context.Context) (string, bool) {
	if tok, ok := m.validToken(); ok {
		return tok, true
	}

	if _, ok := m.store.Get(store.AccessToken); ok {
		m.setState(Expired)
	}

	if err := m.Refresh(ctx); err != nil {
		m.logger.Warn("no valid access token", "err", err)
		return "", false
	}
	return m.store.Get(store.AccessToken)
}
