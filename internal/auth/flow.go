package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/store"
)

// BeginAuthorization starts the PKCE flow.
//
// It stores a fresh verifier, CSRF state, and returnPath, then navigates to the
// authorization URL. The URL is returned so callers can print it when the browser
// cannot be opened.
func (m *Manager) BeginAuthorization(returnPath string) (string, error) {
	if !m.store.Available() {
		return "", fmt.Errorf("%w: cannot persist PKCE state", shared.ErrStorageUnavailable)
	}

	verifier, err := randomString(m.random, verifierLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	state, err := randomString(m.random, stateLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	m.setState(Authorizing)
	m.store.Set(store.PKCEVerifier, verifier)
	m.store.Set(store.CSRFState, state)
	if returnPath != "" {
		m.store.Set(store.ReturnPath, returnPath)
	} else {
		m.store.Delete(store.ReturnPath)
	}

	authURL := m.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	m.setState(AwaitingCallback)
	m.logger.Debug("redirecting to authorization endpoint", "endpoint", m.oauth.Endpoint.AuthURL)

	if err := m.nav.Navigate(authURL); err != nil {
		return authURL, fmt.Errorf("failed to open authorization page: %w", err)
	}
	return authURL, nil
}

// CompleteCallback finishes the flow with the query parameters of the redirect.
//
// Validation failures return false without contacting the token endpoint. Whatever the
// outcome, the stored verifier and CSRF state are removed before returning.
func (m *Manager) CompleteCallback(ctx context.Context, query url.Values) (bool, error) {
	defer m.store.Delete(store.PKCEVerifier, store.CSRFState)

	if err := m.exchange(ctx, query); err != nil {
		m.logger.Error("authorization callback failed", "err", err)
		m.settle()
		return false, err
	}

	m.setState(LoggedIn)
	m.publish()
	m.logger.Info("authorization complete")
	return true, nil
}

func (m *Manager) exchange(ctx context.Context, query url.Values) error {
	if e := query.Get("error"); e != "" {
		return fmt.Errorf("%w: %s", shared.ErrAuthorizationDenied, e)
	}

	code, state := query.Get("code"), query.Get("state")
	if code == "" || state == "" {
		return shared.ErrMissingCallbackParams
	}

	stored, ok := m.store.Get(store.CSRFState)
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(state)) != 1 {
		return shared.ErrCSRFMismatch
	}

	verifier, ok := m.store.Get(store.PKCEVerifier)
	if !ok {
		return shared.ErrMissingPKCEState
	}

	tok, err := m.oauth.Exchange(m.oauthContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrTokenExchange, describeTokenError(err))
	}

	m.store.ClearAuthFields()
	m.storeToken(tok)
	return nil
}

// ConsumeReturnPath returns the path stored by BeginAuthorization and clears it.
// It defaults to the home path.
func (m *Manager) ConsumeReturnPath() string {
	p, ok := m.store.Get(store.ReturnPath)
	m.store.Delete(store.ReturnPath)
	if !ok {
		return m.homePath
	}
	return p
}

// describeTokenError summarizes x/oauth2 errors without echoing response bodies.
func describeTokenError(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		if re.ErrorCode != "" {
			return fmt.Sprintf("status %d: %s", status, re.ErrorCode)
		}
		return fmt.Sprintf("status %d", status)
	}
	return err.Error()
}
