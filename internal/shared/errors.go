package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Credential storage errors
	ErrStorageUnavailable = fmt.Errorf("credential storage unavailable")

	// Authorization flow errors
	ErrAuthorizationDenied   = fmt.Errorf("authorization denied")
	ErrMissingCallbackParams = fmt.Errorf("callback is missing code or state")
	ErrCSRFMismatch          = fmt.Errorf("state does not match stored value")
	ErrMissingPKCEState      = fmt.Errorf("no stored PKCE verifier")
	ErrTokenExchange         = fmt.Errorf("token exchange failed")
	ErrTimeout               = fmt.Errorf("operation timed out")

	// Token refresh errors
	ErrNoRefreshToken  = fmt.Errorf("no refresh token available")
	ErrRefreshRejected = fmt.Errorf("refresh token rejected")
	ErrRefreshFailed   = fmt.Errorf("token refresh failed")

	// API errors
	ErrUnauthenticated      = fmt.Errorf("not authenticated")
	ErrAuthorizationInvalid = fmt.Errorf("authorization is no longer valid")
	ErrPermissionDenied     = fmt.Errorf("permission denied")
	ErrRateLimited          = fmt.Errorf("rate limited")
	ErrRequestFailed        = fmt.Errorf("API request failed")
	ErrMalformedResponse    = fmt.Errorf("malformed response")

	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
