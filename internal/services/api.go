// Authenticated request executor for the Spotify Web API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/crate/internal/shared"
)

const (
	DefaultBaseURL           = "https://api.spotify.com/v1"
	DefaultMaxRetries        = 3
	DefaultRetryAfter        = 2 * time.Second
	DefaultPageDelay         = 100 * time.Millisecond
	defaultRequestTimeoutSec = 30
)

// TokenProvider supplies bearer tokens and is told when the API rejects them.
type TokenProvider interface {
	EnsureValidToken(ctx context.Context) (string, bool)
	Logout()
}

// APIError describes a failed API call. Unwrap returns the shared sentinel in Kind.
type APIError struct {
	Kind    error
	Status  int
	Message string
	Method  string
	URL     string
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Method != "" {
		fmt.Fprintf(&b, " [%s %s]", e.Method, e.URL)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Kind }

// errorEnvelope is the body Spotify returns alongside non-2xx statuses.
type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// ExecutorOptions tunes an Executor. Zero values use the package defaults.
type ExecutorOptions struct {
	MaxRetries        int
	DefaultRetryAfter time.Duration
	PageDelay         time.Duration
	Logger            *log.Logger
	// Sleep waits between retries and pages; it must return early when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExecutorOptionsFromConfig maps the [api] config section onto ExecutorOptions.
func ExecutorOptionsFromConfig(cfg shared.APIConfig) ExecutorOptions {
	return ExecutorOptions{
		MaxRetries:        cfg.MaxRetries,
		DefaultRetryAfter: time.Duration(cfg.DefaultRetryAfter) * time.Second,
		PageDelay:         cfg.PageDelay(),
	}
}

// Executor performs authenticated JSON requests against the Web API.
type Executor struct {
	baseURL           string
	httpClient        *http.Client
	tokens            TokenProvider
	maxRetries        int
	defaultRetryAfter time.Duration
	pageDelay         time.Duration
	sleep             func(ctx context.Context, d time.Duration) error
	logger            *log.Logger
}

// NewExecutor creates an Executor rooted at baseURL.
func NewExecutor(baseURL string, client *http.Client, tokens TokenProvider, opts ExecutorOptions) *Executor {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeoutSec * time.Second}
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.DefaultRetryAfter <= 0 {
		opts.DefaultRetryAfter = DefaultRetryAfter
	}
	if opts.PageDelay <= 0 {
		opts.PageDelay = DefaultPageDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Executor{
		baseURL:           strings.TrimRight(baseURL, "/"),
		httpClient:        client,
		tokens:            tokens,
		maxRetries:        opts.MaxRetries,
		defaultRetryAfter: opts.DefaultRetryAfter,
		pageDelay:         opts.PageDelay,
		sleep:             opts.Sleep,
		logger:            shared.WithLogger(opts.Logger, "component", "api"),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resolve returns endpoint unchanged when it is already absolute.
func (e *Executor) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return e.baseURL + endpoint
}

// Execute sends method to endpoint with body encoded as JSON and returns the raw
// response document. A 204 or empty response yields a nil document.
//
// Rate-limited requests are retried up to the configured limit, waiting for the
// Retry-After interval. A 401 logs the user out.
func (e *Executor) Execute(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	target := e.resolve(endpoint)
	logger := e.logger.With("request_id", shared.GenerateID(), "method", method, "url", target)

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = data
	}

	for attempt := 0; ; attempt++ {
		token, ok := e.tokens.EnsureValidToken(ctx)
		if !ok {
			logger.Error("no valid access token")
			return nil, &APIError{Kind: shared.ErrUnauthenticated, Method: method, URL: target}
		}

		logger.Debug("api request", "attempt", attempt+1)
		resp, err := e.send(ctx, method, target, token, payload)
		if err != nil {
			logger.Error("api request failed", "err", err)
			return nil, err
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			logger.Error("failed to read response", "err", err)
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		switch status := resp.StatusCode; {
		case status == http.StatusTooManyRequests && attempt < e.maxRetries:
			wait := e.retryAfter(resp.Header.Get("Retry-After"))
			logger.Warn("rate limited, retrying", "wait", wait, "retries_left", e.maxRetries-attempt-1)
			if err := e.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		case status == http.StatusTooManyRequests:
			logger.Error("rate limit retries exhausted", "retries", e.maxRetries)
			return nil, &APIError{Kind: shared.ErrRateLimited, Status: status, Method: method, URL: target}
		case status == http.StatusUnauthorized:
			logger.Error("access token rejected")
			e.tokens.Logout()
			return nil, &APIError{Kind: shared.ErrAuthorizationInvalid, Status: status, Message: serverMessage(data), Method: method, URL: target}
		case status == http.StatusForbidden:
			logger.Error("permission denied")
			return nil, &APIError{Kind: shared.ErrPermissionDenied, Status: status, Message: serverMessage(data), Method: method, URL: target}
		case status < 200 || status >= 300:
			apiErr := &APIError{Kind: shared.ErrRequestFailed, Status: status, Message: serverMessage(data), Method: method, URL: target}
			logger.Error("api request failed", "status", status, "message", apiErr.Message)
			return nil, apiErr
		case status == http.StatusNoContent || resp.ContentLength == 0:
			return nil, nil
		}

		if !json.Valid(data) {
			logger.Error("response is not valid JSON", "status", resp.StatusCode)
			return nil, &APIError{Kind: shared.ErrMalformedResponse, Status: resp.StatusCode, Method: method, URL: target}
		}
		return json.RawMessage(data), nil
	}
}

func (e *Executor) send(ctx context.Context, method, target, token string, payload []byte) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if method != http.MethodGet && payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRequestFailed, err)
	}
	return resp, nil
}

// retryAfter parses a Retry-After value in whole seconds.
func (e *Executor) retryAfter(value string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || secs < 0 {
		return e.defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

// serverMessage extracts the message from a Spotify error envelope.
func serverMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Error.Message
}

// Decode executes a request and unmarshals the response into T. An empty
// response yields the zero value of T.
func Decode[T any](ctx context.Context, ex *Executor, method, endpoint string, body any) (*T, error) {
	raw, err := ex.Execute(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}

	var v T
	if raw == nil {
		return &v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &APIError{Kind: shared.ErrMalformedResponse, Message: err.Error(), Method: method, URL: ex.resolve(endpoint)}
	}
	return &v, nil
}

func decodeInto(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Kind: shared.ErrMalformedResponse, Message: err.Error()}
	}
	return nil
}

// BuildURL appends params to endpoint as an encoded query string. Nil values
// and empty strings are skipped.
func BuildURL(endpoint string, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := url.Values{}
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
		case string:
			if v != "" {
				query.Add(k, v)
			}
		case []string:
			if len(v) > 0 {
				query.Add(k, strings.Join(v, ","))
			}
		default:
			query.Add(k, fmt.Sprint(v))
		}
	}

	encoded := query.Encode()
	if encoded == "" {
		return endpoint
	}
	if strings.Contains(endpoint, "?") {
		return endpoint + "&" + encoded
	}
	return endpoint + "?" + encoded
}

// IsAuthError reports whether err means the user has to log in again.
func IsAuthError(err error) bool {
	return errors.Is(err, shared.ErrUnauthenticated) || errors.Is(err, shared.ErrAuthorizationInvalid)
}
