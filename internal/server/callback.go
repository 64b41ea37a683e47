package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/crate/internal/shared"
)

// CallbackCompleter finishes an authorization from the redirect query.
type CallbackCompleter interface {
	CompleteCallback(ctx context.Context, query url.Values) (bool, error)
	ConsumeReturnPath() string
}

// CallbackResult is the outcome of the authorization redirect.
type CallbackResult struct {
	ReturnPath string
	err        error
}

func (c CallbackResult) Error() error {
	return c.err
}

// CallbackHandler receives the authorization redirect. Implements [Handler].
//
// Only the first request carrying a state parameter is completed. Requests
// without state are answered with 400 and leave the handler waiting.
type CallbackHandler struct {
	auth       CallbackCompleter
	path       string
	logger     *log.Logger
	resultChan chan CallbackResult
	once       sync.Once
	handled    bool
	mu         sync.Mutex
}

// NewCallbackHandler creates a handler serving path.
func NewCallbackHandler(auth CallbackCompleter, path string, logger *log.Logger) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CallbackHandler{
		auth:       auth,
		path:       path,
		logger:     logger,
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"GET " + h.path}
}

var pageTemplate = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

type page struct {
	Title   string
	Color   template.CSS
	Message string
}

// ServeHTTP completes the authorization with the request's query parameters.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("state") == "" {
		h.logger.Debug("ignoring callback request without state", "path", r.URL.Path)
		render(w, http.StatusBadRequest, page{
			Title:   "Authorization Failed",
			Color:   "#e22134",
			Message: "Missing authorization state.",
		})
		return
	}

	h.mu.Lock()
	if h.handled {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.handled = true
	h.mu.Unlock()

	ok, err := h.auth.CompleteCallback(r.Context(), query)
	if !ok {
		if err == nil {
			err = shared.ErrTokenExchange
		}
		h.logger.Warn("authorization callback rejected", "err", err)
		h.Send(CallbackResult{err: err})
		render(w, http.StatusBadRequest, page{
			Title:   "Authorization Failed",
			Color:   "#e22134",
			Message: "Return to the terminal for details.",
		})
		return
	}

	h.Send(CallbackResult{ReturnPath: h.auth.ConsumeReturnPath()})
	render(w, http.StatusOK, page{
		Title:   "✓ Authorization Successful",
		Color:   "#1DB954",
		Message: "You can close this window and return to the terminal.",
	})
}

func render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	pageTemplate.Execute(w, p)
}

// Send delivers the result (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel. It receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

// CallbackServer is a local listener for the authorization redirect.
type CallbackServer struct {
	srv    *http.Server
	ln     net.Listener
	errs   chan error
	logger *log.Logger
}

// StartCallbackServer binds addr and serves handler in the background. The
// listener is bound before returning, so the redirect cannot race the server.
func StartCallbackServer(addr string, handler http.Handler, logger *log.Logger) (*CallbackServer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &CallbackServer{
		srv:    &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		ln:     ln,
		errs:   make(chan error, 1),
		logger: logger,
	}

	go func() {
		logger.Debug("callback server listening", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
	return s, nil
}

// Addr returns the bound address.
func (s *CallbackServer) Addr() string { return s.ln.Addr().String() }

// Shutdown stops the server, waiting up to five seconds for in-flight requests.
func (s *CallbackServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("error shutting down callback server", "error", err)
	}
}

// Await waits for the callback result, a server failure, ctx cancellation or
// timeout, whichever comes first.
func (s *CallbackServer) Await(ctx context.Context, h *CallbackHandler, timeout time.Duration) (CallbackResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-h.Result():
		if result.Error() != nil {
			return result, fmt.Errorf("authorization failed: %w", result.Error())
		}
		return result, nil
	case err := <-s.errs:
		return CallbackResult{}, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	case <-timer.C:
		return CallbackResult{}, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	}
}
