// Package server runs the short-lived HTTP listener that receives the Spotify
// authorization redirect.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first).
// [RequestLogger] is the only middleware the CLI installs.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Callback Handler
//
// [CallbackHandler] hands the redirect's query parameters to a [CallbackCompleter]
// (the auth manager), which validates the CSRF state and exchanges the code using
// the stored PKCE verifier. The handler renders a small confirmation page and
// reports the outcome once on its result channel.
//
// Only the first callback is processed; later hits are rejected.
//
// # Usage
//
// `crate auth login` starts a [CallbackServer] on the configured host and port,
// opens the authorization URL in the browser, and waits up to two minutes for
// the result before shutting the listener down.
package server
