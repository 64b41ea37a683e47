// Package services talks to the Spotify Web API.
//
// # Executor
//
// [Executor] is the single place HTTP requests are made. Each call asks the
// [TokenProvider] for a valid access token, sends the request with a bearer
// header, and classifies the response:
//   - 429: wait for Retry-After (2s when absent) and retry, up to MaxRetries
//   - 401: log the user out and fail with [shared.ErrAuthorizationInvalid]
//   - 403: fail with [shared.ErrPermissionDenied]
//   - other non-2xx: fail with [shared.ErrRequestFailed] and the server message
//   - 204 or empty body: nil result
//   - anything else must be JSON, or [shared.ErrMalformedResponse]
//
// Failures are returned as [*APIError], which unwraps to the sentinel, so
// callers check them with errors.Is.
//
// # Pagination
//
// [FetchAllPages] follows the "next" links of a paginated endpoint and
// concatenates the items in page order. [FetchAll] is the shorthand for
// endpoints returning a plain [Page].
//
// # Spotify facades
//
// [SpotifyService] groups typed calls by area (library, user, browse) and
// implements [Service] by mapping Spotify objects onto models.Playlist and
// models.Track for the export engine.
package services
