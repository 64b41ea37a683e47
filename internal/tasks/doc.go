// Package tasks runs multi-step playlist operations with progress reporting.
//
// # Operations
//
//  1. [PlaylistEngine.BulkExport] : export many playlists to disk
//     - Lists the user's playlists when no IDs are given
//     - Fetches playlists under a rate limiter and writes them with a worker pool
//     - Records per-playlist failures and writes export_manifest.json
//
//  2. [PlaylistEngine.Diff] : compare two playlists
//     - Matches tracks via ISRC (preferred) or normalized title/artist
//     - Reports matched count, missing tracks, and extra tracks
//
//  3. [PlaylistEngine.CachePlaylist] : store a playlist's tracks locally
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends use select
// with default so a slow reader never stalls the operation.
//
// # Track Caching
//
// The optional [TrackCacher] receives every exported track. Cache failures are
// logged and skipped.
package tasks
