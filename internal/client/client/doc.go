// Package client contains client-side building blocks for the catalog admin.
//
// # Overview
//
// The package provides:
//  1. The API contract (see the Client interface): token obtain/verify,
//     products, categories and inventory.
//  2. A JSON-over-HTTP implementation (see HTTPClient). Authentication lives
//     in the transport: NewSessionClient installs a session.Guard that attaches
//     the bearer token and refreshes it on 401.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) for the CLI,
//     wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Non-2xx responses are *HTTPError values carrying the backend's detail
// message. They match the sentinels ErrUnauthorized (401, 403), ErrNotFound
// (404) and ErrUnavailable (5xx) with errors.Is; network failures match
// ErrUnavailable too. Session errors from the guard (session.ErrSessionExpired,
// *session.RefreshError) are returned unchanged.
//
// List endpoints accept a JSON array or a paginated {"results": [...]} object.
// Anything else is logged and read as an empty list.
//
// See Also
//
//   - Interface:  Client
//   - HTTP impl:  HTTPClient, NewSessionClient
//   - DB helpers: InitDatabase, RunMigrations
package client
