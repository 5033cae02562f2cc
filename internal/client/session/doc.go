// Package session keeps outbound API requests authenticated.
//
// # Overview
//
// Guard is an http.RoundTripper that:
//  1. attaches the stored access token as "Authorization: Bearer <token>";
//  2. marks non-read requests with "Cache-Control: no-cache";
//  3. recovers from a 401 by exchanging the stored refresh token for a new
//     access token once, then retrying the request once.
//
// At most one refresh exchange is in flight per Guard. Requests that hit a
// 401 while it runs wait for its outcome. Retries then go out one at a time:
// the request that ran the exchange first, queued requests in arrival order,
// each after the previous retry got its response.
// A 401 on the refresh exchange itself, a missing refresh token or any other
// failed exchange is irrecoverable: credentials are removed from the Store and
// the OnExpired callback runs (the client's "go to login" hook).
//
// # Errors
//
// Irrecoverable failures match ErrSessionExpired with errors.Is. Failed
// exchanges are reported as *RefreshError. A second 401 after the retry is
// returned to the caller as a normal response, and so is a 401 for a request
// that was sent without an access token. A 401 that arrives after the
// session was already discarded fails with ErrSessionExpired without
// another exchange.
package session
