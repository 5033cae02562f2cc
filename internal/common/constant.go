// Package common contains constants and small helpers shared by the client
// layers.
package common

// HTTP header names and values used on outbound API requests.
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	CacheControlHeader  = "Cache-Control"
	NoCache             = "no-cache"
	RequestIDHeader     = "X-Request-ID"
	ContentTypeHeader   = "Content-Type"
	JSONContentType     = "application/json"
)

// DefaultAPIBaseURL is used when no base URL is configured.
const DefaultAPIBaseURL = "http://localhost:8000/api/"
