package client

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/foamyadmin/internal/client/session"
	"github.com/dmitrijs2005/foamyadmin/internal/logging"
)

// NewSessionClient builds an HTTPClient whose transport is a session.Guard
// over base, refreshing through the backend's token/refresh/ endpoint.
// onExpired runs when the stored session had to be discarded.
func NewSessionClient(baseURL string, base http.RoundTripper, store session.Store, timeout time.Duration, log logging.Logger, onExpired func()) (*HTTPClient, error) {
	u, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}

	opts := []session.Option{
		session.WithLogger(log.With("component", "session")),
		// Credentials go in the body; a stored session must not leak into
		// (or be refreshed by) a login or a token check.
		session.WithPublicPaths(u.JoinPath(TokenPath).Path, u.JoinPath(TokenVerifyPath).Path),
	}
	if onExpired != nil {
		opts = append(opts, session.WithOnExpired(onExpired))
	}

	refreshURL := u.JoinPath(TokenRefreshPath).String()
	guard, err := session.NewGuard(base, store, refreshURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(u.String(), guard, timeout, log)
}
