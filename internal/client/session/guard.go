package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/dmitrijs2005/foamyadmin/internal/common"
	"github.com/dmitrijs2005/foamyadmin/internal/logging"
)

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type refreshResult struct {
	access string
	turn   turn
	err    error
}

// turn orders the retries that follow one refresh: the request that ran the
// refresh goes first, queued requests follow in arrival order, and each one
// is sent only after the previous one got its response.
type turn struct {
	prev <-chan struct{}
	done chan struct{}
}

func (t turn) wait(ctx context.Context) error {
	if t.prev == nil {
		return nil
	}
	select {
	case <-t.prev:
		return nil
	case <-ctx.Done():
		// Pass the turn on once it arrives so later requests are not stuck.
		go func() {
			<-t.prev
			t.release()
		}()
		return ctx.Err()
	}
}

func (t turn) release() {
	if t.done != nil {
		close(t.done)
	}
}

// Option configures a Guard.
type Option func(*Guard)

func WithLogger(l logging.Logger) Option {
	return func(g *Guard) { g.log = l }
}

// WithOnExpired sets the callback run after credentials were discarded.
// It is called without any Guard lock held.
func WithOnExpired(fn func()) Option {
	return func(g *Guard) { g.onExpired = fn }
}

// WithPublicPaths lists URL paths that are sent without credentials and
// never trigger a refresh, e.g. the login endpoint.
func WithPublicPaths(paths ...string) Option {
	return func(g *Guard) {
		for _, p := range paths {
			g.public[p] = true
		}
	}
}

// Guard is an http.RoundTripper that authenticates requests and refreshes
// the access token on 401. See the package documentation.
//
// Each Guard owns its refresh state; independent Guards never share it.
type Guard struct {
	base       http.RoundTripper
	store      Store
	refreshURL *url.URL
	log        logging.Logger
	onExpired  func()
	public     map[string]bool

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

// NewGuard wraps base (http.DefaultTransport when nil). refreshURL is the
// absolute URL of the refresh endpoint, e.g. "http://localhost:8000/api/token/refresh/".
func NewGuard(base http.RoundTripper, store Store, refreshURL string, opts ...Option) (*Guard, error) {
	if store == nil {
		return nil, errors.New("session: store is required")
	}
	u, err := url.Parse(refreshURL)
	if err != nil {
		return nil, fmt.Errorf("session: invalid refresh url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("session: refresh url %q is not absolute", refreshURL)
	}
	if base == nil {
		base = http.DefaultTransport
	}

	g := &Guard{
		base:       base,
		store:      store,
		refreshURL: u,
		log:        logging.Nop(),
		onExpired:  func() {},
		public:     map[string]bool{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// RoundTrip implements http.RoundTripper.
func (g *Guard) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := g.log.With("method", req.Method, "path", req.URL.Path, "request_id", req.Header.Get(common.RequestIDHeader))

	var access string
	if !g.public[req.URL.Path] {
		var err error
		if access, err = g.accessToken(ctx); err != nil {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			return nil, err
		}
	}

	resp, err := g.dispatch(req, access)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if g.isRefreshCall(req) {
		discard(resp)
		log.Warn(ctx, "refresh token rejected, discarding session")
		g.expire(ctx)
		return nil, ErrSessionExpired
	}

	// Nothing to refresh: the request went out without credentials and the
	// backend rejected it, e.g. wrong credentials on login.
	if access == "" {
		return resp, nil
	}

	if !replayable(req) {
		log.Warn(ctx, "unauthorized, request body cannot be replayed")
		return resp, nil
	}
	discard(resp)

	fresh, tn, err := g.renew(ctx, access)
	if err != nil {
		return nil, err
	}
	if err := tn.wait(ctx); err != nil {
		return nil, err
	}
	defer tn.release()

	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}

	log.Debug(ctx, "retrying with refreshed access token")
	return g.dispatch(retry, fresh)
}

// renew returns an access token usable for a retry of a request that was
// sent with used and got a 401, and the turn that retry has to wait for.
func (g *Guard) renew(ctx context.Context, used string) (string, turn, error) {
	g.mu.Lock()

	if g.refreshing {
		wait := make(chan refreshResult, 1)
		g.waiters = append(g.waiters, wait)
		g.mu.Unlock()

		g.log.Debug(ctx, "token refresh in flight, request queued")
		res := <-wait
		return res.access, res.turn, res.err
	}

	current, err := g.accessToken(ctx)
	if err == nil {
		// The session was discarded after this request went out.
		if current == "" {
			g.mu.Unlock()
			return "", turn{}, ErrSessionExpired
		}
		// The token was already replaced after this request went out.
		if current != used {
			g.mu.Unlock()
			return current, turn{}, nil
		}
	}

	g.refreshing = true
	g.mu.Unlock()

	// The exchange is shared by every queued request, so it must not be
	// cancelled together with the request that happened to start it.
	access, err := g.exchange(context.WithoutCancel(ctx))

	var refreshErr *RefreshError
	if errors.As(err, &refreshErr) {
		g.log.Warn(ctx, "token refresh failed, discarding session", "error", err)
		g.expire(ctx)
	}

	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	g.refreshing = false
	g.mu.Unlock()

	if err != nil {
		for _, w := range waiters {
			w <- refreshResult{err: err}
		}
		return "", turn{}, err
	}

	first := turn{done: make(chan struct{})}
	prev := first.done
	for _, w := range waiters {
		next := turn{prev: prev, done: make(chan struct{})}
		w <- refreshResult{access: access, turn: next}
		prev = next.done
	}
	return access, first, nil
}

// exchange trades the stored refresh token for a new access token and
// persists it. The request goes through the Guard itself, so a 401 from the
// refresh endpoint ends the session in RoundTrip and surfaces here as
// ErrSessionExpired. Every other failure is a *RefreshError.
func (g *Guard) exchange(ctx context.Context) (string, error) {
	refresh, err := g.store.Get(ctx, RefreshTokenKey)
	if err != nil {
		return "", &RefreshError{Err: fmt.Errorf("read refresh token: %w", err)}
	}
	if len(refresh) == 0 {
		return "", &RefreshError{Err: errNoRefreshToken}
	}

	body, err := json.Marshal(refreshRequest{Refresh: string(refresh)})
	if err != nil {
		return "", &RefreshError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.refreshURL.String(), bytes.NewReader(body))
	if err != nil {
		return "", &RefreshError{Err: err}
	}
	req.Header.Set(common.ContentTypeHeader, common.JSONContentType)

	resp, err := g.RoundTrip(req)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return "", err
		}
		return "", &RefreshError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &RefreshError{StatusCode: resp.StatusCode}
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &RefreshError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode refresh response: %w", err)}
	}
	if out.Access == "" {
		return "", &RefreshError{StatusCode: resp.StatusCode, Err: errors.New("refresh response has no access token")}
	}

	if err := g.store.Set(ctx, AccessTokenKey, []byte(out.Access)); err != nil {
		return "", &RefreshError{Err: fmt.Errorf("store access token: %w", err)}
	}
	// Backends that rotate refresh tokens send a new one along.
	if out.Refresh != "" {
		if err := g.store.Set(ctx, RefreshTokenKey, []byte(out.Refresh)); err != nil {
			return "", &RefreshError{Err: fmt.Errorf("store refresh token: %w", err)}
		}
	}

	g.log.Info(ctx, "access token refreshed")
	return out.Access, nil
}

func (g *Guard) dispatch(req *http.Request, access string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if access != "" {
		out.Header.Set(common.AuthorizationHeader, common.BearerPrefix+access)
	}
	if !isRead(req.Method) {
		out.Header.Set(common.CacheControlHeader, common.NoCache)
	}
	return g.base.RoundTrip(out)
}

func (g *Guard) accessToken(ctx context.Context) (string, error) {
	v, err := g.store.Get(ctx, AccessTokenKey)
	if err != nil {
		return "", fmt.Errorf("read access token: %w", err)
	}
	return string(v), nil
}

func (g *Guard) isRefreshCall(req *http.Request) bool {
	return req.URL.Path == g.refreshURL.Path && (req.URL.Host == "" || req.URL.Host == g.refreshURL.Host)
}

func (g *Guard) expire(ctx context.Context) {
	if err := Clear(context.WithoutCancel(ctx), g.store); err != nil {
		g.log.Error(ctx, "failed to clear session", "error", err)
	}
	g.onExpired()
}

func isRead(method string) bool {
	return method == "" || method == http.MethodGet || method == http.MethodHead
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	out.Body = body
	return out, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}
