package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/foamyadmin/internal/client/repositories/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	baseURL    = "http://api.test/api/"
	refreshURL = "http://api.test/api/token/refresh/"
)

// fakeAPI is a RoundTripper standing in for the backend. Protected paths
// accept only the current access token; the refresh path issues a new one.
type fakeAPI struct {
	mu            sync.Mutex
	access        string
	refresh       string
	issued        int
	refreshStatus int
	refreshGate   chan struct{}

	refreshCalls atomic.Int32
	calls        atomic.Int32

	// hook runs before a protected path is answered.
	hook func(req *http.Request)

	lastHeaders http.Header
	bodies      []string
	served      []string
}

func newFakeAPI(access, refresh string) *fakeAPI {
	return &fakeAPI{access: access, refresh: refresh}
}

func reply(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func (f *fakeAPI) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}

	if req.URL.Path == "/api/token/refresh/" {
		f.refreshCalls.Add(1)
		if f.refreshGate != nil {
			<-f.refreshGate
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		if f.refreshStatus != 0 {
			return reply(f.refreshStatus, `{"detail":"refresh rejected"}`), nil
		}
		var in refreshRequest
		if err := json.Unmarshal(body, &in); err != nil || in.Refresh != f.refresh {
			return reply(http.StatusUnauthorized, `{"detail":"Token is invalid or expired"}`), nil
		}
		f.issued++
		f.access = fmt.Sprintf("access-%d", f.issued)
		return reply(http.StatusOK, fmt.Sprintf(`{"access":%q}`, f.access)), nil
	}

	f.calls.Add(1)
	if f.hook != nil {
		f.hook(req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastHeaders = req.Header.Clone()
	f.bodies = append(f.bodies, string(body))

	if req.URL.Path == "/api/always-401/" || req.Header.Get("Authorization") != "Bearer "+f.access {
		return reply(http.StatusUnauthorized, `{"detail":"Given token not valid for any token type"}`), nil
	}
	f.served = append(f.served, req.URL.Path)
	return reply(http.StatusOK, `[]`), nil
}

func (f *fakeAPI) currentAccess() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access
}

type expiredCounter struct{ n atomic.Int32 }

func (c *expiredCounter) hook() { c.n.Add(1) }

func newGuard(t *testing.T, api *fakeAPI, store Store, expired *expiredCounter) *Guard {
	t.Helper()
	opts := []Option{}
	if expired != nil {
		opts = append(opts, WithOnExpired(expired.hook))
	}
	g, err := NewGuard(api, store, refreshURL, opts...)
	require.NoError(t, err)
	return g
}

func seededStore(t *testing.T, access, refresh string) *metadata.InMemoryRepository {
	t.Helper()
	s := metadata.NewInMemoryRepository()
	ctx := context.Background()
	if access != "" {
		require.NoError(t, s.Set(ctx, AccessTokenKey, []byte(access)))
	}
	if refresh != "" {
		require.NoError(t, s.Set(ctx, RefreshTokenKey, []byte(refresh)))
	}
	require.NoError(t, s.Set(ctx, UserKey, []byte(`{"id":1,"username":"admin","email":"a@b.c"}`)))
	return s
}

func stored(t *testing.T, s Store, key string) string {
	t.Helper()
	v, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	return string(v)
}

func get(t *testing.T, path string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	require.NoError(t, err)
	return req
}

func TestNewGuard_Validation(t *testing.T) {
	_, err := NewGuard(nil, nil, refreshURL)
	require.Error(t, err)

	_, err = NewGuard(nil, metadata.NewInMemoryRepository(), "token/refresh/")
	require.Error(t, err)

	g, err := NewGuard(nil, metadata.NewInMemoryRepository(), refreshURL)
	require.NoError(t, err)
	assert.Equal(t, http.DefaultTransport, g.base)
}

func TestRoundTrip_DecoratesRequests(t *testing.T) {
	api := newFakeAPI("a1", "r1")
	g := newGuard(t, api, seededStore(t, "a1", "r1"), nil)

	req := get(t, "products/")
	resp, err := g.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer a1", api.lastHeaders.Get("Authorization"))
	assert.Empty(t, api.lastHeaders.Get("Cache-Control"), "reads keep cache semantics")
	assert.Empty(t, req.Header.Get("Authorization"), "caller request must not be mutated")

	post, err := http.NewRequest(http.MethodPost, baseURL+"products/", strings.NewReader(`{"name":"Mat"}`))
	require.NoError(t, err)
	resp, err = g.RoundTrip(post)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "no-cache", api.lastHeaders.Get("Cache-Control"))
	assert.Equal(t, "Bearer a1", api.lastHeaders.Get("Authorization"))
}

func TestRoundTrip_NoStoredTokenSendsNoAuthorization(t *testing.T) {
	api := newFakeAPI("a1", "r1")
	store := metadata.NewInMemoryRepository()
	g := newGuard(t, api, store, nil)

	req, err := http.NewRequest(http.MethodPost, baseURL+"token/", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp, err := g.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, api.lastHeaders.Get("Authorization"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "anonymous 401 is returned unchanged")
	assert.Zero(t, api.refreshCalls.Load())
}

func TestRoundTrip_PublicPathIgnoresStoredSession(t *testing.T) {
	api := newFakeAPI("a1", "r1")
	store := seededStore(t, "stale", "r1")
	expired := &expiredCounter{}
	g, err := NewGuard(api, store, refreshURL, WithPublicPaths("/api/token/"), WithOnExpired(expired.hook))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, baseURL+"token/", strings.NewReader(`{"username":"admin"}`))
	require.NoError(t, err)
	resp, err := g.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, api.lastHeaders.Get("Authorization"))
	assert.Zero(t, api.refreshCalls.Load())
	assert.Zero(t, expired.n.Load())
	assert.Equal(t, "stale", stored(t, store, AccessTokenKey), "stored session is left alone")
}

func TestRoundTrip_SingleUnauthorized_OneRefreshOneRetry(t *testing.T) {
	api := newFakeAPI("fresh-from-server", "r1")
	store := seededStore(t, "expired", "r1")
	expired := &expiredCounter{}
	g := newGuard(t, api, store, expired)

	req, err := http.NewRequest(http.MethodPut, baseURL+"products/3/", bytes.NewReader([]byte(`{"name":"Mat"}`)))
	require.NoError(t, err)

	resp, err := g.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.EqualValues(t, 2, api.calls.Load(), "original request plus exactly one retry")
	assert.Equal(t, []string{`{"name":"Mat"}`, `{"name":"Mat"}`}, api.bodies, "body is replayed on retry")
	assert.Equal(t, "access-1", stored(t, store, AccessTokenKey))
	assert.Equal(t, "Bearer access-1", api.lastHeaders.Get("Authorization"))
	assert.Zero(t, expired.n.Load())
}

func TestRoundTrip_ConcurrentUnauthorized_SingleRefresh(t *testing.T) {
	const n = 8

	api := newFakeAPI("not-issued-yet", "r1")
	api.refreshGate = make(chan struct{})
	store := seededStore(t, "expired", "r1")
	g := newGuard(t, api, store, nil)

	var wg sync.WaitGroup
	statuses := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := g.RoundTrip(get(t, "products/"))
			errs[i] = err
			if err == nil {
				statuses[i] = resp.StatusCode
				resp.Body.Close()
			}
		}(i)
	}

	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return api.refreshCalls.Load() == 1 && len(g.waiters) == n-1
	}, 2*time.Second, 5*time.Millisecond, "one refresher and n-1 queued requests")

	close(api.refreshGate)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, statuses[i])
	}
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.EqualValues(t, 2*n, api.calls.Load())

	g.mu.Lock()
	assert.False(t, g.refreshing)
	assert.Empty(t, g.waiters)
	g.mu.Unlock()
}

func TestRoundTrip_RetriesFollowArrivalOrder(t *testing.T) {
	const n = 6

	api := newFakeAPI("not-issued-yet", "r1")
	api.refreshGate = make(chan struct{})
	g := newGuard(t, api, seededStore(t, "expired", "r1"), nil)

	var wg sync.WaitGroup
	send := func(i int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := g.RoundTrip(get(t, fmt.Sprintf("p%d/", i)))
			if err == nil {
				resp.Body.Close()
			}
		}()
	}

	// p0 runs the refresh, p1..p5 queue behind it one by one.
	send(0)
	require.Eventually(t, func() bool { return api.refreshCalls.Load() == 1 }, 2*time.Second, time.Millisecond)
	for i := 1; i < n; i++ {
		send(i)
		require.Eventually(t, func() bool {
			g.mu.Lock()
			defer g.mu.Unlock()
			return len(g.waiters) == i
		}, 2*time.Second, time.Millisecond)
	}

	close(api.refreshGate)
	wg.Wait()

	want := make([]string, n)
	for i := range want {
		want[i] = fmt.Sprintf("/api/p%d/", i)
	}
	assert.Equal(t, want, api.served, "the refreshing request first, then queued ones in arrival order")
}

func TestRoundTrip_UnauthorizedAfterSessionDiscarded(t *testing.T) {
	api := newFakeAPI("fresh", "r1")
	store := seededStore(t, "old", "r1")
	expired := &expiredCounter{}

	// The session is dropped while this request is on the wire.
	api.hook = func(req *http.Request) {
		require.NoError(t, Clear(context.Background(), store))
	}
	g := newGuard(t, api, store, expired)

	_, err := g.RoundTrip(get(t, "products/"))
	require.ErrorIs(t, err, ErrSessionExpired)

	assert.Zero(t, api.refreshCalls.Load(), "no exchange without a session")
	assert.Zero(t, expired.n.Load(), "expiry was already handled")
	assert.EqualValues(t, 1, api.calls.Load())
}

func TestRoundTrip_RefreshRejected_ClearsSession(t *testing.T) {
	api := newFakeAPI("whatever", "server-side-refresh")
	store := seededStore(t, "expired", "revoked-refresh")
	expired := &expiredCounter{}
	g := newGuard(t, api, store, expired)

	resp, err := g.RoundTrip(get(t, "products/"))
	require.Nil(t, resp)
	require.ErrorIs(t, err, ErrSessionExpired)

	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.EqualValues(t, 1, api.calls.Load(), "no retry after a rejected refresh")
	assert.EqualValues(t, 1, expired.n.Load(), "redirect to login exactly once")

	for _, key := range []string{AccessTokenKey, RefreshTokenKey, UserKey} {
		assert.Empty(t, stored(t, store, key), key)
	}
}

func TestRoundTrip_RefreshServerError_QueuedCallersRejected(t *testing.T) {
	api := newFakeAPI("whatever", "r1")
	api.refreshStatus = http.StatusInternalServerError
	api.refreshGate = make(chan struct{})
	store := seededStore(t, "expired", "r1")
	expired := &expiredCounter{}
	g := newGuard(t, api, store, expired)

	const n = 3
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			resp, err := g.RoundTrip(get(t, "categories/"))
			if resp != nil {
				resp.Body.Close()
			}
			errs <- err
		}()
	}

	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return len(g.waiters) == n-1
	}, 2*time.Second, 5*time.Millisecond)
	close(api.refreshGate)

	for i := 0; i < n; i++ {
		err := <-errs
		var refreshErr *RefreshError
		require.ErrorAs(t, err, &refreshErr)
		assert.Equal(t, http.StatusInternalServerError, refreshErr.StatusCode)
		assert.ErrorIs(t, err, ErrSessionExpired)
	}

	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.EqualValues(t, 1, expired.n.Load())
	assert.Empty(t, stored(t, store, RefreshTokenKey))
}

func TestRoundTrip_MissingRefreshToken_Irrecoverable(t *testing.T) {
	api := newFakeAPI("valid", "r1")
	store := seededStore(t, "expired", "")
	expired := &expiredCounter{}
	g := newGuard(t, api, store, expired)

	_, err := g.RoundTrip(get(t, "products/"))
	require.ErrorIs(t, err, ErrSessionExpired)
	require.ErrorIs(t, err, errNoRefreshToken)

	assert.Zero(t, api.refreshCalls.Load())
	assert.EqualValues(t, 1, expired.n.Load())
	assert.Empty(t, stored(t, store, UserKey))
}

func TestRoundTrip_SecondUnauthorizedIsReturned(t *testing.T) {
	api := newFakeAPI("unused", "r1")
	store := seededStore(t, "expired", "r1")
	expired := &expiredCounter{}
	g := newGuard(t, api, store, expired)

	resp, err := g.RoundTrip(get(t, "always-401/"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.EqualValues(t, 2, api.calls.Load())
	assert.Zero(t, expired.n.Load(), "a retried 401 is a plain error, not a lost session")
	assert.Equal(t, "access-1", stored(t, store, AccessTokenKey))
}

func TestRoundTrip_RefreshCallUnauthorizedFromOutside(t *testing.T) {
	api := newFakeAPI("a1", "server-refresh")
	store := seededStore(t, "a1", "stale-refresh")
	expired := &expiredCounter{}
	g := newGuard(t, api, store, expired)

	req, err := http.NewRequest(http.MethodPost, refreshURL, strings.NewReader(`{"refresh":"stale-refresh"}`))
	require.NoError(t, err)

	_, err = g.RoundTrip(req)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.EqualValues(t, 1, expired.n.Load())
	assert.Empty(t, stored(t, store, AccessTokenKey))
}

func TestRoundTrip_NonReplayableBodyIsNotRetried(t *testing.T) {
	api := newFakeAPI("fresh", "r1")
	store := seededStore(t, "expired", "r1")
	g := newGuard(t, api, store, nil)

	req, err := http.NewRequest(http.MethodPost, baseURL+"inventory/", io.NopCloser(strings.NewReader(`{"quantity":1}`)))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := g.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, api.refreshCalls.Load())
}

func TestRoundTrip_StaleTokenRetriedWithoutRefresh(t *testing.T) {
	api := newFakeAPI("rotated", "r1")
	store := seededStore(t, "old", "r1")

	// Another request finished a refresh while this one was on the wire.
	api.hook = func(req *http.Request) {
		if req.Header.Get("Authorization") == "Bearer old" {
			require.NoError(t, store.Set(context.Background(), AccessTokenKey, []byte("rotated")))
		}
	}
	g := newGuard(t, api, store, nil)

	resp, err := g.RoundTrip(get(t, "products/"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, api.refreshCalls.Load())
	assert.Equal(t, "Bearer rotated", api.lastHeaders.Get("Authorization"))
}

func TestRoundTrip_RotatedRefreshTokenIsStored(t *testing.T) {
	store := seededStore(t, "expired", "r1")
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/api/token/refresh/" {
			return reply(http.StatusOK, `{"access":"a2","refresh":"r2"}`), nil
		}
		if req.Header.Get("Authorization") == "Bearer a2" {
			return reply(http.StatusOK, `[]`), nil
		}
		return reply(http.StatusUnauthorized, `{}`), nil
	})
	g, err := NewGuard(rt, store, refreshURL)
	require.NoError(t, err)

	resp, err := g.RoundTrip(get(t, "products/"))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "a2", stored(t, store, AccessTokenKey))
	assert.Equal(t, "r2", stored(t, store, RefreshTokenKey))
}

func TestRoundTrip_MalformedRefreshResponse(t *testing.T) {
	store := seededStore(t, "expired", "r1")
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/api/token/refresh/" {
			return reply(http.StatusOK, `{"token":"wrong-field"}`), nil
		}
		return reply(http.StatusUnauthorized, `{}`), nil
	})
	expired := &expiredCounter{}
	g, err := NewGuard(rt, store, refreshURL, WithOnExpired(expired.hook))
	require.NoError(t, err)

	_, err = g.RoundTrip(get(t, "products/"))
	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, http.StatusOK, refreshErr.StatusCode)
	assert.EqualValues(t, 1, expired.n.Load())
}

func TestRoundTrip_TransportErrorPassesThrough(t *testing.T) {
	boom := errors.New("connection refused")
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) { return nil, boom })
	g, err := NewGuard(rt, seededStore(t, "a", "r"), refreshURL)
	require.NoError(t, err)

	_, err = g.RoundTrip(get(t, "products/"))
	require.ErrorIs(t, err, boom)
}

func TestGuard_InstancesAreIndependent(t *testing.T) {
	apiA := newFakeAPI("fresh-a", "ra")
	apiA.refreshGate = make(chan struct{})
	apiB := newFakeAPI("b1", "rb")

	ga := newGuard(t, apiA, seededStore(t, "expired", "ra"), nil)
	gb := newGuard(t, apiB, seededStore(t, "b1", "rb"), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := ga.RoundTrip(get(t, "products/"))
		if err == nil {
			resp.Body.Close()
		}
	}()

	require.Eventually(t, func() bool { return apiA.refreshCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// A refresh in flight on ga does not queue requests on gb.
	resp, err := gb.RoundTrip(get(t, "products/"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	close(apiA.refreshGate)
	<-done
}

func TestGuard_WorksAsClientTransport(t *testing.T) {
	api := newFakeAPI("whatever", "server-refresh")
	store := seededStore(t, "expired", "revoked")
	g := newGuard(t, api, store, nil)

	client := &http.Client{Transport: g}
	_, err := client.Get(baseURL + "products/")
	require.ErrorIs(t, err, ErrSessionExpired, "errors survive *url.Error wrapping")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
