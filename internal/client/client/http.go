package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
	"github.com/dmitrijs2005/foamyadmin/internal/client/session"
	"github.com/dmitrijs2005/foamyadmin/internal/common"
	"github.com/dmitrijs2005/foamyadmin/internal/logging"
	"github.com/google/uuid"
)

// Endpoint paths relative to the API base URL.
const (
	TokenPath        = "token/"
	TokenRefreshPath = "token/refresh/"
	TokenVerifyPath  = "token/verify/"
	productsPath     = "products/"
	categoriesPath   = "categories/"
	inventoryPath    = "inventory/"
)

const maxErrorBody = 64 << 10

// HTTPClient talks JSON to the catalog backend. Authentication is the job of
// the transport (see session.Guard); HTTPClient only builds requests and maps
// responses.
type HTTPClient struct {
	base *url.URL
	http *http.Client
	log  logging.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for baseURL, e.g. "http://localhost:8000/api/".
// rt is usually a *session.Guard; nil means http.DefaultTransport.
func NewHTTPClient(baseURL string, rt http.RoundTripper, timeout time.Duration, log logging.Logger) (*HTTPClient, error) {
	base, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}
	return &HTTPClient{
		base: base,
		http: &http.Client{Transport: rt, Timeout: timeout},
		log:  log,
	}, nil
}

// ParseBaseURL validates an absolute API base URL and makes sure its path
// ends with "/" so that relative endpoints resolve under it.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: must be absolute", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// Endpoint resolves path against the base URL.
func (c *HTTPClient) Endpoint(path string) string {
	return c.base.ResolveReference(&url.URL{Path: path}).String()
}

func (c *HTTPClient) ObtainToken(ctx context.Context, creds models.Credentials) (*models.TokenPair, error) {
	var out models.TokenPair
	if err := c.do(ctx, http.MethodPost, TokenPath, creds, &out); err != nil {
		return nil, err
	}
	if out.Access == "" || out.Refresh == "" {
		return nil, errors.New("token response has no credentials")
	}
	return &out, nil
}

func (c *HTTPClient) VerifyToken(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, TokenVerifyPath, map[string]string{"token": token}, nil)
}

func (c *HTTPClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	return list[models.Product](ctx, c, productsPath)
}

func (c *HTTPClient) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var out models.Product
	if err := c.do(ctx, http.MethodGet, itemPath(productsPath, id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	var out models.Product
	if err := c.do(ctx, http.MethodPost, productsPath, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error) {
	var out models.Product
	if err := c.do(ctx, http.MethodPut, itemPath(productsPath, id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(productsPath, id), nil, nil)
}

func (c *HTTPClient) ListCategories(ctx context.Context) ([]models.Category, error) {
	return list[models.Category](ctx, c, categoriesPath)
}

func (c *HTTPClient) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, http.MethodPost, categoriesPath, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateCategory(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, http.MethodPut, itemPath(categoriesPath, id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(categoriesPath, id), nil, nil)
}

func (c *HTTPClient) ListInventory(ctx context.Context) ([]models.InventoryEntry, error) {
	return list[models.InventoryEntry](ctx, c, inventoryPath)
}

func (c *HTTPClient) AddInventory(ctx context.Context, in models.InventoryInput) (*models.InventoryEntry, error) {
	var out models.InventoryEntry
	if err := c.do(ctx, http.MethodPost, inventoryPath, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func itemPath(collection string, id int64) string {
	return collection + strconv.FormatInt(id, 10) + "/"
}

// do sends a JSON request and decodes a 2xx body into out (when non-nil).
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	body, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// send performs the request and returns the body of a 2xx response.
func (c *HTTPClient) send(ctx context.Context, method, path string, in any) ([]byte, error) {
	var payload io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Endpoint(path), payload)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set(common.RequestIDHeader, requestID)
	req.Header.Set("Accept", common.JSONContentType)
	if in != nil {
		req.Header.Set(common.ContentTypeHeader, common.JSONContentType)
	}

	log := c.log.With("method", method, "path", path, "request_id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, log, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Detail: parseDetail(raw)}
		log.Debug(ctx, "request failed", "status", resp.StatusCode, "detail", httpErr.Detail)
		return nil, httpErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	log.Debug(ctx, "request done", "status", resp.StatusCode)
	return body, nil
}

// transportError keeps guard and context errors matchable and reports
// everything else as ErrUnavailable.
func (c *HTTPClient) transportError(ctx context.Context, log logging.Logger, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	switch {
	case errors.Is(err, session.ErrSessionExpired):
		return err
	case errors.Is(err, context.Canceled):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	}

	log.Warn(ctx, "backend unreachable", "error", err)
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// list fetches a collection. The backend answers with a JSON array or a
// paginated {"results": [...]}; any other payload is logged and read as an
// empty list.
func list[T any](ctx context.Context, c *HTTPClient, path string) ([]T, error) {
	body, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	items, ok := decodeList[T](body)
	if !ok {
		c.log.Warn(ctx, "unexpected list response, treating as empty", "path", path, "body", truncate(body, 200))
		return []T{}, nil
	}
	return items, nil
}

func decodeList[T any](body []byte) ([]T, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, false
	}

	switch body[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, false
		}
		return items, true
	case '{':
		var page struct {
			Results *[]T `json:"results"`
		}
		if err := json.Unmarshal(body, &page); err != nil || page.Results == nil {
			return nil, false
		}
		if *page.Results == nil {
			return []T{}, true
		}
		return *page.Results, true
	}
	return nil, false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
