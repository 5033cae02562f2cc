// Package apitest runs an in-process catalog backend for tests. It speaks the
// same JSON as the real REST API: JWT token endpoints, products, categories
// and inventory.
package apitest

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
	"github.com/go-chi/chi/v5"
)

// ListShape selects how list endpoints encode their payload.
type ListShape int

const (
	ShapeArray ListShape = iota
	ShapePaginated
	ShapeNull
	ShapeObject
)

type account struct {
	password string
	user     models.User
}

// Server is a fake backend. The zero value is not usable; call New.
type Server struct {
	srv *httptest.Server

	mu            sync.Mutex
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	accounts      map[string]account
	categories    map[int64]models.Category
	products      map[int64]models.Product
	inventory     []models.InventoryEntry
	nextID        int64
	shape         ListShape
	failDeletes   bool
	failLists     bool
	refreshGate   chan struct{}

	refreshCalls atomic.Int32
	productLists atomic.Int32
	unauthorized atomic.Int32
}

// New starts a server and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		accessSecret:  randomSecret(),
		refreshSecret: randomSecret(),
		accessTTL:     5 * time.Minute,
		accounts:      map[string]account{},
		categories:    map[int64]models.Category{},
		products:      map[int64]models.Product{},
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the API base URL, ending with "/api/".
func (s *Server) URL() string { return s.srv.URL + "/api/" }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/token/", s.obtainToken)
		r.Post("/token/refresh/", s.refreshToken)
		r.Post("/token/verify/", s.verifyToken)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/products/", s.listProducts)
			r.Get("/products/{id}/", s.getProduct)
			r.Get("/categories/", s.listCategories)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)

				r.Post("/products/", s.createProduct)
				r.Put("/products/{id}/", s.updateProduct)
				r.Delete("/products/{id}/", s.deleteProduct)

				r.Post("/categories/", s.createCategory)
				r.Put("/categories/{id}/", s.updateCategory)
				r.Delete("/categories/{id}/", s.deleteCategory)

				r.Get("/inventory/", s.listInventory)
				r.Post("/inventory/", s.createInventory)
			})
		})
	})
	return r
}

// AddUser registers an account that can log in.
func (s *Server) AddUser(username, password, email string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u := models.User{ID: s.nextID, Username: username, Email: email}
	s.accounts[username] = account{password: password, user: u}
	return u
}

func (s *Server) AddCategory(name string) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := models.Category{ID: s.nextID, Name: name}
	s.categories[c.ID] = c
	return c
}

func (s *Server) AddProduct(in models.ProductInput) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := productFromInput(s.nextID, in)
	s.products[p.ID] = p
	return s.withCategory(p)
}

// Product returns the stored product.
func (s *Server) Product(id int64) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return s.withCategory(p), ok
}

// AccessToken issues a valid access token for username without a login.
func (s *Server) AccessToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, err := generateToken(s.accounts[username].user.ID, accessType, s.accessSecret, s.accessTTL)
	if err != nil {
		panic(err)
	}
	return tok
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessSecret = randomSecret()
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshSecret = randomSecret()
}

func (s *Server) SetListShape(shape ListShape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shape = shape
}

// FailDeletes makes product deletion answer 500.
func (s *Server) FailDeletes(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDeletes = fail
}

// FailLists makes the product list answer 500.
func (s *Server) FailLists(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLists = fail
}

// HoldRefresh blocks refresh exchanges until the returned func is called.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.refreshGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

func (s *Server) RefreshCalls() int      { return int(s.refreshCalls.Load()) }
func (s *Server) ProductListCalls() int  { return int(s.productLists.Load()) }
func (s *Server) UnauthorizedCount() int { return int(s.unauthorized.Load()) }

func (s *Server) obtainToken(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[creds.Username]
	accessSecret, refreshSecret, ttl := s.accessSecret, s.refreshSecret, s.accessTTL
	s.mu.Unlock()

	if !ok || acc.password != creds.Password {
		s.unauthorized.Add(1)
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	access, err := generateToken(acc.user.ID, accessType, accessSecret, ttl)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	refresh, err := generateToken(acc.user.ID, refreshType, refreshSecret, 24*time.Hour)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, models.TokenPair{Access: access, Refresh: refresh, User: acc.user})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	gate := s.refreshGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	var in struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	refreshSecret, accessSecret, ttl := s.refreshSecret, s.accessSecret, s.accessTTL
	s.mu.Unlock()

	userID, err := parseToken(in.Refresh, refreshType, refreshSecret)
	if err != nil {
		s.unauthorized.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	access, err := generateToken(userID, accessType, accessSecret, ttl)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) verifyToken(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	secret := s.accessSecret
	s.mu.Unlock()

	if _, err := parseToken(in.Token, accessType, secret); err != nil {
		writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.productLists.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failLists {
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
		return
	}

	out := make([]models.Product, 0, len(s.products))
	for _, id := range sortedKeys(s.products) {
		out = append(out, s.withCategory(s.products[id]))
	}
	s.writeList(w, out)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.products[id]
	if !found {
		writeDetail(w, http.StatusNotFound, "No Product matches the given query.")
		return
	}
	writeJSON(w, http.StatusOK, s.withCategory(p))
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeProduct(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p := productFromInput(s.nextID, in)
	s.products[p.ID] = p
	writeJSON(w, http.StatusCreated, s.withCategory(p))
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := s.decodeProduct(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.products[id]; !found {
		writeDetail(w, http.StatusNotFound, "No Product matches the given query.")
		return
	}
	p := productFromInput(id, in)
	s.products[id] = p
	writeJSON(w, http.StatusOK, s.withCategory(p))
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failDeletes {
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
		return
	}
	if _, found := s.products[id]; !found {
		writeDetail(w, http.StatusNotFound, "No Product matches the given query.")
		return
	}
	delete(s.products, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Category, 0, len(s.categories))
	for _, id := range sortedKeys(s.categories) {
		out = append(out, s.categories[id])
	}
	s.writeList(w, out)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in models.CategoryInput
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeFieldError(w, "name", "This field may not be blank.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	c := models.Category{ID: s.nextID, Name: in.Name, Description: in.Description}
	s.categories[c.ID] = c
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in models.CategoryInput
	if !decodeBody(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.categories[id]; !found {
		writeDetail(w, http.StatusNotFound, "No Category matches the given query.")
		return
	}
	c := models.Category{ID: id, Name: in.Name, Description: in.Description}
	s.categories[id] = c
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.categories[id]; !found {
		writeDetail(w, http.StatusNotFound, "No Category matches the given query.")
		return
	}
	for _, p := range s.products {
		if p.CategoryID == id {
			writeDetail(w, http.StatusBadRequest, "Category is used by products.")
			return
		}
	}
	delete(s.categories, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listInventory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.InventoryEntry, len(s.inventory))
	copy(out, s.inventory)
	s.writeList(w, out)
}

func (s *Server) createInventory(w http.ResponseWriter, r *http.Request) {
	var in models.InventoryInput
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Quantity < 1 {
		writeFieldError(w, "quantity", "Ensure this value is greater than or equal to 1.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.products[in.ProductID]
	if !found {
		writeFieldError(w, "product_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", in.ProductID))
		return
	}
	p.CurrentStock += in.Quantity
	s.products[p.ID] = p

	s.nextID++
	withCategory := s.withCategory(p)
	e := models.InventoryEntry{
		ID:        s.nextID,
		Product:   &withCategory,
		EntryDate: time.Now().UTC().Format("2006-01-02"),
		Quantity:  in.Quantity,
		UnitCost:  in.UnitCost,
	}
	s.inventory = append(s.inventory, e)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) decodeProduct(w http.ResponseWriter, r *http.Request) (models.ProductInput, bool) {
	var in models.ProductInput
	if !decodeBody(w, r, &in) {
		return in, false
	}
	if strings.TrimSpace(in.Name) == "" {
		writeFieldError(w, "name", "This field may not be blank.")
		return in, false
	}

	s.mu.Lock()
	_, found := s.categories[in.CategoryID]
	s.mu.Unlock()
	if !found {
		writeFieldError(w, "category_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", in.CategoryID))
		return in, false
	}
	return in, true
}

// withCategory nests the category the way the read serializer does.
// Callers hold s.mu.
func (s *Server) withCategory(p models.Product) models.Product {
	if c, ok := s.categories[p.CategoryID]; ok {
		p.Category = &c
	}
	return p
}

// writeList encodes items according to the configured shape. Callers hold s.mu.
func (s *Server) writeList(w http.ResponseWriter, items any) {
	switch s.shape {
	case ShapePaginated:
		writeJSON(w, http.StatusOK, map[string]any{"count": countOf(items), "next": nil, "previous": nil, "results": items})
	case ShapeNull:
		writeJSON(w, http.StatusOK, nil)
	case ShapeObject:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		writeJSON(w, http.StatusOK, items)
	}
}

func productFromInput(id int64, in models.ProductInput) models.Product {
	return models.Product{
		ID:           id,
		Name:         in.Name,
		CategoryID:   in.CategoryID,
		Size:         in.Size,
		Description:  in.Description,
		UnitPrice:    in.UnitPrice,
		CurrentStock: in.CurrentStock,
	}
}

func countOf(items any) int {
	b, _ := json.Marshal(items)
	var raw []json.RawMessage
	_ = json.Unmarshal(b, &raw)
	return len(raw)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeFieldError(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string][]string{field: {msg}})
}

func randomSecret() []byte {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return b
}
