// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Product is one item served by the mock catalog.
type Product struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Gender   string  `json:"gender"`
	Category string  `json:"category"`
	Color    string  `json:"color"`
	Size     string  `json:"size"`
	Price    float64 `json:"price"`
}

// MockResponse defines a canned response for a mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is a configurable mock catalog API server for testing.
// Without overrides it filters and paginates its products like the real
// API: GET /clothes with gender, category, color, size, minPrice, maxPrice,
// page and limit, and GET /clothes/{colors,sizes,categories}.
type MockCatalog struct {
	server *httptest.Server

	mu       sync.RWMutex
	products []Product
	handlers map[string]http.HandlerFunc
	failures map[string][]MockResponse
	requests map[string]int
	queries  []string

	// budget headers sent on default responses
	remaining    int
	resetSeconds int
}

// NewMockCatalog creates a mock server serving products.
func NewMockCatalog(products []Product) *MockCatalog {
	m := &MockCatalog{
		products:     products,
		handlers:     make(map[string]http.HandlerFunc),
		failures:     make(map[string][]MockResponse),
		requests:     make(map[string]int),
		remaining:    100,
		resetSeconds: 60,
	}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests[r.URL.Path]++
		m.queries = append(m.queries, r.URL.RawQuery)
		handler, hasHandler := m.handlers[r.URL.Path]
		var failure *MockResponse
		if queued := m.failures[r.URL.Path]; len(queued) > 0 {
			failure = &queued[0]
			m.failures[r.URL.Path] = queued[1:]
		}
		m.mu.Unlock()

		switch {
		case failure != nil:
			writeResponse(w, *failure)
		case hasHandler:
			handler(w, r)
		default:
			m.defaultHandler(w, r)
		}
	}))

	return m
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears request tracking and queued failures.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]int)
	m.failures = make(map[string][]MockResponse)
	m.queries = nil
}

// SetBudget sets the rate limit headers sent on default responses.
func (m *MockCatalog) SetBudget(remaining, resetSeconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaining = remaining
	m.resetSeconds = resetSeconds
}

// SetHandler overrides the handler for a path.
func (m *MockCatalog) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// FailNext queues responses served before the normal handler for path,
// one per request.
func (m *MockCatalog) FailNext(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = append(m.failures[path], responses...)
}

// RequestCount returns the number of requests made to path.
func (m *MockCatalog) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[path]
}

// Queries returns the raw query strings of all requests, in order.
func (m *MockCatalog) Queries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.queries)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func (m *MockCatalog) defaultHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(m.remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(m.resetSeconds))
	products := m.products
	m.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	switch r.URL.Path {
	case "/clothes":
		m.listClothes(w, r, products)
	case "/clothes/colors":
		writeJSON(w, distinct(products, func(p Product) string { return p.Color }))
	case "/clothes/sizes":
		writeJSON(w, distinct(products, func(p Product) string { return p.Size }))
	case "/clothes/categories":
		writeJSON(w, distinct(products, func(p Product) string { return p.Category }))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "not found"}`))
	}
}

func (m *MockCatalog) listClothes(w http.ResponseWriter, r *http.Request, products []Product) {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 || limit > 50 {
		limit = 10
	}

	minPrice, maxPrice := -1.0, -1.0
	if v, err := strconv.ParseFloat(q.Get("minPrice"), 64); err == nil {
		minPrice = v
	}
	if v, err := strconv.ParseFloat(q.Get("maxPrice"), 64); err == nil {
		maxPrice = v
	}

	matched := []Product{}
	for _, p := range products {
		if g := q.Get("gender"); g != "" && p.Gender != g {
			continue
		}
		if !matchAny(q["category"], p.Category) || !matchAny(q["color"], p.Color) || !matchAny(q["size"], p.Size) {
			continue
		}
		if minPrice >= 0 && p.Price < minPrice {
			continue
		}
		if maxPrice >= 0 && p.Price > maxPrice {
			continue
		}
		matched = append(matched, p)
	}

	total := len(matched)
	totalPages := (total + limit - 1) / limit
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	writeJSON(w, map[string]any{
		"data": matched[start:end:end],
		"meta": map[string]int{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

func matchAny(wanted []string, value string) bool {
	return len(wanted) == 0 || slices.Contains(wanted, value)
}

func distinct(products []Product, field func(Product) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range products {
		if v := field(p); v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("testutil: encode response: %v", err))
	}
}

// SampleProducts returns a small catalog spanning every filter dimension.
func SampleProducts() []Product {
	return []Product{
		{ID: 1, Name: "Linen Shirt", Gender: "men", Category: "shirts", Color: "white", Size: "M", Price: 45},
		{ID: 2, Name: "Oxford Shirt", Gender: "men", Category: "shirts", Color: "blue", Size: "L", Price: 55},
		{ID: 3, Name: "Chino", Gender: "men", Category: "trousers", Color: "beige", Size: "M", Price: 60},
		{ID: 4, Name: "Denim Jacket", Gender: "men", Category: "jackets", Color: "blue", Size: "XL", Price: 120},
		{ID: 5, Name: "Polo", Gender: "men", Category: "shirts", Color: "red", Size: "S", Price: 35},
		{ID: 6, Name: "Summer Dress", Gender: "women", Category: "dresses", Color: "red", Size: "S", Price: 80},
		{ID: 7, Name: "Wrap Dress", Gender: "women", Category: "dresses", Color: "blue", Size: "M", Price: 95},
		{ID: 8, Name: "Blouse", Gender: "women", Category: "shirts", Color: "white", Size: "S", Price: 50},
		{ID: 9, Name: "Trench Coat", Gender: "women", Category: "jackets", Color: "beige", Size: "M", Price: 180},
		{ID: 10, Name: "Knit Top", Gender: "women", Category: "shirts", Color: "red", Size: "L", Price: 40},
	}
}

// RateLimitResponse returns a 429 with a nearly exhausted budget.
func RateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "30",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// ServerErrorResponse returns a 500.
func ServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// BadRequestResponse returns a 400.
func BadRequestResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"error": "invalid filter"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
