package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// fakeCatalog is an in-memory catalog API served over httptest.
type fakeCatalog struct {
	products  []types.Product
	total     int // reported by /items/count; defaults to len(products)
	failPage  int // /items/paginated returns 500 for this page
	status    int // forced status for every request when non-zero
	delay     time.Duration
	requests  atomic.Int32
	lastQuery atomic.Value
	lastAuth  atomic.Value
}

func (f *fakeCatalog) server(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.requests.Add(1)
			f.lastAuth.Store(req.Header.Get("Authorization"))
			f.lastQuery.Store(req.URL.Query().Encode())
			if f.delay > 0 {
				time.Sleep(f.delay)
			}
			if f.status != 0 {
				w.WriteHeader(f.status)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/items/count", func(w http.ResponseWriter, req *http.Request) {
		total := f.total
		if total == 0 {
			total = len(f.products)
		}
		json.NewEncoder(w).Encode(map[string]int{"totalCount": total})
	})
	r.Get("/items/paginated", func(w http.ResponseWriter, req *http.Request) {
		page, _ := strconv.Atoi(req.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		if page == f.failPage {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		start := (page - 1) * limit
		end := start + limit
		if start > len(f.products) {
			start = len(f.products)
		}
		if end > len(f.products) {
			end = len(f.products)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"products": f.products[start:end],
			"total":    len(f.products),
		})
	})
	r.Get("/categories", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"categories": []types.Category{{Name: "Hardware", Subcategories: []string{"Bolts"}}},
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func makeProducts(n int) []types.Product {
	out := make([]types.Product, n)
	for i := range out {
		out[i] = types.Product{
			ItemCode: fmt.Sprintf("P-%04d", i+1),
			Price:    decimal.NewFromInt(int64(i + 1)),
			Quantity: 1,
		}
	}
	return out
}

func newTestClient(t *testing.T, baseURL string, cfg Config) *Client {
	t.Helper()
	cfg.BaseURL = baseURL
	c, err := New(cfg, StaticToken("secret"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}, StaticToken("x")); err == nil {
		t.Fatal("expected error for empty base URL")
	}
	if _, err := New(Config{BaseURL: "not a url"}, StaticToken("x")); err == nil {
		t.Fatal("expected error for invalid base URL")
	}
}

func TestFetchPage_SendsQueryAndToken(t *testing.T) {
	fake := &fakeCatalog{products: makeProducts(25)}
	srv := fake.server(t)
	c := newTestClient(t, srv.URL, Config{})

	resp, err := c.FetchPage(context.Background(), types.PageRequest{
		Page:          2,
		Limit:         10,
		SearchQuery:   " bolt ",
		ActiveFilters: types.FilterSet{types.FilterSold, types.FilterInStock},
		Subcategories: []string{"Nuts", "Bolts"},
	})
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	if got := fake.lastAuth.Load(); got != "Bearer secret" {
		t.Errorf("Authorization = %v, want Bearer secret", got)
	}
	wantQuery := "filters=inStock%2Csold&limit=10&page=2&search=bolt&sortBy=itemCode&sortOrder=asc&subcategory=Bolts%2CNuts"
	if got := fake.lastQuery.Load(); got != wantQuery {
		t.Errorf("query = %v\nwant    %s", got, wantQuery)
	}

	if len(resp.Products) != 10 || resp.Total != 25 || resp.TotalPages != 3 {
		t.Errorf("got %d products, total %d, pages %d", len(resp.Products), resp.Total, resp.TotalPages)
	}
	if !resp.HasNext || !resp.HasPrev {
		t.Errorf("page 2 of 3 should have next and prev: %+v", resp)
	}
	if resp.Source != types.SourceNetwork {
		t.Errorf("Source = %q, want network", resp.Source)
	}
}

func TestFetch_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, types.ErrSessionExpired},
		{"forbidden", http.StatusForbidden, types.ErrRemoteUnavailable},
		{"server error", http.StatusInternalServerError, types.ErrRemoteUnavailable},
		{"not found", http.StatusNotFound, types.ErrRemoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCatalog{status: tt.status}
			srv := fake.server(t)
			c := newTestClient(t, srv.URL, Config{})

			_, err := c.FetchTotalCount(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFetch_MissingToken(t *testing.T) {
	fake := &fakeCatalog{products: makeProducts(1)}
	srv := fake.server(t)
	c, err := New(Config{BaseURL: srv.URL}, StaticToken(""))
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.FetchPage(context.Background(), types.PageRequest{Page: 1, Limit: 10})
	if !errors.Is(err, types.ErrAuthenticationMissing) {
		t.Fatalf("error = %v, want ErrAuthenticationMissing", err)
	}
	if n := fake.requests.Load(); n != 0 {
		t.Errorf("no request should be sent without a token, got %d", n)
	}
}

func TestFetch_TimeoutIsRemoteUnavailable(t *testing.T) {
	fake := &fakeCatalog{products: makeProducts(1), delay: 200 * time.Millisecond}
	srv := fake.server(t)
	c := newTestClient(t, srv.URL, Config{PageTimeout: 20 * time.Millisecond})

	_, err := c.FetchPage(context.Background(), types.PageRequest{Page: 1, Limit: 10})
	if !errors.Is(err, types.ErrRemoteUnavailable) {
		t.Fatalf("error = %v, want ErrRemoteUnavailable", err)
	}
}

func TestFetch_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, Config{})
	_, err := c.FetchCategories(context.Background())
	if !errors.Is(err, types.ErrRemoteUnavailable) {
		t.Fatalf("error = %v, want ErrRemoteUnavailable", err)
	}
}

func TestFetchCategories(t *testing.T) {
	fake := &fakeCatalog{}
	srv := fake.server(t)
	c := newTestClient(t, srv.URL, Config{})

	cats, err := c.FetchCategories(context.Background())
	if err != nil {
		t.Fatalf("FetchCategories failed: %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "Hardware" {
		t.Errorf("categories = %+v", cats)
	}
}

func TestFetchFullCatalog_ExactBatchCount(t *testing.T) {
	tests := []struct {
		total       int
		wantBatches int32
	}{
		{0, 0},
		{1, 1},
		{100, 1},
		{101, 2},
		{250, 3},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.total), func(t *testing.T) {
			fake := &fakeCatalog{products: makeProducts(tt.total)}
			srv := fake.server(t)
			c := newTestClient(t, srv.URL, Config{BatchSize: 100})

			products, err := c.FetchFullCatalog(context.Background(), tt.total)
			if err != nil {
				t.Fatalf("FetchFullCatalog failed: %v", err)
			}
			if got := fake.requests.Load(); got != tt.wantBatches {
				t.Errorf("requests = %d, want %d", got, tt.wantBatches)
			}
			if len(products) != tt.total {
				t.Errorf("got %d products, want %d", len(products), tt.total)
			}
		})
	}
}

func TestFetchFullCatalog_DoesNotStopOnShortBatch(t *testing.T) {
	// Server reports 250 but only holds 120 rows: batch 2 is short and
	// batch 3 is empty, yet all three are requested.
	fake := &fakeCatalog{products: makeProducts(120)}
	srv := fake.server(t)
	c := newTestClient(t, srv.URL, Config{BatchSize: 100})

	products, err := c.FetchFullCatalog(context.Background(), 250)
	if err != nil {
		t.Fatalf("FetchFullCatalog failed: %v", err)
	}
	if got := fake.requests.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
	if len(products) != 120 {
		t.Errorf("got %d products, want 120", len(products))
	}
}

func TestFetchFullCatalog_FailsOnAnyBatch(t *testing.T) {
	fake := &fakeCatalog{products: makeProducts(250), failPage: 2}
	srv := fake.server(t)
	c := newTestClient(t, srv.URL, Config{BatchSize: 100})

	products, err := c.FetchFullCatalog(context.Background(), 250)
	if !errors.Is(err, types.ErrRemoteUnavailable) {
		t.Fatalf("error = %v, want ErrRemoteUnavailable", err)
	}
	if products != nil {
		t.Errorf("expected no partial result, got %d products", len(products))
	}
}

func TestFetchFullCatalog_HugeReportedCount(t *testing.T) {
	fake := &fakeCatalog{products: makeProducts(150), failPage: 2}
	srv := fake.server(t)
	c := newTestClient(t, srv.URL, Config{BatchSize: 100})

	products, err := c.FetchFullCatalog(context.Background(), math.MaxInt)
	if !errors.Is(err, types.ErrRemoteUnavailable) {
		t.Fatalf("error = %v, want ErrRemoteUnavailable", err)
	}
	if products != nil {
		t.Errorf("expected no partial result, got %d products", len(products))
	}
	if got := fake.requests.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestFetchFullCatalog_DeduplicatesItemCodes(t *testing.T) {
	products := makeProducts(3)
	dup := products[0]
	dup.Quantity = 99
	fake := &fakeCatalog{products: append(products, dup)}
	srv := fake.server(t)
	c := newTestClient(t, srv.URL, Config{BatchSize: 2})

	got, err := c.FetchFullCatalog(context.Background(), 4)
	if err != nil {
		t.Fatalf("FetchFullCatalog failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d products, want 3", len(got))
	}
	if got[0].ItemCode != "P-0001" || got[0].Quantity != 99 {
		t.Errorf("duplicate should keep first position with later fields, got %+v", got[0])
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	fake := &fakeCatalog{status: http.StatusServiceUnavailable}
	srv := fake.server(t)
	c := newTestClient(t, srv.URL, Config{BreakerFailures: 2, BreakerCooldown: time.Minute})

	for i := 0; i < 2; i++ {
		c.FetchTotalCount(context.Background())
	}
	sent := fake.requests.Load()

	_, err := c.FetchTotalCount(context.Background())
	if !errors.Is(err, types.ErrRemoteUnavailable) {
		t.Fatalf("error = %v, want ErrRemoteUnavailable", err)
	}
	if got := fake.requests.Load(); got != sent {
		t.Errorf("open breaker should not send requests, sent %d more", got-sent)
	}
}

func TestBreaker_IgnoresSessionExpiry(t *testing.T) {
	fake := &fakeCatalog{status: http.StatusUnauthorized}
	srv := fake.server(t)
	c := newTestClient(t, srv.URL, Config{BreakerFailures: 1, BreakerCooldown: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := c.FetchTotalCount(context.Background())
		if !errors.Is(err, types.ErrSessionExpired) {
			t.Fatalf("call %d: error = %v, want ErrSessionExpired", i, err)
		}
	}
	if got := fake.requests.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	p := NewProbe(srv.URL, time.Second)
	if !p.Connected(context.Background()) {
		t.Error("any HTTP response should count as connected")
	}

	srv.Close()
	if p.Connected(context.Background()) {
		t.Error("closed server should not count as connected")
	}

	if NewProbe("", 0).Connected(context.Background()) {
		t.Error("empty URL should never be connected")
	}
}
