package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdempotencyStore struct {
	records map[string]string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{records: map[string]string{}}
}

func (f *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	if value, ok := f.records[key]; ok {
		return value, nil
	}
	return "", redis.Nil
}

func (f *fakeIdempotencyStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.records[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.records[key]; ok {
		return false, nil
	}
	f.records[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "test:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.records, key)
	}
	return nil
}

func idempotencyTestRouter(store *fakeIdempotencyStore, calls *int) http.Handler {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithTenantID(r.Context(), "tenant-a")
			ctx = WithUserID(ctx, "user-a")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(Idempotency(store, nil))
	router.Post("/api/v1/assignments", func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(fmt.Sprintf(`{"data":{"attempt":%d}}`, *calls)))
	})
	router.Get("/api/v1/assignments/{assignmentId}", func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	})
	return router
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	router := idempotencyTestRouter(store, &calls)

	body := `{"patient_id":"p1"}`

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "abc-123")
	router.ServeHTTP(first, req)

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, 1, calls)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "abc-123")
	router.ServeHTTP(second, req)

	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls, "handler must not run again on replay")
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	router := idempotencyTestRouter(store, &calls)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(`{"patient_id":"p1"}`))
	req.Header.Set("Idempotency-Key", "abc-123")
	router.ServeHTTP(first, req)
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(`{"patient_id":"p2"}`))
	req.Header.Set("Idempotency-Key", "abc-123")
	router.ServeHTTP(second, req)

	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "IDEMPOTENCY_KEY_REUSED")
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	router := idempotencyTestRouter(store, &calls)

	body := `{"patient_id":"p1"}`
	key := store.IdempotencyKey("tenant-a|user-a|POST|/api/v1/assignments", "abc-123")
	store.records[key] = fmt.Sprintf(`{"pending":true,"request_hash":%q}`, hashBody([]byte(body)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "abc-123")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFLICT")
	assert.Equal(t, 0, calls, "handler must not run while the first attempt is in flight")
}

func TestIdempotencyClaimPrecedesHandler(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0

	router := chi.NewRouter()
	router.Use(Idempotency(store, nil))
	router.Post("/api/v1/assignments", func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Len(t, store.records, 1, "key must be claimed before the handler runs")
		for _, value := range store.records {
			assert.Contains(t, value, `"pending":true`)
		}
		w.WriteHeader(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", "abc-123")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, calls)
	for _, value := range store.records {
		assert.NotContains(t, value, `"pending":true`, "final record must replace the claim")
	}
}

func TestIdempotencyRequiresKeyHeader(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	router := idempotencyTestRouter(store, &calls)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(`{}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, calls)
}

func TestIdempotencySkipsUnprotectedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	router := idempotencyTestRouter(store, &calls)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assignments/a1", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)
	assert.Empty(t, store.records)
}

func TestIdempotencyScopesKeysByTenantAndUser(t *testing.T) {
	store := newFakeIdempotencyStore()
	calls := 0
	router := idempotencyTestRouter(store, &calls)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", "abc-123")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, store.records, 1)
	for key := range store.records {
		assert.Contains(t, key, "tenant-a|user-a|POST|/api/v1/assignments")
		assert.Contains(t, key, "abc-123")
	}
}

func TestRouteTTLMatchesProtectedPatterns(t *testing.T) {
	cases := []struct {
		method  string
		pattern string
		ttl     time.Duration
		matched bool
	}{
		{http.MethodPost, "/api/v1/inventory", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/inventory/{inventoryId}/adjust", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/assignments/{assignmentId}/deliver", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/sales/{saleId}/payments", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/payments/{paymentId}/void", criticalIdempotencyTTL, true},
		{http.MethodGet, "/api/v1/inventory", 0, false},
		{http.MethodPost, "/api/v1/pricing/preview", 0, false},
	}

	for _, tc := range cases {
		ttl, ok := routeTTL(tc.method, tc.pattern)
		assert.Equal(t, tc.matched, ok, "%s %s", tc.method, tc.pattern)
		assert.Equal(t, tc.ttl, ttl, "%s %s", tc.method, tc.pattern)
	}
}
