package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/service"
)

type fakeStoreEntry struct {
	fingerprint string
	status      string
	cached      *service.CachedResponse
}

type fakeIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*fakeStoreEntry
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{entries: make(map[string]*fakeStoreEntry)}
}

func (s *fakeIdempotencyStore) Begin(_ context.Context, scope, key, fingerprint string, _ service.BeginMeta, _ time.Duration) (service.IdempotencyBeginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := scope + ":" + key
	entry, ok := s.entries[id]
	if !ok || entry.status == "failed" {
		s.entries[id] = &fakeStoreEntry{fingerprint: fingerprint, status: "pending"}
		return service.IdempotencyBeginResult{State: service.IdempotencyStateNew}, nil
	}
	if entry.fingerprint != fingerprint {
		return service.IdempotencyBeginResult{State: service.IdempotencyStateConflict}, nil
	}
	if entry.status == "completed" {
		return service.IdempotencyBeginResult{State: service.IdempotencyStateReplay, Cached: entry.cached}, nil
	}
	return service.IdempotencyBeginResult{State: service.IdempotencyStateInProgress}, nil
}

func (s *fakeIdempotencyStore) Complete(_ context.Context, scope, key, _ string, resp service.CachedResponse, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[scope+":"+key]; ok {
		entry.status = "completed"
		entry.cached = &resp
	}
	return nil
}

func (s *fakeIdempotencyStore) Fail(_ context.Context, scope, key, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[scope+":"+key]; ok {
		entry.status = "failed"
	}
	return nil
}

func (s *fakeIdempotencyStore) CleanupExpired(context.Context, time.Time, int) (int64, error) {
	return 0, nil
}

func newIdempotencyHandlerForTest(store service.IdempotencyStore, next http.HandlerFunc) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := NewIdempotency(store, "http-checkout", time.Hour, logger)
	return mw.Middleware()(next)
}

func TestIdempotencyRequiresKey(t *testing.T) {
	handler := newIdempotencyHandlerForTest(newFakeIdempotencyStore(), func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader("{}")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing key: expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader("{}"))
	req.Header.Set("Idempotency-Key", strings.Repeat("k", 200))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized key: expected 400, got %d", rec.Code)
	}
}

func TestIdempotencyReplaysCachedResponse(t *testing.T) {
	calls := 0
	handler := newIdempotencyHandlerForTest(newFakeIdempotencyStore(), func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_id":"order-1"}`))
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"item":"a"}`))
		req.Header.Set("Idempotency-Key", "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	if first.Code != http.StatusCreated {
		t.Fatalf("first: expected 201, got %d", first.Code)
	}
	if first.Header().Get("X-Idempotency-Replayed") != "" {
		t.Fatal("first response must not carry the replay header")
	}

	second := do()
	if second.Code != http.StatusCreated {
		t.Fatalf("replay: expected 201, got %d", second.Code)
	}
	if second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Fatal("replay must set X-Idempotency-Replayed")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body must be bit-identical: %q vs %q", first.Body.String(), second.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler must run once, ran %d times", calls)
	}
}

func TestIdempotencyKeyReuseDifferentBodyConflicts(t *testing.T) {
	handler := newIdempotencyHandlerForTest(newFakeIdempotencyStore(), func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"item":"a"}`))
	req.Header.Set("Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	req = httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"item":"DIFFERENT"}`))
	req.Header.Set("Idempotency-Key", "key-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on fingerprint mismatch, got %d", rec.Code)
	}
}

func TestIdempotencyFailedResponseNotCached(t *testing.T) {
	calls := 0
	handler := newIdempotencyHandlerForTest(newFakeIdempotencyStore(), func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"item":"a"}`))
		req.Header.Set("Idempotency-Key", "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusBadGateway {
		t.Fatalf("first: expected 502, got %d", rec.Code)
	}
	// A 5xx marks the record failed, so the retry runs the handler again.
	if rec := do(); rec.Code != http.StatusCreated {
		t.Fatalf("retry: expected 201, got %d", rec.Code)
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler runs, got %d", calls)
	}
}

func TestIdempotencyBodyRestoredForHandler(t *testing.T) {
	var seen string
	handler := newIdempotencyHandlerForTest(newFakeIdempotencyStore(), func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"item":"a"}`))
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != `{"item":"a"}` {
		t.Fatalf("handler must see the original body, got %q", seen)
	}
}
