package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(srv *httptest.Server) *Client {
	c := NewClient("key", 5)
	c.baseURL = srv.URL
	c.retryBase = 5 * time.Millisecond
	return c
}

func TestLookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("maxResults"); got != "1" {
			t.Errorf("expected maxResults=1, got %q", got)
		}
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"id":"v1","volumeInfo":{
			"title":"Sapiens","authors":["Yuval Noah Harari"],"pageCount":443}}]}`))
	}))
	defer srv.Close()

	rec, err := testClient(srv).Lookup(context.Background(), "Sapiens")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.Title != "Sapiens" || rec.Authors != "Yuval Noah Harari" || rec.PageCount != "443" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Description != NoDescription {
		t.Fatalf("expected description fallback, got %q", rec.Description)
	}
}

func TestLookup_NotFoundVsFetchFailed(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	defer empty.Close()
	if _, err := testClient(empty).Lookup(context.Background(), "zzzznotabook1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not-json`))
	}))
	defer broken.Close()
	if _, err := testClient(broken).Lookup(context.Background(), "anything"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected fetch error distinct from not-found, got %v", err)
	}
}

func TestSuggest_PreservesOrderAndSwallowsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems":2,"items":[
			{"id":"a","volumeInfo":{"title":"First"}},
			{"id":"b","volumeInfo":{"title":"Second","authors":["X"]}}]}`))
	}))
	defer srv.Close()

	got, err := testClient(srv).Suggest(context.Background(), "fir")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(got) != 2 || got[0].Title != "First" || got[1].Title != "Second" {
		t.Fatalf("order not preserved: %+v", got)
	}
}

func TestSuggest_EmptyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	defer srv.Close()

	got, err := testClient(srv).Suggest(context.Background(), "zzz")
	if err != nil {
		t.Fatalf("expected nil error on zero matches, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty candidates, got %+v", got)
	}
}

func TestGet_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"id":"v1","volumeInfo":{"title":"Retry"}}]}`))
	}))
	defer srv.Close()

	rec, err := testClient(srv).Lookup(context.Background(), "Retry")
	if err != nil {
		t.Fatalf("lookup after retry: %v", err)
	}
	if rec.Title != "Retry" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestGet_NoRetryOn4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := testClient(srv).Lookup(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected single call on 403, got %d", calls)
	}
}
