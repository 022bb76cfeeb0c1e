package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestResolve_PlainText(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "Mozilla") {
			t.Errorf("User-Agent = %q, want browser UA", got)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("  hello from the server  "))
	})

	f := NewFetcher(0, 0)
	res := f.Resolve(context.Background(), srv.URL)
	if res.Failed() {
		t.Fatalf("Resolve failed: %s", res.Message)
	}

	block := res.Block()
	if !strings.Contains(block, "--- START CONTEXT FROM URL: "+srv.URL+" ---") {
		t.Errorf("missing start marker:\n%s", block)
	}
	if !strings.Contains(block, "hello from the server") {
		t.Errorf("missing body text:\n%s", block)
	}
	if strings.Contains(block, "  hello") {
		t.Errorf("body not trimmed:\n%s", block)
	}
}

func TestResolve_HTMLStripped(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><style>p{color:red}</style>
			<script>alert("nope")</script></head>
			<body><h1>Title</h1><p>Body text.</p></body></html>`))
	})

	f := NewFetcher(0, 0)
	res := f.Resolve(context.Background(), srv.URL)
	if res.Failed() {
		t.Fatalf("Resolve failed: %s", res.Message)
	}

	block := res.Block()
	if !strings.Contains(block, "Title") || !strings.Contains(block, "Body text.") {
		t.Errorf("text content missing:\n%s", block)
	}
	if strings.Contains(block, "alert") || strings.Contains(block, "color:red") {
		t.Errorf("script/style leaked into text:\n%s", block)
	}
	if strings.Contains(block, "<h1>") {
		t.Errorf("markup leaked into text:\n%s", block)
	}
}

func TestResolve_HTTPError(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	f := NewFetcher(0, 0)
	res := f.Resolve(context.Background(), srv.URL)
	if !res.Failed() {
		t.Fatal("404 should fail")
	}
	if !strings.Contains(res.Message, "status 404") {
		t.Errorf("Message = %q", res.Message)
	}
	if res.Block() != "" {
		t.Errorf("failed result carries block %q", res.Block())
	}
}

func TestResolve_UnsupportedContentType(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	})

	f := NewFetcher(0, 0)
	res := f.Resolve(context.Background(), srv.URL)
	if !res.Failed() {
		t.Fatal("image/png should fail")
	}
	if !strings.Contains(res.Message, "Unsupported content type 'image/png'") {
		t.Errorf("Message = %q", res.Message)
	}
}

// TestResolve_Truncation verifies an oversized body stays a success with a
// truncation notice, never an error.
func TestResolve_Truncation(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(strings.Repeat("a", 64*1024)))
	})

	f := NewFetcher(0, 1024)
	res := f.Resolve(context.Background(), srv.URL)
	if res.Failed() {
		t.Fatalf("truncation must not fail: %s", res.Message)
	}
	if !strings.Contains(res.Block(), "... (Content Truncated)") {
		t.Errorf("missing truncation notice:\n%s", res.Block()[:200])
	}
	if !strings.Contains(res.Message, "Truncated") {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestResolve_Timeout(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte("late"))
	})

	f := NewFetcher(50*time.Millisecond, 0)
	res := f.Resolve(context.Background(), srv.URL)
	if !res.Failed() {
		t.Fatal("timeout should fail")
	}
	if !strings.Contains(res.Message, "Timeout fetching URL") {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestResolve_EmptyBody(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
	})

	f := NewFetcher(0, 0)
	res := f.Resolve(context.Background(), srv.URL)
	if res.Failed() {
		t.Fatalf("Resolve failed: %s", res.Message)
	}
	if res.ContextAdded {
		t.Error("empty body should add no context")
	}
	if res.Block() != "" {
		t.Errorf("empty body produced block %q", res.Block())
	}
}

func TestResolve_ConnectionRefused(t *testing.T) {
	// Port 1 is essentially never listening.
	f := NewFetcher(2*time.Second, 0)
	res := f.Resolve(context.Background(), "http://127.0.0.1:1/")
	if !res.Failed() {
		t.Fatal("unreachable host should fail")
	}
	if !strings.Contains(res.Message, "Error") {
		t.Errorf("Message = %q", res.Message)
	}
}
