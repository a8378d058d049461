// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	f := NewFetcher(server.URL)
	result, err := f.Fetch(context.Background(), Metadata{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer result.Body.Close()

	if result.NotModified {
		t.Fatal("got NotModified=true on first fetch")
	}
	body, err := io.ReadAll(result.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("got body %q, want payload", body)
	}
	if result.Meta.ETag != `"v1"` {
		t.Errorf("got ETag %q, want \"v1\"", result.Meta.ETag)
	}
}

func TestFetchHonorsConditionalHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	f := NewFetcher(server.URL)
	result, err := f.Fetch(context.Background(), Metadata{ETag: `"v1"`})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !result.NotModified {
		t.Fatal("got NotModified=false, want true")
	}
	if result.Body != nil {
		t.Error("Body should be nil on a 304 response")
	}
}

func TestFetchDecompressesGzipBody(t *testing.T) {
	var gzipped bytes.Buffer
	gw := gzip.NewWriter(&gzipped)
	if _, err := gw.Write([]byte("1.0.0.0\t1.0.0.255\t13335\tUS\tCloudflare, Inc.\n")); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(gzipped.Bytes())
	}))
	defer server.Close()

	f := NewFetcher(server.URL)
	result, err := f.Fetch(context.Background(), Metadata{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	want := "1.0.0.0\t1.0.0.255\t13335\tUS\tCloudflare, Inc.\n"
	if string(body) != want {
		t.Errorf("got body %q, want %q", body, want)
	}
}

func TestFetchUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := NewFetcher(server.URL)
	if _, err := f.Fetch(context.Background(), Metadata{}); err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
}
