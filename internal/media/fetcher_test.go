package media

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newTestFetcher(maxBytes int64) *Fetcher {
	return NewFetcher(slog.New(slog.NewTextHandler(io.Discard, nil)), FetcherConfig{
		Timeout:  5 * time.Second,
		MaxBytes: maxBytes,
	})
}

func TestInlineEmptyPerformsNoIO(t *testing.T) {
	t.Parallel()

	got, err := newTestFetcher(0).Inline(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}

func TestInlinePreservesLocatorOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slow.jpg":
			time.Sleep(50 * time.Millisecond)
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("slow"))
		case "/scan.png":
			w.Header()["Content-Type"] = nil
			_, _ = w.Write(pngHeader)
		case "/clip.mp4":
			w.Header().Set("Content-Type", "video/mp4; codecs=avc1")
			_, _ = w.Write([]byte("clip"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	locators := []string{srv.URL + "/slow.jpg", srv.URL + "/scan.png", srv.URL + "/clip.mp4"}
	got, err := newTestFetcher(0).Inline(context.Background(), locators)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 media, got %d", len(got))
	}
	wantTypes := []string{"image/jpeg", "image/png", "video/mp4"}
	for i, m := range got {
		if m.Locator != locators[i] {
			t.Fatalf("item %d: locator %q", i, m.Locator)
		}
		if m.ContentType != wantTypes[i] {
			t.Fatalf("item %d: content type %q", i, m.ContentType)
		}
		if m.Detail != DetailAuto {
			t.Fatalf("item %d: detail %q", i, m.Detail)
		}
	}
	wantURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("slow"))
	if got[0].DataURL != wantURL {
		t.Fatalf("unexpected data url: %s", got[0].DataURL)
	}
}

func TestInlineFailsFastNamingLocator(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/3.jpg" {
			http.Error(w, "gone", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var locators []string
	for _, name := range []string{"1", "2", "3", "4", "5"} {
		locators = append(locators, srv.URL+"/"+name+".jpg")
	}
	got, err := newTestFetcher(0).Inline(context.Background(), locators)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got != nil {
		t.Fatalf("expected no partial results, got %d", len(got))
	}
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), locators[2]) {
		t.Fatalf("error should name locator #3: %v", err)
	}
	if hits.Load() == 0 {
		t.Fatalf("expected the source to be contacted")
	}
}

func TestInlineRejectsOversizedMedia(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	_, err := newTestFetcher(4).Inline(context.Background(), []string{srv.URL + "/big.jpg"})
	if !errors.Is(err, ErrAssetTooLarge) {
		t.Fatalf("expected ErrAssetTooLarge, got %v", err)
	}
}

func TestResolveContentType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		data   []byte
		want   string
	}{
		{name: "header wins", header: "image/webp", data: pngHeader, want: "image/webp"},
		{name: "header params dropped", header: "image/heic; q=1", want: "image/heic"},
		{name: "sniffed", header: "", data: pngHeader, want: "image/png"},
		{name: "octet stream sniffed", header: "application/octet-stream", data: pngHeader, want: "image/png"},
		{name: "unknown bytes", header: "", data: []byte{0x00, 0x01, 0x02, 0x03}, want: DefaultContentType},
		{name: "nothing", want: DefaultContentType},
	}
	for _, tc := range cases {
		if got := ResolveContentType(tc.header, tc.data); got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}
