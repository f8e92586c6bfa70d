package harvest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/config"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	thumb := pngBytes(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/good", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, `<html><head><title>Fallback</title>
<meta property="og:title" content="Ledger">
<meta name="description" content="Plain invoices">
<meta property="og:image" content="/thumb.png">
</head><body class="bg-gradient-to-r from-purple-500 to-pink-500"><h1>Unlock your potential</h1></body></html>`)
	})
	mux.HandleFunc("/broken-thumb", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><head><title>Broken  thumb</title><meta property="og:image" content="/not-an-image"></head><body><p>ok</p></body></html>`)
	})
	mux.HandleFunc("/thumb.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(thumb)
	})
	mux.HandleFunc("/not-an-image", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "definitely text")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newHarvester(t *testing.T) *Harvester {
	cfg := config.Default().Harvest
	cfg.Delay = time.Hour
	h := New(cfg, nil, t.TempDir())
	h.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	h.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return h
}

func TestRunContinuesPastFailures(t *testing.T) {
	srv := newServer(t)
	h := newHarvester(t)

	var slept []time.Duration
	h.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	results, err := h.Run(context.Background(), []string{
		srv.URL + "/good",
		srv.URL + "/missing",
		srv.URL + "/broken-thumb",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if len(slept) != 2 || slept[0] != time.Hour {
		t.Fatalf("delays = %v", slept)
	}

	good := results[0]
	if good.Err != "" || good.Title != "Ledger" || good.Description != "Plain invoices" {
		t.Fatalf("good = %+v", good)
	}
	if good.Analysis == nil || good.Analysis.Score == 0 {
		t.Fatalf("page was not graded: %+v", good.Analysis)
	}
	if !strings.HasSuffix(good.Thumbnail, ".png") {
		t.Fatalf("thumbnail = %q", good.Thumbnail)
	}
	if _, err := os.Stat(good.Thumbnail); err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}

	if results[1].Err == "" || results[1].Analysis != nil {
		t.Fatalf("missing page should fail: %+v", results[1])
	}

	broken := results[2]
	if broken.Err != "" || broken.Title != "Broken thumb" {
		t.Fatalf("broken = %+v", broken)
	}
	if broken.Thumbnail != h.DefaultThumbnail || broken.ThumbnailErr == "" {
		t.Fatalf("expected default thumbnail, got %q (%q)", broken.Thumbnail, broken.ThumbnailErr)
	}
}

func TestRunCancelled(t *testing.T) {
	srv := newServer(t)
	h := newHarvester(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	results, err := h.Run(ctx, []string{srv.URL + "/good", srv.URL + "/good"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want the one finished before cancel", len(results))
	}
}

func TestReadURLs(t *testing.T) {
	urls, err := ReadURLs(strings.NewReader("\ufeff# refs\nhttps://a.example/\n\n  http://b.example/x  \n"))
	if err != nil {
		t.Fatalf("ReadURLs: %v", err)
	}
	if len(urls) != 2 || urls[1] != "http://b.example/x" {
		t.Fatalf("urls = %v", urls)
	}
	if _, err := ReadURLs(strings.NewReader("ftp://nope\n")); err == nil {
		t.Fatalf("expected invalid url error")
	}
}

func TestExtractMetaFallbacks(t *testing.T) {
	m := extractMeta(`<head><title>
  Acme   Docs </title><meta content="Docs home" name="description"></head><body><meta property="og:title" content="late"></body>`)
	if m.title != "Acme Docs" || m.description != "Docs home" {
		t.Fatalf("meta = %+v", m)
	}
}
