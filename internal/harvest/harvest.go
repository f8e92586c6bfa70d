// Package harvest fetches a list of reference pages one at a time, grades
// each page and stores a thumbnail from its og:image.
package harvest

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp"
	"golang.org/x/net/html"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/config"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

// Result is one harvested URL. Err is set when the page itself could not be
// fetched; a thumbnail failure only sets ThumbnailErr.
type Result struct {
	URL          string                 `json:"url"`
	Title        string                 `json:"title,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Image        string                 `json:"image,omitempty"`
	Thumbnail    string                 `json:"thumbnail"`
	ThumbnailErr string                 `json:"thumbnailError,omitempty"`
	Analysis     *engine.AnalysisResult `json:"analysis,omitempty"`
	Err          string                 `json:"error,omitempty"`
	FetchedAt    time.Time              `json:"fetchedAt"`
}

type Harvester struct {
	Client           *http.Client
	Analyzer         *engine.Analyzer
	Delay            time.Duration
	UserAgent        string
	MaxBytes         int64
	DefaultThumbnail string
	// ThumbDir receives downloaded thumbnails. Empty disables downloads.
	ThumbDir string
	Logger   *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a harvester from the harvest config section.
func New(cfg config.HarvestConfig, a *engine.Analyzer, thumbDir string) *Harvester {
	if a == nil {
		a = engine.NewAnalyzer(nil)
	}
	return &Harvester{
		Client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		Analyzer:         a,
		Delay:            cfg.Delay,
		UserAgent:        cfg.UserAgent,
		MaxBytes:         cfg.MaxBytes,
		DefaultThumbnail: cfg.DefaultThumbnail,
		ThumbDir:         thumbDir,
	}
}

func (h *Harvester) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ReadURLs reads one URL per line, skipping blanks and # comments.
func ReadURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := url.Parse(line)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid url %q", line)
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

// Run fetches urls in order with Delay between requests. A failed item is
// recorded and the run moves on. When ctx is cancelled the results gathered
// so far are returned with ctx's error.
func (h *Harvester) Run(ctx context.Context, urls []string) ([]Result, error) {
	sleep := h.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	results := make([]Result, 0, len(urls))
	for i, u := range urls {
		if i > 0 {
			if err := sleep(ctx, h.Delay); err != nil {
				return results, err
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := h.Fetch(ctx, u)
		if res.Err != "" {
			h.logger().Warn("harvest item failed", "url", u, "error", res.Err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Fetch harvests a single page.
func (h *Harvester) Fetch(ctx context.Context, pageURL string) Result {
	res := Result{URL: pageURL, Thumbnail: h.DefaultThumbnail, FetchedAt: time.Now().UTC()}

	body, contentType, err := h.get(ctx, pageURL, "text/html,application/xhtml+xml")
	if err != nil {
		res.Err = err.Error()
		return res
	}
	text := view.Decode(body, contentType)
	meta := extractMeta(text)
	res.Title = meta.title
	res.Description = meta.description

	a := h.Analyzer
	if a == nil {
		a = engine.NewAnalyzer(nil)
	}
	analysis := a.Analyze(view.ParseString(pageURL, text))
	res.Analysis = &analysis

	if meta.image == "" {
		return res
	}
	imgURL, err := resolve(pageURL, meta.image)
	if err != nil {
		h.thumbnailFailed(&res, err)
		return res
	}
	res.Image = imgURL
	if h.ThumbDir == "" {
		return res
	}
	path, err := h.thumbnail(ctx, imgURL)
	if err != nil {
		h.thumbnailFailed(&res, err)
		return res
	}
	res.Thumbnail = path
	return res
}

func (h *Harvester) thumbnailFailed(res *Result, err error) {
	res.Thumbnail = h.DefaultThumbnail
	res.ThumbnailErr = err.Error()
	h.logger().Warn("thumbnail unavailable, using default", "url", res.URL, "error", err)
}

func (h *Harvester) get(ctx context.Context, target, accept string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	req.Header.Set("Accept", accept)

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("GET %s: status %d", target, resp.StatusCode)
	}

	limit := h.MaxBytes
	if limit <= 0 {
		limit = 4 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("GET %s: body exceeds %d bytes", target, limit)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

var errNotImage = errors.New("not a supported image")

// thumbnail downloads imgURL, checks that it decodes as an image and stores
// it under ThumbDir named by the hash of its URL.
func (h *Harvester) thumbnail(ctx context.Context, imgURL string) (string, error) {
	data, _, err := h.get(ctx, imgURL, "image/*")
	if err != nil {
		return "", err
	}
	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsImage(data) {
		return "", errNotImage
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: %s", errNotImage, kind.MIME.Value)
	}

	sum := sha256.Sum256([]byte(imgURL))
	name := hex.EncodeToString(sum[:8]) + "." + kind.Extension
	if err := os.MkdirAll(h.ThumbDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(h.ThumbDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	abs := b.ResolveReference(r)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", fmt.Errorf("unsupported image url %q", ref)
	}
	return abs.String(), nil
}

type pageMeta struct {
	title       string
	description string
	image       string
}

// extractMeta reads the head of a page for og: tags, falling back to
// <title> and meta description.
func extractMeta(text string) pageMeta {
	var m pageMeta
	var titleTag, metaDesc string
	z := html.NewTokenizer(strings.NewReader(text))
	inTitle := false
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if m.title == "" {
				m.title = titleTag
			}
			if m.description == "" {
				m.description = metaDesc
			}
			return m
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "title":
				inTitle = tt == html.StartTagToken
			case "meta":
				key, content := "", ""
				for _, a := range tok.Attr {
					switch strings.ToLower(a.Key) {
					case "property", "name":
						if key == "" {
							key = strings.ToLower(strings.TrimSpace(a.Val))
						}
					case "content":
						content = strings.TrimSpace(a.Val)
					}
				}
				switch key {
				case "og:title":
					m.title = content
				case "og:description":
					m.description = content
				case "og:image", "og:image:url":
					if m.image == "" {
						m.image = content
					}
				case "description":
					metaDesc = content
				}
			case "body":
				// Metadata lives in the head.
				if m.title == "" {
					m.title = titleTag
				}
				if m.description == "" {
					m.description = metaDesc
				}
				return m
			}
		case html.TextToken:
			if inTitle && titleTag == "" {
				titleTag = strings.Join(strings.Fields(string(z.Text())), " ")
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				inTitle = false
			}
		}
	}
}
