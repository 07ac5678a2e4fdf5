package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const octetStream = "application/octet-stream"

// FetcherConfig tunes media source access.
type FetcherConfig struct {
	Timeout  time.Duration
	MaxBytes int64
}

// Fetcher downloads media locators and encodes them as inline data URLs.
type Fetcher struct {
	client   *resty.Client
	maxBytes int64
	logger   *slog.Logger
}

// NewFetcher returns a Fetcher with a 30s timeout and the MaxAssetBytes cap
// unless cfg overrides them.
func NewFetcher(log *slog.Logger, cfg FetcherConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = MaxAssetBytes
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "image/*,video/*,*/*;q=0.5")
	return &Fetcher{
		client:   client,
		maxBytes: maxBytes,
		logger:   log.With(slog.String("service", "media_fetcher")),
	}
}

// Inline fetches every locator concurrently and returns the media in locator
// order. The first failure cancels the remaining fetches and is returned
// naming its locator; no partial result is returned. An empty input performs
// no I/O.
func (f *Fetcher) Inline(ctx context.Context, locators []string) ([]InlinedMedium, error) {
	if len(locators) == 0 {
		return []InlinedMedium{}, nil
	}
	out := make([]InlinedMedium, len(locators))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxItemsPerTurn)
	for i, locator := range locators {
		g.Go(func() error {
			m, err := f.fetch(gctx, locator)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrFetchFailed, locator, err)
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		f.logger.Error("media fetch failed", slog.Int("count", len(locators)), slog.Any("error", err))
		return nil, err
	}
	return out, nil
}

func (f *Fetcher) fetch(ctx context.Context, locator string) (InlinedMedium, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(locator)
	if err != nil {
		return InlinedMedium{}, err
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return InlinedMedium{}, fmt.Errorf("status %d", resp.StatusCode())
	}
	data, err := ReadAllWithLimit(body, f.maxBytes)
	if err != nil {
		return InlinedMedium{}, err
	}
	contentType := ResolveContentType(resp.Header().Get("Content-Type"), data)
	return InlinedMedium{
		Locator:     locator,
		ContentType: contentType,
		DataURL:     DataURL(contentType, data),
		Detail:      DetailAuto,
		Size:        len(data),
	}, nil
}

// ResolveContentType prefers the source header, then content sniffing, then
// DefaultContentType.
func ResolveContentType(header string, data []byte) string {
	if ct := mediaType(header); ct != "" && ct != octetStream {
		return ct
	}
	if len(data) > 0 {
		if ct := mediaType(mimetype.Detect(data).String()); ct != "" && ct != octetStream {
			return ct
		}
	}
	return DefaultContentType
}

// DataURL encodes data as data:<content type>;base64,<payload>.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func mediaType(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(value, ";", 2)[0]))
	}
	return mt
}
