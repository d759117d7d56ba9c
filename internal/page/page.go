// Package page fetches the HTML of video pages.
package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/vk-downloader"
	"github.com/alanbriolat/vk-downloader/generic"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

var protocols = generic.NewSet("http", "https")

type Fetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	log       *zap.SugaredLogger
}

type Option func(*Fetcher)

func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		f.userAgent = userAgent
	}
}

// WithTimeout bounds each Fetch; zero disables the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    http.DefaultClient,
		userAgent: vk_downloader.DefaultUserAgent,
		log:       zap.S().Named("page"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs the page and returns its body as text. Non-2xx responses give a *vk_downloader.StatusError.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}
	if !protocols.Contains(parsedURL.Scheme) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, parsedURL.Scheme)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	f.log.Debugw("fetching page", "page_url", pageURL)
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()
	if err := vk_downloader.CheckResponse(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	f.log.Debugw("fetched page", "page_url", pageURL, "bytes", len(body))
	return string(body), nil
}
