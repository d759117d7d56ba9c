package vk_downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
)

var (
	ErrIncomplete = errors.New("downloaded size does not match content length")
)

// A StatusError is returned for any HTTP response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// CheckResponse returns a *StatusError if resp is not a 2xx response.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &StatusError{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode, Status: resp.Status}
}

// ProgressFunc receives the bytes downloaded so far and the bytes expected, where expected is -1 if unknown.
type ProgressFunc = func(downloaded int64, expected int64)

type Download interface {
	// AddDownloadedBytes increases how many bytes have been successfully downloaded so far.
	AddDownloadedBytes(n int64)

	// SetExpectedBytes records the total size of the download, or -1 if it is not known.
	SetExpectedBytes(n int64)

	// Context is the cancellable context of this Download.
	Context() context.Context

	// Progress returns the downloaded and expected bytes of the download.
	Progress() (int64, int64)

	// SaveStream will write the stream to the named file, calling AddDownloadedBytes as necessary. Returns the number
	// of bytes written.
	SaveStream(filename string, stream io.Reader) (int64, error)

	// SaveURL will make a GET request to the URL and then save the response body like SaveStream, verifying the
	// result against any advertised Content-Length.
	SaveURL(filename string, url string) (int64, error)

	// Write will ignore the data but will send the byte count to AddDownloadedBytes. Allows progress tracking using
	// io.MultiWriter (the Download must be the last writer to avoid counting failed writes).
	Write(p []byte) (n int, err error)
}

type download struct {
	ctx              context.Context
	client           *http.Client
	userAgent        string
	progressCallback ProgressFunc
	targetDir        string

	mu              sync.Mutex
	expectedBytes   int64
	downloadedBytes int64
}

func (d *download) AddDownloadedBytes(n int64) {
	d.mu.Lock()
	d.downloadedBytes += n
	d.mu.Unlock()
	d.notify()
}

func (d *download) SetExpectedBytes(n int64) {
	if n < 0 {
		n = -1
	}
	d.mu.Lock()
	d.expectedBytes = n
	d.mu.Unlock()
	d.notify()
}

func (d *download) Context() context.Context {
	return d.ctx
}

func (d *download) Progress() (int64, int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.downloadedBytes, d.expectedBytes
}

func (d *download) SaveStream(filename string, stream io.Reader) (int64, error) {
	targetPath := filepath.Join(d.targetDir, filename)
	if err := os.MkdirAll(filepath.Dir(targetPath), 0775); err != nil {
		return 0, fmt.Errorf("failed to create target dir: %w", err)
	}
	f, err := os.Create(targetPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open target file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(io.MultiWriter(f, d), &readerContext{ctx: d.ctx, r: stream})
	if err != nil {
		return n, fmt.Errorf("failed to save stream: %w", err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("failed to close target file: %w", err)
	}
	return n, nil
}

func (d *download) SaveURL(filename string, url string) (int64, error) {
	req, err := http.NewRequestWithContext(d.ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if err := CheckResponse(resp); err != nil {
		return 0, err
	}

	d.SetExpectedBytes(resp.ContentLength)
	n, err := d.SaveStream(filename, resp.Body)
	if err != nil {
		return n, err
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, fmt.Errorf("%w: got %d bytes, expected %d", ErrIncomplete, n, resp.ContentLength)
	}
	return n, nil
}

func (d *download) Write(p []byte) (n int, err error) {
	n = len(p)
	d.AddDownloadedBytes(int64(n))
	return n, nil
}

func (d *download) notify() {
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

// readerContext stops a long io.Copy at the next Read once its context is cancelled.
type readerContext struct {
	ctx context.Context
	r   io.Reader
}

func (r *readerContext) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

type DownloadBuilder interface {
	Build() Download
	WithClient(client *http.Client) DownloadBuilder
	WithContext(ctx context.Context) DownloadBuilder
	WithProgressCallback(f ProgressFunc) DownloadBuilder
	WithTargetDir(dir string) DownloadBuilder
	WithUserAgent(userAgent string) DownloadBuilder
}

type downloadBuilder struct {
	ctx              context.Context
	client           *http.Client
	userAgent        string
	progressCallback ProgressFunc
	targetDir        string
}

func NewDownloadBuilder() DownloadBuilder {
	return &downloadBuilder{
		ctx:       context.Background(),
		client:    http.DefaultClient,
		userAgent: DefaultUserAgent,
		targetDir: ".",
	}
}

func (b *downloadBuilder) Build() Download {
	return &download{
		ctx:              b.ctx,
		client:           b.client,
		userAgent:        b.userAgent,
		progressCallback: b.progressCallback,
		targetDir:        b.targetDir,
		expectedBytes:    -1,
	}
}

func (b *downloadBuilder) WithClient(client *http.Client) DownloadBuilder {
	b.client = client
	return b
}

func (b *downloadBuilder) WithContext(ctx context.Context) DownloadBuilder {
	b.ctx = ctx
	return b
}

func (b *downloadBuilder) WithProgressCallback(f ProgressFunc) DownloadBuilder {
	b.progressCallback = f
	return b
}

func (b *downloadBuilder) WithTargetDir(dir string) DownloadBuilder {
	b.targetDir = dir
	return b
}

func (b *downloadBuilder) WithUserAgent(userAgent string) DownloadBuilder {
	b.userAgent = userAgent
	return b
}
