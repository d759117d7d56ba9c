// Package batch turns a list of page URLs into downloaded files: every page is resolved to a single DownloadTask
// (serially, since resolving may ask the user to pick a resolution), then all tasks are handed to a worker pool.
package batch

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/alanbriolat/vk-downloader"
	"github.com/alanbriolat/vk-downloader/generic"
	"github.com/alanbriolat/vk-downloader/internal/extract"
	"github.com/alanbriolat/vk-downloader/internal/page"
	"github.com/alanbriolat/vk-downloader/internal/pool"
	"github.com/alanbriolat/vk-downloader/internal/progress"
	"github.com/alanbriolat/vk-downloader/internal/selector"
)

type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// A PageError is a failure to turn one page URL into a DownloadTask.
type PageError struct {
	URL string
	Err error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s: %v", e.URL, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

type Report struct {
	PageErrors []*PageError
	Tasks      *pool.Report
}

// Err aggregates page and task failures, or is nil if everything succeeded.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, e := range r.PageErrors {
		result = multierror.Append(result, e)
	}
	if r.Tasks != nil {
		if err := r.Tasks.Err(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

type Batch struct {
	config  vk_downloader.Config
	client  *http.Client
	fetcher Fetcher
	chooser selector.Chooser
	runner  pool.Runner
	tracker func(total int) *progress.Tracker
	log     *zap.SugaredLogger
}

type Option func(*Batch)

// WithClient sets the HTTP client for both page fetches and downloads.
func WithClient(client *http.Client) Option {
	return func(b *Batch) {
		b.client = client
	}
}

func WithFetcher(fetcher Fetcher) Option {
	return func(b *Batch) {
		b.fetcher = fetcher
	}
}

// WithChooser sets how the user is asked for a resolution when the configured quality preference doesn't decide it.
func WithChooser(chooser selector.Chooser) Option {
	return func(b *Batch) {
		b.chooser = chooser
	}
}

// WithRunner replaces the in-process downloader, e.g. with a pool.SubprocessRunner.
func WithRunner(runner pool.Runner) Option {
	return func(b *Batch) {
		b.runner = runner
	}
}

// WithTracker overrides how the shared progress tracker is created for the in-process downloader.
func WithTracker(f func(total int) *progress.Tracker) Option {
	return func(b *Batch) {
		b.tracker = f
	}
}

func New(config vk_downloader.Config, opts ...Option) (*Batch, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	b := &Batch{
		config:  config,
		client:  http.DefaultClient,
		tracker: progress.NewDefaultTracker,
		log:     zap.S().Named("batch"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.fetcher == nil {
		b.fetcher = page.NewFetcher(
			page.WithClient(b.client),
			page.WithUserAgent(config.UserAgent),
			page.WithTimeout(config.PageTimeout),
		)
	}
	if b.chooser == nil {
		b.chooser = selector.Interactive()
	}
	b.chooser = selector.PreferenceChooser{Preference: config.Quality, Fallback: b.chooser}
	return b, nil
}

// Resolve fetches and extracts a single page, selects a resolution, and builds its DownloadTask.
func (b *Batch) Resolve(ctx context.Context, pageURL string) (vk_downloader.DownloadTask, error) {
	log := b.log.With("page_url", pageURL)
	log.Info("getting videos")
	html, err := b.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return vk_downloader.DownloadTask{}, err
	}
	extracted, err := extract.Extract(html)
	if err != nil {
		return vk_downloader.DownloadTask{}, err
	}
	log.Debugw("found videos", "title", extracted.Title, "resolutions", vk_downloader.Labels(extracted.Candidates))

	candidate, err := selector.Select(extracted.Candidates, b.chooser)
	if err != nil {
		return vk_downloader.DownloadTask{}, err
	}

	title := vk_downloader.SanitizeTitle(candidate.Title)
	if title == "" {
		title = vk_downloader.FallbackTitle(pageURL)
	}
	filename, err := b.config.Filename(vk_downloader.FilenameArgs{
		Title:      title,
		Resolution: candidate.Resolution,
		Ext:        vk_downloader.InferExt(candidate.URL),
	})
	if err != nil {
		return vk_downloader.DownloadTask{}, err
	}
	return vk_downloader.DownloadTask{
		ID:         vk_downloader.NewTaskID(),
		PageURL:    pageURL,
		URL:        candidate.URL,
		Filename:   filename,
		Resolution: candidate.Resolution,
	}, nil
}

// Plan resolves every page in order. A page that fails is recorded and skipped; the rest are still resolved.
// Filenames are made unique across the returned tasks.
func (b *Batch) Plan(ctx context.Context, pageURLs []string) ([]vk_downloader.DownloadTask, []*PageError) {
	var tasks []vk_downloader.DownloadTask
	var pageErrors []*PageError
	filenames := generic.NewSet[string]()
	for _, pageURL := range pageURLs {
		if err := ctx.Err(); err != nil {
			pageErrors = append(pageErrors, &PageError{URL: pageURL, Err: err})
			continue
		}
		task, err := b.Resolve(ctx, pageURL)
		if err != nil {
			b.log.Errorw("skipping page", "page_url", pageURL, "error", err)
			pageErrors = append(pageErrors, &PageError{URL: pageURL, Err: err})
			continue
		}
		task.Filename = uniqueFilename(filenames, task.Filename)
		b.log.Infow("selected video", "page_url", pageURL, "resolution", task.Resolution, "file", task.Filename)
		tasks = append(tasks, task)
	}
	return tasks, pageErrors
}

// Run plans all pages and then downloads the resulting tasks, blocking until every download has finished.
func (b *Batch) Run(ctx context.Context, pageURLs []string) *Report {
	report := &Report{}
	if len(pageURLs) == 0 {
		return report
	}
	var tasks []vk_downloader.DownloadTask
	tasks, report.PageErrors = b.Plan(ctx, pageURLs)
	if len(tasks) == 0 {
		report.Tasks = &pool.Report{}
		return report
	}

	b.log.Infof("downloading %d video(s) with %d worker(s)", len(tasks), b.config.Jobs)
	runner := b.runner
	if runner == nil {
		tracker := b.tracker(len(tasks))
		defer func() {
			_ = tracker.Finish()
		}()
		runner = b.downloadRunner(tracker)
	}
	report.Tasks = pool.New(b.config.Jobs, runner).Run(ctx, tasks)
	return report
}

func (b *Batch) downloadRunner(tracker *progress.Tracker) pool.Runner {
	return pool.RunnerFunc(func(ctx context.Context, task vk_downloader.DownloadTask) error {
		defer tracker.Done(task.ID)
		d := vk_downloader.NewDownloadBuilder().
			WithContext(ctx).
			WithClient(b.client).
			WithUserAgent(b.config.UserAgent).
			WithTargetDir(b.config.TargetDir).
			WithProgressCallback(tracker.Callback(task.ID)).
			Build()
		_, err := d.SaveURL(task.Filename, task.URL)
		return err
	})
}

// uniqueFilename appends -2, -3, ... before the extension until the name is unused, then records it.
func uniqueFilename(used generic.Set[string], filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	candidate := filename
	for i := 2; used.Contains(candidate); i++ {
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	used.Add(candidate)
	return candidate
}
