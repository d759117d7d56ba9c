// Package progress merges the progress of several concurrent downloads into one progress bar.
package progress

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/alanbriolat/vk-downloader"
)

type entry struct {
	downloaded int64
	expected   int64
	done       bool
}

// A Tracker owns a single bar. Each download reports through its own Callback; the bar shows the sum of all of them,
// and becomes an indeterminate spinner while any started download has an unknown size.
type Tracker struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	total   int
	entries map[vk_downloader.TaskID]*entry
}

func NewTracker(bar *progressbar.ProgressBar, total int) *Tracker {
	t := &Tracker{
		bar:     bar,
		total:   total,
		entries: make(map[vk_downloader.TaskID]*entry),
	}
	t.bar.Describe(t.description())
	return t
}

// NewDefaultTracker writes a byte-count bar to stderr.
func NewDefaultTracker(total int) *Tracker {
	return NewTracker(progressbar.DefaultBytes(-1, "downloading"), total)
}

// NewFileBar is a stand-alone byte-count bar for a single file.
func NewFileBar(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
	)
}

// Callback returns the progress function for one download.
func (t *Tracker) Callback(id vk_downloader.TaskID) vk_downloader.ProgressFunc {
	t.mu.Lock()
	if _, ok := t.entries[id]; !ok {
		t.entries[id] = &entry{expected: -1}
	}
	t.mu.Unlock()
	return func(downloaded int64, expected int64) {
		t.update(id, downloaded, expected)
	}
}

// Done marks a download finished, successfully or not.
func (t *Tracker) Done(id vk_downloader.TaskID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[id]; ok {
		e.done = true
	}
	t.bar.Describe(t.description())
}

// Totals returns the summed downloaded and expected bytes, with expected -1 while any size is unknown.
func (t *Tracker) Totals() (int64, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals()
}

func (t *Tracker) Finish() error {
	return t.bar.Finish()
}

func (t *Tracker) update(id vk_downloader.TaskID, downloaded int64, expected int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return
	}
	e.downloaded, e.expected = downloaded, expected
	sumDownloaded, sumExpected := t.totals()
	if t.bar.GetMax64() != sumExpected {
		t.bar.ChangeMax64(sumExpected)
	}
	_ = t.bar.Set64(sumDownloaded)
}

func (t *Tracker) totals() (int64, int64) {
	var downloaded, expected int64
	for _, e := range t.entries {
		downloaded += e.downloaded
		if expected >= 0 && e.expected >= 0 {
			expected += e.expected
		} else {
			expected = -1
		}
	}
	return downloaded, expected
}

func (t *Tracker) description() string {
	done := 0
	for _, e := range t.entries {
		if e.done {
			done++
		}
	}
	return fmt.Sprintf("[%d/%d] downloading", done, t.total)
}
