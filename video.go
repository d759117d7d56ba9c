package vk_downloader

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidResolution = errors.New("invalid resolution")
)

// Resolution is the vertical size of a video stream, e.g. 720 for "720p".
type Resolution int

func (r Resolution) String() string {
	return fmt.Sprintf("%dp", int(r))
}

// ParseResolution accepts either a bare number ("720") or a label ("720p", "720P").
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "p")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	return Resolution(n), nil
}

// A VideoCandidate is one resolution-specific stream found on a page.
type VideoCandidate struct {
	Resolution Resolution
	URL        string
	Title      string
}

func (c VideoCandidate) String() string {
	return fmt.Sprintf("%s [%s]", c.Title, c.Resolution)
}

// SortCandidates orders candidates by ascending resolution.
func SortCandidates(candidates []VideoCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Resolution < candidates[j].Resolution
	})
}

// Labels returns the resolution labels of candidates, in order.
func Labels(candidates []VideoCandidate) []string {
	labels := make([]string, 0, len(candidates))
	for _, c := range candidates {
		labels = append(labels, c.Resolution.String())
	}
	return labels
}

type TaskID string

func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

// A DownloadTask is a single stream to be saved to a single file.
type DownloadTask struct {
	ID         TaskID
	PageURL    string
	URL        string
	Filename   string
	Resolution Resolution
}

func (t DownloadTask) String() string {
	return fmt.Sprintf("DownloadTask{ID:\"%s\", Filename:\"%s\", Resolution:\"%s\"}", t.ID, t.Filename, t.Resolution)
}
