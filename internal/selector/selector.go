// Package selector decides which resolution of a video to download.
package selector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/alanbriolat/vk-downloader"
)

var (
	ErrNoCandidates = errors.New("no candidates to select from")
	ErrNoSelection  = errors.New("no resolution selected")
)

// A Chooser picks one of the offered resolution labels, which are in ascending order. It is only consulted when there
// is a real choice to make.
type Chooser interface {
	Choose(labels []string) (string, error)
}

type ChooserFunc func(labels []string) (string, error)

func (f ChooserFunc) Choose(labels []string) (string, error) {
	return f(labels)
}

// Select returns the single candidate without asking, otherwise asks the Chooser. The result is always one of the
// candidates; a Chooser answer outside the offered labels is an error.
func Select(candidates []vk_downloader.VideoCandidate, chooser Chooser) (vk_downloader.VideoCandidate, error) {
	switch len(candidates) {
	case 0:
		return vk_downloader.VideoCandidate{}, ErrNoCandidates
	case 1:
		return candidates[0], nil
	}
	sorted := append([]vk_downloader.VideoCandidate(nil), candidates...)
	vk_downloader.SortCandidates(sorted)
	label, err := chooser.Choose(vk_downloader.Labels(sorted))
	if err != nil {
		return vk_downloader.VideoCandidate{}, err
	}
	if c, ok := find(sorted, label); ok {
		return c, nil
	}
	return vk_downloader.VideoCandidate{}, fmt.Errorf("%w: %q is not an offered resolution", ErrNoSelection, label)
}

func find(candidates []vk_downloader.VideoCandidate, label string) (vk_downloader.VideoCandidate, bool) {
	resolution, err := vk_downloader.ParseResolution(label)
	if err != nil {
		return vk_downloader.VideoCandidate{}, false
	}
	for _, c := range candidates {
		if c.Resolution == resolution {
			return c, true
		}
	}
	return vk_downloader.VideoCandidate{}, false
}

func matchLabel(labels []string, input string) (string, bool) {
	resolution, err := vk_downloader.ParseResolution(input)
	if err != nil {
		return "", false
	}
	for _, label := range labels {
		if label == resolution.String() {
			return label, true
		}
	}
	return "", false
}

// LineChooser prompts on Out and reads answers line by line from In, re-prompting until the answer is one of the
// offered labels. Running out of input gives ErrNoSelection.
type LineChooser struct {
	in  *bufio.Reader
	out io.Writer
}

func NewLineChooser(in io.Reader, out io.Writer) *LineChooser {
	return &LineChooser{in: bufio.NewReader(in), out: out}
}

func (c *LineChooser) Choose(labels []string) (string, error) {
	for {
		fmt.Fprintf(c.out, "\n[+] Select resolution from the options: %s: ", strings.Join(labels, ", "))
		line, err := c.in.ReadString('\n')
		if label, ok := matchLabel(labels, line); ok {
			return label, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrNoSelection
			}
			return "", fmt.Errorf("failed to read selection: %w", err)
		}
		fmt.Fprintln(c.out, "Invalid resolution. Please choose from the available options.")
	}
}

// PromptChooser shows an arrow-key selection list, for use on an interactive terminal.
type PromptChooser struct {
	Label string
}

func (c PromptChooser) Choose(labels []string) (string, error) {
	label := c.Label
	if label == "" {
		label = "Select resolution"
	}
	prompt := promptui.Select{
		Label: label,
		Items: labels,
		// Highest resolution is last, start with it highlighted
		CursorPos: len(labels) - 1,
	}
	_, result, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSelection, err)
	}
	return result, nil
}

// Interactive returns a PromptChooser when stdin and stdout are both terminals, otherwise a LineChooser on them.
func Interactive() Chooser {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return PromptChooser{}
	}
	return NewLineChooser(os.Stdin, os.Stdout)
}

const (
	PreferBest  = "best"
	PreferWorst = "worst"
)

// PreferenceChooser answers from a configured preference: PreferBest, PreferWorst, or a specific label such as
// "720p". Anything it can't answer (no preference, or the preferred label isn't offered) is passed on to Fallback.
type PreferenceChooser struct {
	Preference string
	Fallback   Chooser
}

func (c PreferenceChooser) Choose(labels []string) (string, error) {
	if len(labels) > 0 {
		switch strings.ToLower(strings.TrimSpace(c.Preference)) {
		case "":
		case PreferBest:
			return labels[len(labels)-1], nil
		case PreferWorst:
			return labels[0], nil
		default:
			if label, ok := matchLabel(labels, c.Preference); ok {
				return label, nil
			}
		}
	}
	if c.Fallback == nil {
		return "", ErrNoSelection
	}
	return c.Fallback.Choose(labels)
}
