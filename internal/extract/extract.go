// Package extract finds the embedded player configuration in a video page and pulls out the stream URLs for each
// available resolution, along with the video title.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alanbriolat/vk-downloader"
)

var (
	ErrNoVideo = errors.New("no video found")
)

// playerMarker identifies the inline script that carries the player configuration.
const playerMarker = "al_video.php"

var (
	streamPattern = regexp.MustCompile(`"url(\d+)":\s*"((?:[^"\\]|\\.)*)"`)
	titlePattern  = regexp.MustCompile(`"title":\s*"((?:[^"\\]|\\.)*)"`)
)

// A Page is everything extracted from one video page.
type Page struct {
	Title      string
	Candidates []vk_downloader.VideoCandidate
}

// Extract parses HTML text, see ExtractDocument.
func Extract(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return ExtractDocument(doc)
}

// ExtractDocument requires exactly one module script mentioning the player, and at least one stream URL within it.
// Candidates are sorted by ascending resolution, keeping the first URL seen for each resolution.
func ExtractDocument(doc *goquery.Document) (*Page, error) {
	var scripts []string
	doc.Find(`script[type="module"]`).Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); strings.Contains(text, playerMarker) {
			scripts = append(scripts, text)
		}
	})
	if len(scripts) != 1 {
		return nil, fmt.Errorf("%w: found %d player scripts", ErrNoVideo, len(scripts))
	}
	script := scripts[0]

	page := &Page{}
	if m := titlePattern.FindStringSubmatch(script); m != nil {
		page.Title = unescape(m[1])
	}

	seen := make(map[vk_downloader.Resolution]bool)
	for _, m := range streamPattern.FindAllStringSubmatch(script, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		resolution := vk_downloader.Resolution(n)
		streamURL := unescape(m[2])
		if seen[resolution] || streamURL == "" {
			continue
		}
		seen[resolution] = true
		page.Candidates = append(page.Candidates, vk_downloader.VideoCandidate{
			Resolution: resolution,
			URL:        streamURL,
			Title:      page.Title,
		})
	}
	if len(page.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no stream URLs in player config", ErrNoVideo)
	}
	vk_downloader.SortCandidates(page.Candidates)
	return page, nil
}

// unescape decodes a JSON string body (\/, \uXXXX, ...), falling back to only undoing \/ if it isn't valid JSON.
func unescape(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err == nil {
		return out
	}
	return strings.ReplaceAll(s, `\/`, `/`)
}
