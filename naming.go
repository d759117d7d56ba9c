package vk_downloader

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/alanbriolat/vk-downloader/generic"
	"github.com/alanbriolat/vk-downloader/util"
)

const DefaultExt = "mp4"

var VideoExtensions = generic.NewSet(
	"flv",
	"m4v",
	"mkv",
	"mp4",
	"webm",
)

var (
	disallowedTitleChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s-]`)
	titleSeparators      = regexp.MustCompile(`[-\s]+`)
)

// SanitizeTitle turns an arbitrary video title into something safe to use as a file name: NFKC-normalised, with
// punctuation removed and runs of whitespace/hyphens collapsed to a single hyphen.
func SanitizeTitle(title string) string {
	s := norm.NFKC.String(title)
	s = disallowedTitleChars.ReplaceAllString(s, "")
	s = titleSeparators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}

// FallbackTitle derives a title from the page URL, e.g. "video-123_456", for pages without a usable title.
func FallbackTitle(pageURL string) string {
	if segment, err := util.LastPathSegmentString(pageURL); err == nil {
		if title := SanitizeTitle(segment); title != "" {
			return title
		}
	}
	return "video"
}

// InferExt picks the file extension for a stream URL, defaulting to DefaultExt for anything unrecognised.
func InferExt(streamURL string) string {
	if ext := util.ExtFromURL(streamURL); VideoExtensions.Contains(ext) {
		return ext
	}
	return DefaultExt
}
