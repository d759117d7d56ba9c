package util

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

// LastPathSegment returns the final non-empty element of the URL path, rejecting "." and ".." style segments.
func LastPathSegment(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNoFilename
	}
	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return "", ErrNoFilename
	}
	segment := trimmed[strings.LastIndex(trimmed, "/")+1:]
	if strings.ReplaceAll(segment, ".", "") == "" {
		return "", ErrNoFilename
	}
	return segment, nil
}

// LastPathSegmentString is LastPathSegment for an unparsed URL.
func LastPathSegmentString(s string) (string, error) {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	return LastPathSegment(parsedURL)
}

// ExtFromURL returns the lowercased file extension of the URL's last path segment, without the leading dot.
func ExtFromURL(s string) string {
	segment, err := LastPathSegmentString(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(segment), "."))
}
