// Package documents extracts raw text and metadata from uploaded files and
// web pages, dispatching by declared file extension.
package documents

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when no extractor handles the declared
// file extension.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrFetchFailed wraps any error encountered fetching a URL for extraction.
var ErrFetchFailed = errors.New("fetch failed")

// ExtractedMeta carries the metadata an extractor can determine about the
// source it read. Title is populated for webpages and left empty for file
// formats, none of which carry a title of their own.
type ExtractedMeta struct {
	Source string
	Type   string
	Title  string
}

// Extract dispatches on the extension of name (case-insensitive) and
// extracts text from data. Returns ErrUnsupportedFormat wrapped with the
// extension for anything not in the dispatch table.
func Extract(name string, data []byte) (string, ExtractedMeta, error) {
	ext := strings.ToLower(filepath.Ext(name))
	meta := ExtractedMeta{Source: name, Type: strings.TrimPrefix(ext, ".")}

	switch ext {
	case ".pdf":
		text, err := extractPDF(data)
		return text, meta, err
	case ".docx":
		text, err := extractDOCX(data)
		return text, meta, err
	case ".pptx":
		return extractPPTX(data), meta, nil
	case ".xlsx", ".xls":
		text, err := extractSpreadsheet(data, ext)
		return text, meta, err
	case ".txt", ".md", ".markdown", ".csv":
		return extractPlainText(data), meta, nil
	default:
		return "", meta, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// ExtractURL fetches url with a browser-like user agent and extracts its
// main textual content per the selector fallback chain in extractHTML.
func ExtractURL(ctx context.Context, url string) (string, ExtractedMeta, error) {
	html, _, err := fetchURL(ctx, url)
	if err != nil {
		return "", ExtractedMeta{Source: url, Type: "webpage"}, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	text, title := extractHTML(html)
	// Source stays the URL the client submitted, not the post-redirect URL
	// fetchURL followed, so chat citations echo back what the caller posted.
	meta := ExtractedMeta{Source: url, Type: "webpage", Title: title}
	if meta.Title == "" {
		meta.Title = url
	}
	return text, meta, nil
}
