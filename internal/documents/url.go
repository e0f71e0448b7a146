package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const fetchTimeout = 30 * time.Second

// mainContentSelectors are tried in order; the first selector that matches
// an element wins, falling back to the whole body.
var mainContentSelectors = []string{"main", "article", ".content", "#content", ".post", ".entry"}

var browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var newlineRunRe2 = regexp.MustCompile(`\n{2,}`)
var whitespaceRunRe = regexp.MustCompile(`[ \t]+`)

func fetchURL(ctx context.Context, url string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	client := &http.Client{
		Timeout: fetchTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", url, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return "", url, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", url, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10*1000*1000))
	if err != nil {
		return "", url, err
	}

	// Pages served in non-UTF-8 charsets (ISO-8859-1, Windows-1252, etc.)
	// would otherwise come out mangled once goquery treats them as UTF-8;
	// charset.NewReader sniffs the Content-Type header and a leading chunk
	// of the body to pick the right decoder.
	decoded, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", url, err
	}
	body, err := io.ReadAll(decoded)
	if err != nil {
		return "", url, err
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return string(body), finalURL, nil
}

// extractHTML strips non-content elements, selects the main content block
// via mainContentSelectors, and collapses whitespace.
func extractHTML(html string) (text string, title string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, nav, footer, header, aside").Remove()

	var selection *goquery.Selection
	for _, sel := range mainContentSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			selection = found.First()
			break
		}
	}
	if selection == nil {
		selection = doc.Find("body")
	}

	raw := selection.Text()
	return normalizeWhitespace(raw), title
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = whitespaceRunRe.ReplaceAllString(strings.TrimSpace(line), " ")
	}
	joined := strings.Join(lines, "\n")
	joined = newlineRunRe2.ReplaceAllString(joined, "\n")
	return strings.TrimSpace(joined)
}
