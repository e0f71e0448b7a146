package documents

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// pptxTextRun matches a single <a:t> run inside a slide's XML body.
type pptxTextRun struct {
	XMLName xml.Name `xml:"t"`
	Text    string   `xml:",chardata"`
}

// extractPPTX reads ppt/slides/slideN.xml entries in numeric order and
// joins their text runs. PPTX structure varies enough across producers
// that this is best-effort: any failure returns the spec's fixed
// "Unable to extract" stub instead of an error.
func extractPPTX(data []byte) string {
	text, err := tryExtractPPTX(data)
	if err != nil || strings.TrimSpace(text) == "" {
		return "Unable to extract"
	}
	return text
}

func tryExtractPPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}

	type slide struct {
		num int
		f   *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		base := strings.TrimSuffix(strings.TrimPrefix(f.Name, "ppt/slides/slide"), ".xml")
		n, err := strconv.Atoi(base)
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: n, f: f})
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("no slides found")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var sb strings.Builder
	for _, s := range slides {
		rc, err := s.f.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		runs := extractRuns(raw)
		if runs == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(runs)
	}
	return strings.TrimSpace(sb.String()), nil
}

// extractRuns walks the slide XML token stream for <a:t> run text, since
// decoding the full DrawingML schema is unnecessary for plain-text extraction.
func extractRuns(raw []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var parts []string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "t" {
			continue
		}
		var run pptxTextRun
		if err := dec.DecodeElement(&run, &se); err != nil {
			continue
		}
		if run.Text != "" {
			parts = append(parts, run.Text)
		}
	}
	return strings.Join(parts, " ")
}
