package documents

import (
	"bytes"
	"fmt"
	"os"

	"github.com/nguyenthenguyen/docx"
)

// extractDOCX reads docx paragraph text via a temp file, since the library
// only exposes a path-based reader.
func extractDOCX(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "upload-*.docx")
	if err != nil {
		return "", fmt.Errorf("docx temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("docx write: %w", err)
	}

	r, err := docx.ReadDocxFile(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	return stripXMLRuns(content), nil
}

// stripXMLRuns removes the run/paragraph XML markup docx's Editable()
// leaves in place, keeping only the text nodes.
func stripXMLRuns(content string) string {
	var out bytes.Buffer
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			out.WriteRune(r)
		}
	}
	return out.String()
}
