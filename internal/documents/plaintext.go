package documents

import "strings"

// extractPlainText validates data as UTF-8, replacing invalid sequences,
// and trims surrounding whitespace.
func extractPlainText(data []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
}
