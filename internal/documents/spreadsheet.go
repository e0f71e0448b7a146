package documents

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractSpreadsheet emits each sheet as a "=== Sheet: <name> ===" header
// followed by its rows serialized as CSV.
func extractSpreadsheet(data []byte, ext string) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", ext, err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		sb.WriteString("\n=== Sheet: ")
		sb.WriteString(name)
		sb.WriteString(" ===\n")

		var csvBuf bytes.Buffer
		w := csv.NewWriter(&csvBuf)
		for _, row := range rows {
			_ = w.Write(row)
		}
		w.Flush()
		sb.Write(csvBuf.Bytes())
	}
	return strings.TrimSpace(sb.String()), nil
}
