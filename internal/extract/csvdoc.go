// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// extractCSV renders a CSV document as plain text, one comma-joined line per
// record. Ragged rows are tolerated; clinic exports are rarely rectangular.
func extractCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening csv document: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var lines []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading csv document: %w", err)
		}
		lines = append(lines, strings.Join(record, ", "))
	}
	return strings.Join(lines, "\n"), nil
}
