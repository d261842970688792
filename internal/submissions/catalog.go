package submissions

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// CatalogColumns is the expected header of the entries catalog.
var CatalogColumns = []string{"award", "title", "nominee", "author", "video_url", "video_timestamp"}

// CatalogEntry is one row of the entries catalog.
type CatalogEntry struct {
	Line           int
	Award          string
	Title          string
	Nominee        string
	Author         string
	VideoURL       string
	VideoTimestamp string
}

// ParseCatalogFile reads the entries catalog at path.
func ParseCatalogFile(path string) ([]CatalogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open entries file: %w", err)
	}
	defer file.Close()
	entries, err := ParseCatalog(file)
	if err != nil {
		return nil, fmt.Errorf("entries file %s: %w", path, err)
	}
	return entries, nil
}

// ParseCatalog reads catalog rows. Columns are matched by header name so their
// order is free; award and title are mandatory columns.
func ParseCatalog(r io.Reader) ([]CatalogEntry, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty entries file")
	}
	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"award", "title"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing %q column (expected %s)", required, strings.Join(CatalogColumns, ","))
		}
	}
	cell := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var out []CatalogEntry
	for i, record := range records[1:] {
		if blankRecord(record) {
			continue
		}
		out = append(out, CatalogEntry{
			Line:           i + 2,
			Award:          cell(record, "award"),
			Title:          cell(record, "title"),
			Nominee:        cell(record, "nominee"),
			Author:         cell(record, "author"),
			VideoURL:       cell(record, "video_url"),
			VideoTimestamp: strings.ReplaceAll(cell(record, "video_timestamp"), " ", ""),
		})
	}
	return out, nil
}
