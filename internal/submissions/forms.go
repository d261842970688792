package submissions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const utf8BOM = "\ufeff"

// Label identifies an entry in a form header.
type Label struct {
	Title   string
	Nominee string
}

// ParseLabel splits "Title [Nominee]" into its parts.
func ParseLabel(raw string) Label {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, "]") {
		if open := strings.LastIndex(raw, "["); open > 0 {
			return Label{
				Title:   strings.TrimSpace(raw[:open]),
				Nominee: strings.TrimSpace(raw[open+1 : len(raw)-1]),
			}
		}
	}
	return Label{Title: raw}
}

func (l Label) String() string {
	if l.Nominee == "" {
		return l.Title
	}
	return l.Title + " [" + l.Nominee + "]"
}

func (l Label) matches(title, nominee string) bool {
	return strings.EqualFold(l.Title, strings.TrimSpace(title)) && strings.EqualFold(l.Nominee, strings.TrimSpace(nominee))
}

// FormRow is one member's line in a form. Cells keep their raw text.
type FormRow struct {
	Line   int
	Member string
	Cells  []string
}

// AwardForm is a parsed award form.
type AwardForm struct {
	Award  string
	File   string
	Labels []Label
	Rows   []FormRow
}

// ParseFormsFolder reads every *.csv file in dir, sorted by name.
func ParseFormsFolder(dir string) ([]AwardForm, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read forms folder: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no award forms found in %s", dir)
	}

	forms := make([]AwardForm, 0, len(names))
	for _, name := range names {
		form, err := ParseFormFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, nil
}

// ParseFormFile reads one award form. The award slug is the file name without
// its extension.
func ParseFormFile(path string) (AwardForm, error) {
	file, err := os.Open(path)
	if err != nil {
		return AwardForm{}, fmt.Errorf("open form: %w", err)
	}
	defer file.Close()

	award := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	form, err := ParseForm(award, file)
	if err != nil {
		return AwardForm{}, fmt.Errorf("form %s: %w", filepath.Base(path), err)
	}
	form.File = path
	return form, nil
}

// ParseForm reads an award form from r.
func ParseForm(award string, r io.Reader) (AwardForm, error) {
	records, err := readCSV(r)
	if err != nil {
		return AwardForm{}, err
	}
	if len(records) == 0 {
		return AwardForm{}, errors.New("empty form")
	}
	header := records[0]
	if len(header) < 2 {
		return AwardForm{}, errors.New("header must hold a member column and at least one entry")
	}

	form := AwardForm{Award: strings.TrimSpace(award)}
	for _, cell := range header[1:] {
		form.Labels = append(form.Labels, ParseLabel(cell))
	}
	for i, record := range records[1:] {
		if blankRecord(record) {
			continue
		}
		row := FormRow{Line: i + 2, Member: strings.TrimSpace(record[0])}
		row.Cells = make([]string, len(form.Labels))
		for col := range form.Labels {
			if col+1 < len(record) {
				row.Cells[col] = strings.TrimSpace(record[col+1])
			}
		}
		form.Rows = append(form.Rows, row)
	}
	return form, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], utf8BOM)
	}
	return records, nil
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
