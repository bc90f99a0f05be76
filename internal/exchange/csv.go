// Package exchange converts contacts to and from CSV and vCard and fetches
// remote vCard collections.
package exchange

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tartampluch/birthday-manager/internal/config"
	"github.com/tartampluch/birthday-manager/internal/store"
)

// ErrNoRows is returned for a CSV file without data rows.
var ErrNoRows = errors.New(config.ErrCSVEmpty)

// ErrCSVTooLarge is returned for CSV input above config.MaxUploadSize.
var ErrCSVTooLarge = errors.New(config.ErrCSVTooLarge)

// ValidationReport summarizes a CSV file before import.
type ValidationReport struct {
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
	LineCount int      `json:"line_count"`
}

// ValidateCSV checks delimiter, header and data presence without importing anything.
func ValidateCSV(data []byte) ValidationReport {
	rep := ValidationReport{Errors: []string{}, Warnings: []string{}}

	lines := nonEmptyLines(data)
	if len(lines) == 0 {
		rep.Errors = append(rep.Errors, config.ErrCSVEmpty)
		return rep
	}
	if len(lines) == 1 {
		rep.Warnings = append(rep.Warnings, config.ErrCSVHeaderOnly)
	}

	header := lines[0]
	if !strings.ContainsRune(header, config.CSVDelimiter) && strings.Contains(header, ",") {
		rep.Errors = append(rep.Errors, config.ErrCSVDelimiter)
	}

	cols := headerIndex(strings.Split(header, string(config.CSVDelimiter)))
	_, hasFirst := cols[strings.ToLower(config.CSVColFirst)]
	_, hasLast := cols[strings.ToLower(config.CSVColLast)]
	if !hasFirst && !hasLast {
		rep.Errors = append(rep.Errors, config.ErrCSVNameColumn)
	}

	var missing []string
	for _, h := range config.CSVHeaders {
		if _, ok := cols[strings.ToLower(h)]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 && len(missing) < len(config.CSVHeaders) {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: %s", config.ErrCSVMissingCols, strings.Join(missing, ", ")))
	}

	rep.Valid = len(rep.Errors) == 0
	rep.LineCount = len(lines) - 1
	return rep
}

// ReadCSV decodes a semicolon separated contact list.
// Columns are matched by header name; rows without any name are skipped.
// Birthdays are passed through untouched.
func ReadCSV(r io.Reader) ([]store.Person, error) {
	data, err := io.ReadAll(io.LimitReader(r, config.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCSVParse, err)
	}
	if len(data) > config.MaxUploadSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrCSVTooLarge, config.MaxUploadSize)
	}

	rep := ValidateCSV(data)
	if !rep.Valid {
		return nil, fmt.Errorf("%s: %w", config.ErrCSVParse, errors.New(strings.Join(rep.Errors, "; ")))
	}

	cr := csv.NewReader(bytes.NewReader(stripBOM(data)))
	cr.Comma = config.CSVDelimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCSVParse, err)
	}
	if len(records) < 2 {
		return nil, ErrNoRows
	}

	cols := headerIndex(records[0])
	field := func(rec []string, name string) string {
		i, ok := cols[strings.ToLower(name)]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var people []store.Person
	for i, rec := range records[1:] {
		p := store.Person{
			FirstName: field(rec, config.CSVColFirst),
			LastName:  field(rec, config.CSVColLast),
			Birthday:  field(rec, config.CSVColBirthday),
			Groups:    splitGroups(field(rec, config.CSVColGroups)),
			Email:     field(rec, config.CSVColEmail),
			Phone:     field(rec, config.CSVColPhone),
			Notes:     field(rec, config.CSVColNotes),
		}
		if p.FirstName == "" && p.LastName == "" {
			slog.Debug(config.MsgCSVSkipRow,
				config.LogKeyComponent, config.CompExchange,
				config.LogKeyRow, i+2)
			continue
		}
		people = append(people, p)
	}
	return people, nil
}

// WriteCSV encodes people with a UTF-8 BOM so spreadsheet tools pick the right charset.
func WriteCSV(w io.Writer, people []store.Person) error {
	if _, err := io.WriteString(w, config.CSVBOM); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCSVEncode, err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = config.CSVDelimiter

	if err := cw.Write(config.CSVHeaders); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCSVEncode, err)
	}
	for _, p := range people {
		row := []string{
			p.FirstName,
			p.LastName,
			p.Birthday,
			strings.Join(p.Groups, config.CSVGroupSep),
			p.Email,
			p.Phone,
			p.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%s: %w", config.ErrCSVEncode, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCSVEncode, err)
	}
	return nil
}

// SampleCSV writes a small template file users can fill in.
func SampleCSV(w io.Writer) error {
	return WriteCSV(w, []store.Person{
		{FirstName: "Max", LastName: "Mustermann", Birthday: "15.03.1985", Groups: []string{"Familie", "Freunde"}, Email: "max@example.com", Phone: "0171-2345678", Notes: "Mag Bücher"},
		{FirstName: "Anna", LastName: "Schmidt", Birthday: "22.08.1990", Groups: []string{"Arbeit"}, Email: "anna@example.com", Phone: "0151-3456789", Notes: "Liebt Schokolade"},
		{FirstName: "Peter", LastName: "Müller", Birthday: "10.12.1978", Groups: []string{"Verein", "Freunde"}, Email: "peter@example.com", Phone: "0160-4567890", Notes: "Fußballfan"},
	})
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte(config.CSVBOM))
}

func nonEmptyLines(data []byte) []string {
	var out []string
	for _, l := range strings.Split(string(stripBOM(data)), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// headerIndex maps lowercased header names to their column position.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, config.CSVBOM)))] = i
	}
	return idx
}

func splitGroups(s string) []string {
	var out []string
	for _, g := range strings.Split(s, config.CSVGroupSep) {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
