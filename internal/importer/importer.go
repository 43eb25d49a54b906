// Package importer bulk-loads the event catalog from CSV and XLSX
// files exported by event organizers.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/festago/festago/internal/event"
)

// dateLayout is the expected start_date/end_date format.
const dateLayout = "2006-01-02"

// requiredColumns must be present in the header row.
var requiredColumns = []string{
	"name", "description", "category", "location",
	"address", "start_date", "end_date",
}

// RowError records why one input row was not imported.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Result summarizes an import run.
type Result struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"` // duplicates
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Importer loads event rows into the catalog, skipping rows whose
// (name, location, start_date) already exists.
type Importer struct {
	events event.Repository
	logger *slog.Logger
}

// New creates an Importer.
func New(events event.Repository, logger *slog.Logger) *Importer {
	return &Importer{events: events, logger: logger}
}

// ImportCSV reads a CSV with a header row and imports each data row.
// Bad rows are recorded and skipped; only unreadable input aborts.
func (im *Importer) ImportCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for rowNum := 2; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rowNum, err)
		}
		im.importRow(result, rowNum, fieldsFrom(record, cols))
	}
	return result, nil
}

// ImportXLSX imports the first sheet of a workbook, treating the first
// row as the header.
func (im *Importer) ImportXLSX(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	cols, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for i, record := range rows[1:] {
		im.importRow(result, i+2, fieldsFrom(record, cols))
	}
	return result, nil
}

// Clear deletes every event in the catalog and returns how many were
// removed. Used by the CLI's --clear flag before a full re-import.
func (im *Importer) Clear() (int, error) {
	events, err := im.events.List(event.ListFilter{IncludePast: true})
	if err != nil {
		return 0, err
	}
	for _, e := range events {
		if err := im.events.Delete(e.ID); err != nil {
			return 0, fmt.Errorf("failed to delete event %s: %w", e.ID, err)
		}
	}
	return len(events), nil
}

func (im *Importer) importRow(result *Result, rowNum int, fields map[string]string) {
	e, err := buildEvent(fields)
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, RowError{Row: rowNum, Reason: err.Error()})
		im.logger.Warn("skipping invalid import row", "row", rowNum, "error", err)
		return
	}

	existing, err := im.events.FindDuplicate(e.Name, e.Location, e.StartDate)
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, RowError{Row: rowNum, Reason: err.Error()})
		return
	}
	if existing != nil {
		result.Skipped++
		im.logger.Info("skipping duplicate event", "row", rowNum, "name", e.Name)
		return
	}

	if err := im.events.Insert(e); err != nil {
		result.Failed++
		result.Errors = append(result.Errors, RowError{Row: rowNum, Reason: err.Error()})
		return
	}
	result.Imported++
}

func buildEvent(fields map[string]string) (*event.Event, error) {
	category := fields["category"]
	if !event.ValidCategory(category) {
		return nil, fmt.Errorf("invalid category %q", category)
	}

	startDate, err := time.Parse(dateLayout, fields["start_date"])
	if err != nil {
		return nil, fmt.Errorf("invalid start_date %q", fields["start_date"])
	}
	endDate, err := time.Parse(dateLayout, fields["end_date"])
	if err != nil {
		return nil, fmt.Errorf("invalid end_date %q", fields["end_date"])
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end_date %q before start_date %q", fields["end_date"], fields["start_date"])
	}

	e := &event.Event{
		Name:        fields["name"],
		Description: fields["description"],
		Category:    category,
		Location:    fields["location"],
		Address:     fields["address"],
		StartDate:   startDate,
		EndDate:     endDate,
		PosterImage: fields["poster_image"],
		WebsiteURL:  fields["website_url"],
	}
	if e.Name == "" {
		return nil, fmt.Errorf("name is required")
	}

	if lat, lng := fields["latitude"], fields["longitude"]; lat != "" && lng != "" {
		latF, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q", lat)
		}
		lngF, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q", lng)
		}
		e.Coordinates = &event.Point{Lat: latF, Lng: lngF}
	}
	return e, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return cols, nil
}

func fieldsFrom(record []string, cols map[string]int) map[string]string {
	fields := make(map[string]string, len(cols))
	for name, idx := range cols {
		if idx < len(record) {
			fields[name] = strings.TrimSpace(record[idx])
		}
	}
	return fields
}
