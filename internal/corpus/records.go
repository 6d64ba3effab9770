package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/internmatch/internal/models"
)

var (
	// ErrUnsupportedFormat is returned for listing files that are not CSV or XLSX.
	ErrUnsupportedFormat = errors.New("unsupported listing format")
	// ErrMissingColumn is returned when a listing file lacks a required column.
	ErrMissingColumn = errors.New("missing column")
)

// Columns maps record fields to header names. Matching ignores case and
// surrounding whitespace.
type Columns struct {
	ID             string
	Title          string
	Description    string
	RequiredSkills string
}

// DefaultColumns are the headers of an exported internship listing sheet.
func DefaultColumns() Columns {
	return Columns{
		ID:             "id",
		Title:          "title",
		Description:    "description",
		RequiredSkills: "required_skills",
	}
}

// ReadRecords reads listings from a .csv or .xlsx file. Rows keep file order.
func ReadRecords(path string, cols Columns) ([]models.CorpusRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open listings: %w", err)
		}
		defer f.Close()
		return ReadCSV(f, cols)
	case ".xlsx":
		return readXLSX(path, cols)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadCSV reads listings from CSV with a header row.
func ReadCSV(r io.Reader, cols Columns) ([]models.CorpusRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return fromRows(rows, cols)
}

func readXLSX(path string, cols Columns) ([]models.CorpusRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return fromRows(rows, cols)
}

// fromRows converts a header row plus data rows. Unmapped columns land in Extra.
func fromRows(rows [][]string, cols Columns) ([]models.CorpusRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	find := func(name string) int {
		if i, ok := index[strings.ToLower(name)]; ok && name != "" {
			return i
		}
		return -1
	}
	idCol := find(cols.ID)
	titleCol := find(cols.Title)
	descCol := find(cols.Description)
	skillsCol := find(cols.RequiredSkills)
	if titleCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, cols.Title)
	}
	mapped := map[int]bool{idCol: true, titleCol: true, descCol: true, skillsCol: true}

	records := make([]models.CorpusRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		row := row
		if blank(row) {
			continue
		}
		cell := func(i int) string {
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		rec := models.CorpusRecord{
			ID:             cell(idCol),
			Title:          cell(titleCol),
			Description:    cell(descCol),
			RequiredSkills: cell(skillsCol),
		}
		if rec.ID == "" {
			rec.ID = RecordID(n, rec.Title, rec.Description, rec.RequiredSkills)
		}
		for i, h := range rows[0] {
			if mapped[i] || cell(i) == "" {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[strings.TrimSpace(h)] = cell(i)
		}
		records = append(records, rec)
	}
	return records, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
