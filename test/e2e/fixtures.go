package e2e

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/internmatch/internal/keyword/keywordtest"
	"github.com/hyperjump/internmatch/internal/models"
	"github.com/hyperjump/internmatch/internal/normalize"
)

// WriteCSV writes rows as a CSV listing sheet.
func WriteCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteXLSX writes rows to the first sheet of a new workbook.
func WriteXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// WriteVectorizer fits a vectorizer over the normalized listings and writes
// it as JSON, standing in for the offline fitting step.
func WriteVectorizer(path string, n *normalize.Normalizer, listings []models.CorpusRecord) error {
	docs := make([]string, len(listings))
	for i := range listings {
		text, err := n.Listing(&listings[i])
		if err != nil {
			return fmt.Errorf("normalize %s: %w", listings[i].ID, err)
		}
		docs[i] = text
	}
	v, _, err := keywordtest.Fit(docs)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v.Spec())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
