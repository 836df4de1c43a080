package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gradtrends/domain/source"
	"gradtrends/domain/tidy"

	"github.com/xuri/excelize/v2"
)

// TidySheet is the sheet name WriteTable uses for workbooks.
const TidySheet = "tidy"

// WriteTable exports table in long format: institution, year, then one column
// per table column. The sentinel is written as an empty cell.
func WriteTable(table *tidy.Table, path string) error {
	startTime := time.Now()
	var err error
	switch DetectFileType(path) {
	case FileTypeCSV:
		err = writeCSV(table, path)
	default:
		err = writeExcel(table, path)
	}
	if err != nil {
		return err
	}
	log.Printf("[DataWriter] wrote %d rows to %s in %.2fms", table.Len(), path, float64(time.Since(startTime).Nanoseconds())/1e6)
	return nil
}

func header(table *tidy.Table) []string {
	return append([]string{"institution", "year"}, table.Columns()...)
}

func writeExcel(table *tidy.Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), TidySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	cols := header(table)
	headerRow := make([]interface{}, len(cols))
	for i, c := range cols {
		headerRow[i] = c
	}
	if err := f.SetSheetRow(TidySheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	columns := table.Columns()
	for i := 0; i < table.Len(); i++ {
		k := table.Key(i)
		row := make([]interface{}, 0, len(cols))
		row = append(row, k.Institution, k.Year)
		for _, c := range columns {
			if v, ok := table.Value(i, c).Float(); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(TidySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func writeCSV(table *tidy.Table, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header(table)); err != nil {
		return err
	}
	columns := table.Columns()
	for i := 0; i < table.Len(); i++ {
		k := table.Key(i)
		record := make([]string, 0, len(columns)+2)
		record = append(record, k.Institution, strconv.Itoa(k.Year))
		for _, c := range columns {
			v := table.Value(i, c)
			if v.IsMissing() {
				record = append(record, "")
				continue
			}
			record = append(record, v.String())
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteRawTable writes a wide table with headerRow title rows above the header,
// the layout ReadTable expects. Numeric cells are stored as numbers.
func WriteRawTable(table *source.RawTable, path, sheet string, headerRow int) error {
	grid := make([][]string, 0, headerRow+1+len(table.Rows))
	for i := 0; i < headerRow; i++ {
		title := ""
		if i == 0 {
			title = filepath.Base(path)
		}
		grid = append(grid, []string{title})
	}
	grid = append(grid, table.Headers)
	for _, r := range table.Rows {
		grid = append(grid, r)
	}

	if DetectFileType(path) == FileTypeCSV {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create CSV file: %w", err)
		}
		defer file.Close()
		w := csv.NewWriter(file)
		if err := w.WriteAll(grid); err != nil {
			return err
		}
		return w.Error()
	}

	f := excelize.NewFile()
	defer f.Close()
	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	for i, cells := range grid {
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			if v, err := strconv.ParseFloat(c, 64); err == nil {
				row[j] = v
			} else if c != "" {
				row[j] = c
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}
