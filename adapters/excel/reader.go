package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gradtrends/domain/source"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType FileType
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	return &DataReader{filePath: filePath, fileType: DetectFileType(filePath)}
}

// ReadTable reads one wide table. headerRow is the number of title rows above
// the header (0 when the header is the first row). sheet is ignored for CSV;
// an empty sheet means the workbook's first sheet.
func (r *DataReader) ReadTable(sheet string, headerRow int) (*source.RawTable, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	// Check if file exists
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(string(r.fileType)), r.filePath)
	}
	if headerRow < 0 {
		return nil, fmt.Errorf("header row must be non-negative, got %d", headerRow)
	}

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case FileTypeCSV:
		rows, err = r.readCSVRows()
	case FileTypeXLSX:
		rows, err = r.readExcelRows(sheet)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	return r.processRows(rows, headerRow)
}

// readExcelRows reads every row of sheet
func (r *DataReader) readExcelRows(sheet string) ([][]string, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	fileOpenTime := time.Since(startTime)
	log.Printf("[DataReader] Excel file opened in %.2fms", float64(fileOpenTime.Nanoseconds())/1e6)

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	readTime := time.Since(readStart)
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", sheet, float64(readTime.Nanoseconds())/1e6, len(rows))

	return rows, nil
}

// readCSVRows reads CSV data. Rows may have differing lengths.
func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	readTime := time.Since(readStart)
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", float64(readTime.Nanoseconds())/1e6, len(rows))

	return rows, nil
}

// processRows drops the title rows, takes the next row as header and aligns
// every data row to the header width. Blank rows are skipped.
func (r *DataReader) processRows(rows [][]string, headerRow int) (*source.RawTable, error) {
	if len(rows) < headerRow+2 {
		return nil, fmt.Errorf("%s file must have a header row at offset %d and at least one data row", strings.ToUpper(string(r.fileType)), headerRow)
	}

	// Extract headers, dropping trailing unnamed columns
	headerCells := rows[headerRow]
	headers := make([]string, len(headerCells))
	for i, header := range headerCells {
		headers[i] = strings.TrimSpace(header)
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) < 2 {
		return nil, fmt.Errorf("expected a year column and at least one value column, got %d columns", len(headers))
	}

	// Extract data rows
	var dataRows []source.RawRow
	for i := headerRow + 1; i < len(rows); i++ {
		row := make(source.RawRow, len(headers))
		blank := true
		for j := range headers {
			if j < len(rows[i]) {
				row[j] = strings.TrimSpace(rows[i][j])
			}
			if row[j] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		dataRows = append(dataRows, row)
	}

	log.Printf("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(string(r.fileType)), len(headers), len(dataRows))

	return &source.RawTable{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}
