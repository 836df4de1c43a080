package excel

import (
	"path/filepath"
	"strings"
)

// FileType is the on-disk format of a table.
type FileType string

const (
	FileTypeXLSX FileType = "xlsx"
	FileTypeCSV  FileType = "csv"
)

// DetectFileType picks the format from the extension; anything but .csv is
// treated as a workbook.
func DetectFileType(path string) FileType {
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return FileTypeCSV
	}
	return FileTypeXLSX
}
