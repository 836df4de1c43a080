package excel

// ExcelConfig holds configuration for the file-backed source loader
type ExcelConfig struct {
	DataDir string `json:"data_dir"`
	// DefaultHeaderRow applies to specs that leave HeaderRow at 0 when set.
	DefaultHeaderRow int `json:"default_header_row"`
}

// DefaultExcelConfig returns sensible defaults for Excel processing
func DefaultExcelConfig() ExcelConfig {
	return ExcelConfig{
		DataDir: "datasets",
	}
}
