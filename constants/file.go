package constants

import "strings"

// AllowedExtensions holds the file extensions accepted for CT-e ingestion.
var AllowedExtensions = map[string]struct{}{
	"xml": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Default output file names for the exported workbooks.
const (
	RecordsFileName = "CTEs_Importados.xlsx"
	DebugFileName   = "Debug_CTEs.xlsx"
	ErrorsFileName  = "Erros_CTEs.xlsx"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)
