package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// Accepted upload content types.
const (
	ContentTypeCSV         = "text/csv"
	ContentTypeExcel       = "application/vnd.ms-excel"
	ContentTypeSpreadsheet = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeOctetStream = "application/octet-stream"
)

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported format, use CSV or Excel")

// Format is a supported upload encoding.
type Format int

const (
	FormatCSV Format = iota + 1
	FormatXLSX
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// DetectFormat decides how to parse an upload from its declared content type,
// sniffing data when the declaration is ambiguous. Browsers commonly declare
// CSV files as application/vnd.ms-excel, and some clients send no specific type.
func DetectFormat(contentType string, data []byte) (Format, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
	}
	switch mediaType {
	case ContentTypeCSV:
		return FormatCSV, nil
	case ContentTypeSpreadsheet:
		return FormatXLSX, nil
	case ContentTypeExcel, ContentTypeOctetStream:
		detected := mimetype.Detect(data)
		switch {
		case detected.Is(ContentTypeSpreadsheet), detected.Is("application/zip"):
			return FormatXLSX, nil
		case detected.Is("text/plain"), detected.Is(ContentTypeCSV):
			return FormatCSV, nil
		default:
			return 0, fmt.Errorf("%w: legacy or unknown excel content (%s)", ErrUnsupportedFormat, detected.String())
		}
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mediaType)
	}
}

// Read parses data as the format implied by contentType.
func Read(contentType string, data []byte) (*Table, error) {
	format, err := DetectFormat(contentType, data)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatXLSX:
		return ReadXLSX(bytes.NewReader(data))
	default:
		return ReadCSV(bytes.NewReader(data))
	}
}

// ReadCSV parses a CSV document whose first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // ragged rows are padded or cut to the header by New

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to read csv: no header row")
	}
	return New(normalizeHeader(records[0]), records[1:]), nil
}

// ReadXLSX parses the first worksheet of an XLSX workbook whose first row is the header.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s has no header row", sheets[0])
	}
	return New(normalizeHeader(rows[0]), rows[1:]), nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}
