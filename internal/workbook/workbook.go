// Package workbook reads uploaded spreadsheets into raw named sheets.
package workbook

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/stockfloat/internal/ingest"
)

// ErrUnsupportedFormat is returned for files that are neither workbooks nor delimited text.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format of an upload.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// DetectFormat picks the reader from the file extension.
func DetectFormat(fileName string) (Format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm", ".xltx":
		return FormatXLSX, nil
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(fileName))
}

// ReadFile opens path and reads every sheet.
func ReadFile(path string) ([]ingest.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, filepath.Base(path))
}

// Read parses r according to fileName's extension. Workbooks yield one sheet per tab;
// delimited text yields a single sheet named after the file.
func Read(r io.Reader, fileName string) ([]ingest.Sheet, error) {
	format, err := DetectFormat(fileName)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatXLSX:
		return readXLSX(r, fileName)
	default:
		sheet, err := readDelimited(r, sheetNameFromFile(fileName))
		if err != nil {
			return nil, err
		}
		return []ingest.Sheet{sheet}, nil
	}
}

func sheetNameFromFile(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func readXLSX(r io.Reader, fileName string) ([]ingest.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", fileName, err)
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", fileName)
	}

	sheets := make([]ingest.Sheet, 0, len(names))
	for _, name := range names {
		rows, err := f.Rows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read rows from sheet %s: %w", name, err)
		}
		sheet := ingest.Sheet{Name: name}
		for rows.Next() {
			record, err := rows.Columns()
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to read row from %s/%s: %w", fileName, name, err)
			}
			sheet.Rows = append(sheet.Rows, record)
		}
		if err := rows.Error(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error iterating rows in %s/%s: %w", fileName, name, err)
		}
		rows.Close()
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func readDelimited(r io.Reader, name string) (ingest.Sheet, error) {
	br := bufio.NewReader(r)
	if bom, _ := br.Peek(3); bytes.Equal(bom, []byte("\xef\xbb\xbf")) {
		_, _ = br.Discard(3)
	}
	head, _ := br.Peek(4096)

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(head)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = cr.Comma != '\t'

	sheet := ingest.Sheet{Name: name}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ingest.Sheet{}, fmt.Errorf("read %s: %w", name, err)
		}
		sheet.Rows = append(sheet.Rows, record)
	}
	return sheet, nil
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab on the first line.
func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// WriteCSV writes one sheet as comma separated text.
func WriteCSV(w io.Writer, sheet ingest.Sheet) error {
	cw := csv.NewWriter(w)
	for _, row := range sheet.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", sheet.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
