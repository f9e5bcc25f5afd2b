package ingest

import (
	"errors"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

// ErrNoHeader is reported when a sheet has no recognizable header row.
var ErrNoHeader = errors.New("no header row found")

// Internal provenance keys are prefixed so they never collide with sheet headers.
const (
	internalPrefix = "__"
	keySheet       = "__sheet"
	keyRow         = "__row"
)

// Sheet is one named table of raw cells as read from a workbook or CSV file.
type Sheet struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// Result is the output of parsing one sheet.
type Result struct {
	Sheet   string                   `json:"sheet"`
	Layout  Layout                   `json:"layout"`
	Market  string                   `json:"market"`
	Records []domain.CanonicalRecord `json:"records"`
	// Dropped counts non-empty rows that produced no record.
	Dropped int   `json:"dropped"`
	Err     error `json:"-"`
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "", "(", "", ")", "", "#", "no")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// grid is a header plus the data rows below it.
type grid struct {
	sheet  string
	header []string
	rows   [][]string
	// offset is the sheet row index of rows[0]
	offset int
}

func newGrid(sheet Sheet, headerRow int) grid {
	g := grid{sheet: sheet.Name, offset: headerRow + 1}
	if headerRow >= 0 && headerRow < len(sheet.Rows) {
		g.header = trimAll(sheet.Rows[headerRow])
	}
	if headerRow+1 < len(sheet.Rows) {
		g.rows = sheet.Rows[headerRow+1:]
	}
	return g
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// colIndex returns the first header matching any of the names, or -1.
func (g grid) colIndex(names ...string) int {
	if len(names) == 0 {
		return -1
	}
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range g.header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

// colContaining is a looser colIndex: the normalized header only has to contain a name.
func (g grid) colContaining(names ...string) int {
	if idx := g.colIndex(names...); idx >= 0 {
		return idx
	}
	for i, h := range g.header {
		nh := normalizeColumnName(h)
		if nh == "" {
			continue
		}
		for _, name := range names {
			if strings.Contains(nh, normalizeColumnName(name)) {
				return i
			}
		}
	}
	return -1
}

// rawRow keeps the original row, keyed by header, for provenance.
func (g grid) rawRow(i int) map[string]string {
	record := g.rows[i]
	out := make(map[string]string, len(record)+2)
	for j, v := range record {
		key := ""
		if j < len(g.header) {
			key = g.header[j]
		}
		if key == "" {
			key = "col" + strconv.Itoa(j+1)
		}
		if _, dup := out[key]; dup {
			key = key + "_" + strconv.Itoa(j+1)
		}
		out[key] = strings.TrimSpace(v)
	}
	out[keySheet] = g.sheet
	out[keyRow] = strconv.Itoa(g.offset + i + 1)
	return out
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// isEmptyRow ignores internal provenance fields.
func isEmptyRow(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// IsEmptyRawRow is the map form of isEmptyRow used on stored provenance rows.
func IsEmptyRawRow(row map[string]string) bool {
	for k, v := range row {
		if strings.HasPrefix(k, internalPrefix) {
			continue
		}
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// findHeaderRow returns the row among the first maxRows with the most cells matching
// any alias, requiring at least minHits matches.
func findHeaderRow(rows [][]string, maxRows, minHits int, aliases ...[]string) int {
	best, bestHits := -1, 0
	targets := make(map[string]struct{})
	for _, group := range aliases {
		for _, a := range group {
			targets[normalizeColumnName(a)] = struct{}{}
		}
	}
	for i := 0; i < len(rows) && i < maxRows; i++ {
		hits := 0
		for _, c := range rows[i] {
			if _, ok := targets[normalizeColumnName(c)]; ok {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	if bestHits < minHits {
		return -1
	}
	return best
}

// rowParser parses one data row into zero or more records.
type rowParser func(i int, record []string) []domain.CanonicalRecord

// parseRows applies fn to every non-empty row. A row whose parser panics is counted as
// dropped and the sheet carries on.
func parseRows(g grid, res *Result, fn rowParser) {
	for i, record := range g.rows {
		if isEmptyRow(record) {
			continue
		}
		recs, ok := safeParse(i, record, fn)
		if !ok || len(recs) == 0 {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, recs...)
	}
}

func safeParse(i int, record []string, fn rowParser) (recs []domain.CanonicalRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			recs, ok = nil, false
		}
	}()
	return fn(i, record), true
}
