package ingest

import (
	"sort"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

var (
	rankAliases      = []string{"rank", "#", "no", "rank no", "position", "pos"}
	rankQtyAliases   = []string{"cases", "9l cases", "qty", "quantity", "volume", "sales", "units", "ytd cases", "mat cases", "depletions"}
	rankPlaceAliases = []string{"customer", "account", "outlet", "store", "retailer", "distributor", "banner", "chain", "location"}
)

// supplier reports carry a three row title block above the header
const supplierHeaderRow = 3

// monthColumns maps header column index to the period it carries.
func monthColumns(header []string) map[int]domain.Period {
	out := make(map[int]domain.Period)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" || totalHeaderRe.MatchString(h) {
			continue
		}
		if p, ok := ParsePeriod(h); ok {
			out[i] = p
		}
	}
	return out
}

// parseStateMonthlyMatrix handles rows of (state, wine) with one quantity per month
// column. The month header is searched in rows 0-3; failing that the first row's own
// labels are parsed leniently (dates, Excel serials).
func parseStateMonthlyMatrix(sheet Sheet, sheetMarket string, res *Result) {
	hdr := -1
	var months map[int]domain.Period
	for i := 0; i < len(sheet.Rows) && i <= 3; i++ {
		if cols := monthHeaderColumns(sheet.Rows[i]); len(cols) > 0 {
			hdr, months = i, cols
			break
		}
	}
	if hdr < 0 && len(sheet.Rows) > 0 {
		if cols := monthColumns(sheet.Rows[0]); len(cols) > 0 {
			hdr, months = 0, cols
		}
	}
	if hdr < 0 {
		res.Err = ErrNoHeader
		return
	}

	g := newGrid(sheet, hdr)
	idxState := g.colIndex(stateAliases...)
	idxWine := g.colIndex(wineAliases...)
	// unlabeled leading columns are state then wine
	if idxState < 0 && !hasPeriodAt(months, 0) {
		idxState = 0
	}
	if idxWine < 0 && !hasPeriodAt(months, 1) {
		idxWine = 1
	}

	parseRows(g, res, func(i int, record []string) []domain.CanonicalRecord {
		wine := cell(record, idxWine)
		if wine == "" || totalHeaderRe.MatchString(wine) {
			return nil
		}
		state := strings.ToUpper(cell(record, idxState))
		p := resolveProduct(wine)

		var out []domain.CanonicalRecord
		for _, idx := range sortedKeys(months) {
			qty, ok := ParseQuantity(cell(record, idx))
			if !ok || qty <= 0 {
				continue
			}
			rec := newRecord(g, i, "", state, p, qty)
			rec.Period = periodPtr(months[idx])
			out = append(out, withMarket(rec, sheetMarket))
		}
		return out
	})
}

// monthHeaderColumns only accepts strict Mon-YY style labels so that a data row of
// serial-looking numbers is never mistaken for the header.
func monthHeaderColumns(row []string) map[int]domain.Period {
	out := make(map[int]domain.Period)
	for i, h := range row {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if m := monYearRe.FindStringSubmatch(h); m != nil && len(m[0]) == len(h) {
			if p, ok := ParsePeriod(h); ok {
				out[i] = p
			}
		}
	}
	return out
}

func hasPeriodAt(months map[int]domain.Period, idx int) bool {
	_, ok := months[idx]
	return ok
}

func sortedKeys(m map[int]domain.Period) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// parseSupplierRank handles ranked supplier reports whose header sits below a free-text
// title block. Rows with a non-numeric rank are stray headers or footers.
func parseSupplierRank(sheet Sheet, sheetMarket string, res *Result) {
	hdr := supplierHeaderRow
	if len(sheet.Rows) <= hdr {
		res.Err = ErrNoHeader
		return
	}
	g := newGrid(sheet, hdr)
	idxRank := g.colIndex(rankAliases...)
	idxProduct := g.colIndex(wineAliases...)
	idxQty := g.colContaining(rankQtyAliases...)
	idxPlace := g.colIndex(rankPlaceAliases...)
	idxMarket := g.colIndex(marketAliases...)
	if idxProduct < 0 || idxQty < 0 {
		res.Err = ErrNoHeader
		return
	}

	var period *domain.Period
	for i := 0; i < hdr; i++ {
		for _, c := range sheet.Rows[i] {
			if p, ok := ParsePeriod(c); ok {
				period = periodPtr(p)
				break
			}
		}
		if period != nil {
			break
		}
	}

	parseRows(g, res, func(i int, record []string) []domain.CanonicalRecord {
		if idxRank >= 0 {
			if _, err := strconv.Atoi(strings.TrimSuffix(cell(record, idxRank), ".")); err != nil {
				return nil
			}
		}
		name := cell(record, idxProduct)
		qty, ok := ParseQuantity(cell(record, idxQty))
		if name == "" || !ok {
			return nil
		}
		location := cell(record, idxPlace)
		if location == "" {
			location = strings.ToUpper(sheetMarket)
		}
		rec := newRecord(g, i, cell(record, idxMarket), location, resolveProduct(name), qty)
		rec.Period = period
		return []domain.CanonicalRecord{withMarket(rec, sheetMarket)}
	})
}
