package ingest

import (
	"strings"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/vocab"
)

var (
	locationAliases = append(append([]string{"location", "distributor", "warehouse", "depot", "site", "dc", "wholesaler"},
		stateAliases...), customerAliases...)
	genericQtyAliases = []string{"quantity", "qty", "cases", "stock", "soh", "stock on hand", "on hand", "available",
		"units", "volume", "sales", "depletions", "cartons", "closing stock", "closing balance"}
	periodAliases  = []string{"period", "date", "as at", "as of", "stock date", "report date", "month"}
	vintageAliases = []string{"vintage", "vtg", "yr vintage"}
)

// genericColumns holds the resolved column index per canonical field; -1 when absent.
type genericColumns struct {
	market, location, product, variety, brand, qty, period, year, month, vintage int
}

func resolveGenericColumns(g grid) genericColumns {
	return genericColumns{
		market:   g.colIndex(marketAliases...),
		location: g.colIndex(locationAliases...),
		product:  g.colIndex(wineAliases...),
		variety:  g.colIndex(varietyAliases...),
		brand:    g.colIndex(brandAliases...),
		qty:      g.colIndex(genericQtyAliases...),
		period:   g.colIndex(periodAliases...),
		year:     g.colIndex(yearAliases...),
		month:    g.colIndex(monthAliases...),
		vintage:  g.colIndex(vintageAliases...),
	}
}

// parseGeneric is the fallback for sheets whose name matches no regional layout. It
// accepts a conventional header row, a transposed key/value form, or as a last resort
// infers fields from cell contents.
func parseGeneric(sheet Sheet, sheetMarket string, res *Result) {
	all := [][]string{marketAliases, locationAliases, wineAliases, varietyAliases, brandAliases, genericQtyAliases, periodAliases, yearAliases, vintageAliases}
	if hdr := findHeaderRow(sheet.Rows, 6, 2, all...); hdr >= 0 {
		parseGenericTable(newGrid(sheet, hdr), sheetMarket, res)
		return
	}
	if parseKeyValue(sheet, sheetMarket, res) {
		return
	}
	parseByContent(sheet, sheetMarket, res)
}

func parseGenericTable(g grid, sheetMarket string, res *Result) {
	cols := resolveGenericColumns(g)
	if cols.qty < 0 {
		res.Err = ErrNoHeader
		return
	}
	sheetPeriod, hasSheetPeriod := ParsePeriod(g.sheet)

	parseRows(g, res, func(i int, record []string) []domain.CanonicalRecord {
		qty, ok := ParseQuantity(cell(record, cols.qty))
		if !ok {
			return nil
		}
		text := strings.TrimSpace(cell(record, cols.brand) + " " + cell(record, cols.product) + " " + cell(record, cols.vintage))
		p := resolveProduct(text)
		if code, ok := vocab.VarietyCode(cell(record, cols.variety)); ok {
			p.variety = code
		}
		if p.variety == "" && cell(record, cols.product) == "" {
			return nil
		}

		rec := newRecord(g, i, cell(record, cols.market), cell(record, cols.location), p, qty)
		switch {
		case cols.year >= 0 && cols.month >= 0:
			if period, ok := PeriodFromYearMonth(cell(record, cols.year), cell(record, cols.month)); ok {
				rec.Period = periodPtr(period)
			}
		case cols.period >= 0:
			if period, ok := ParsePeriod(cell(record, cols.period)); ok {
				rec.Period = periodPtr(period)
			}
		}
		if rec.Period == nil && hasSheetPeriod {
			rec.Period = periodPtr(sheetPeriod)
		}
		return []domain.CanonicalRecord{withMarket(rec, sheetMarket)}
	})
}

// parseKeyValue handles a transposed single-record sheet where column A holds the field
// names and column B their values.
func parseKeyValue(sheet Sheet, sheetMarket string, res *Result) bool {
	if len(sheet.Rows) == 0 {
		return false
	}
	header := make([]string, 0, len(sheet.Rows))
	values := make([]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if isEmptyRow(row) {
			continue
		}
		header = append(header, cell(row, 0))
		values = append(values, cell(row, 1))
	}
	g := grid{sheet: sheet.Name, header: header, rows: [][]string{values}}
	cols := resolveGenericColumns(g)
	if cols.qty < 0 || (cols.product < 0 && cols.variety < 0) {
		return false
	}
	parseGenericTable(g, sheetMarket, res)
	return true
}

// parseByContent infers fields per row: a market token, a cell naming a variety, the
// last numeric cell as quantity and the first other text cell as location.
func parseByContent(sheet Sheet, sheetMarket string, res *Result) {
	g := grid{sheet: sheet.Name, rows: sheet.Rows}
	parseRows(g, res, func(i int, record []string) []domain.CanonicalRecord {
		market, productText, location := "", "", ""
		qty, hasQty := 0.0, false
		for _, raw := range record {
			c := strings.TrimSpace(raw)
			if c == "" {
				continue
			}
			if q, ok := ParseQuantity(c); ok {
				qty, hasQty = q, true
				continue
			}
			switch {
			case market == "" && vocab.IsMarketToken(c):
				market = c
			case productText == "" && isProductText(c):
				productText = c
			case location == "":
				location = c
			}
		}
		if !hasQty || productText == "" {
			return nil
		}
		rec := newRecord(g, i, market, location, resolveProduct(productText), qty)
		return []domain.CanonicalRecord{withMarket(rec, sheetMarket)}
	})
}

func isProductText(s string) bool {
	if _, ok := vocab.VarietyCode(s); ok {
		return true
	}
	_, ok := vocab.DetectBrand(s)
	return ok
}
