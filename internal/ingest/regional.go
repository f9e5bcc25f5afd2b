package ingest

import (
	"regexp"
	"strings"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/vocab"
)

var (
	marketAliases   = []string{"market", "country", "mkt", "export market"}
	stateAliases    = []string{"state", "region", "territory", "st"}
	yearAliases     = []string{"year", "yr", "fiscal year", "calendar year"}
	monthAliases    = []string{"month", "mth", "mon", "month name"}
	brandAliases    = []string{"brand", "label", "brand name"}
	varietyAliases  = []string{"variety", "varietal", "grape", "wine type"}
	channelAliases  = []string{"channel", "trade channel", "sales channel", "on/off premise", "premise"}
	salesQtyAliases = []string{"sales", "sales qty", "sales quantity", "quantity", "qty", "cases", "9l cases", "depletions", "volume", "units"}
	wineAliases     = []string{"wine", "wine name", "product", "product name", "item", "item description", "description", "sku", "product description"}
	customerAliases = []string{"customer", "customer name", "account", "account name", "outlet", "store", "venue", "client", "consignee"}
	cartonAliases   = []string{"cartons", "carton", "ctns", "qty", "quantity", "cases", "units", "volume"}
	txDateAliases   = []string{"date", "invoice date", "transaction date", "tx date", "order date", "ship date", "doc date"}
	totalHeaderRe   = regexp.MustCompile(`(?i)\b(grand\s*)?total\b`)
	stateHeaderRe   = regexp.MustCompile(`(?i)(?:^|[^A-Z])(NSW|VIC|QLD|SA|WA|TAS|NT|ACT)(?:[^A-Z]|$)`)
)

// parseChannelSales handles one row per market/state/year/month/brand/variety/channel
// with a single sales quantity column.
func parseChannelSales(sheet Sheet, sheetMarket string, res *Result) {
	hdr := findHeaderRow(sheet.Rows, 6, 2, marketAliases, brandAliases, salesQtyAliases, varietyAliases, monthAliases)
	if hdr < 0 {
		res.Err = ErrNoHeader
		return
	}
	g := newGrid(sheet, hdr)
	idxMarket := g.colIndex(marketAliases...)
	idxState := g.colIndex(stateAliases...)
	idxYear := g.colIndex(yearAliases...)
	idxMonth := g.colIndex(monthAliases...)
	idxBrand := g.colIndex(brandAliases...)
	idxVariety := g.colIndex(varietyAliases...)
	idxChannel := g.colIndex(channelAliases...)
	idxQty := g.colIndex(salesQtyAliases...)

	parseRows(g, res, func(i int, record []string) []domain.CanonicalRecord {
		market := cell(record, idxMarket)
		brandText := cell(record, idxBrand)
		qty, ok := ParseQuantity(cell(record, idxQty))
		if market == "" || brandText == "" || !ok {
			return nil
		}

		p := resolveProduct(brandText + " " + cell(record, idxVariety))
		if b, ok := vocab.DetectBrand(brandText); ok {
			p.brand = b
		}
		if code, ok := vocab.VarietyCode(cell(record, idxVariety)); ok {
			p.variety = code
		}
		// channel sheets report in cases already
		p.pack = 0

		location := cell(record, idxState)
		if location == "" {
			location = cell(record, idxChannel)
		}
		rec := newRecord(g, i, market, location, p, qty)
		rec.Channel = cell(record, idxChannel)
		if period, ok := PeriodFromYearMonth(cell(record, idxYear), cell(record, idxMonth)); ok {
			rec.Period = periodPtr(period)
		} else if period, ok := ParsePeriod(cell(record, idxMonth)); ok {
			rec.Period = periodPtr(period)
		}
		return []domain.CanonicalRecord{withMarket(rec, sheetMarket)}
	})
}

// parseTransactionCartons handles transaction rows keyed by wine name, customer and
// state. The location is synthesized as STATE_customer.
func parseTransactionCartons(sheet Sheet, sheetMarket string, res *Result) {
	hdr := findHeaderRow(sheet.Rows, 6, 2, wineAliases, customerAliases, stateAliases, cartonAliases, txDateAliases)
	if hdr < 0 {
		res.Err = ErrNoHeader
		return
	}
	g := newGrid(sheet, hdr)
	idxWine := g.colIndex(wineAliases...)
	idxCustomer := g.colIndex(customerAliases...)
	idxState := g.colIndex(stateAliases...)
	idxQty := g.colIndex(cartonAliases...)
	idxDate := g.colIndex(txDateAliases...)
	idxMarket := g.colIndex(marketAliases...)

	parseRows(g, res, func(i int, record []string) []domain.CanonicalRecord {
		wine := cell(record, idxWine)
		qty, ok := ParseQuantity(cell(record, idxQty))
		if wine == "" || !ok {
			return nil
		}
		p := resolveProduct(wine)
		if p.variety == "" {
			if code, ok := vocab.VarietyCode(wine); ok {
				p.variety = code
			}
		}

		state := strings.ToUpper(cell(record, idxState))
		customer := cell(record, idxCustomer)
		location := customer
		if state != "" {
			location = state + "_" + customer
		}

		rec := newRecord(g, i, cell(record, idxMarket), location, p, qty)
		if shipped, ok := ParseDate(cell(record, idxDate)); ok {
			rec.ShippedDate = &shipped
		}
		return []domain.CanonicalRecord{withMarket(rec, sheetMarket)}
	})
}

// parseBannerPivot handles the wide layout: one row per item, one column per
// distribution centre or state. Every positive cell becomes a record.
func parseBannerPivot(sheet Sheet, sheetMarket string, res *Result) {
	hdr := findHeaderRow(sheet.Rows, 6, 1, wineAliases)
	if hdr < 0 {
		res.Err = ErrNoHeader
		return
	}
	g := newGrid(sheet, hdr)
	idxItem := g.colIndex(wineAliases...)
	skip := map[int]bool{idxItem: true}
	for _, aliases := range [][]string{marketAliases, brandAliases, varietyAliases, {"code", "item code", "sku code", "barcode", "apn", "ean", "pack", "size"}} {
		if idx := g.colIndex(aliases...); idx >= 0 {
			skip[idx] = true
		}
	}

	type qtyColumn struct {
		idx      int
		location string
	}
	var columns []qtyColumn
	for i, h := range g.header {
		if skip[i] || h == "" || totalHeaderRe.MatchString(h) {
			continue
		}
		location := h
		if m := stateHeaderRe.FindStringSubmatch(strings.ToUpper(h)); m != nil {
			location = m[1]
		}
		columns = append(columns, qtyColumn{idx: i, location: location})
	}

	period, hasPeriod := ParsePeriod(sheet.Name)

	parseRows(g, res, func(i int, record []string) []domain.CanonicalRecord {
		item := cell(record, idxItem)
		if item == "" || totalHeaderRe.MatchString(item) {
			return nil
		}
		p := resolveProduct(item)
		var out []domain.CanonicalRecord
		for _, col := range columns {
			qty, ok := ParseQuantity(cell(record, col.idx))
			if !ok || qty <= 0 {
				continue
			}
			rec := newRecord(g, i, "", col.location, p, qty)
			if hasPeriod {
				rec.Period = periodPtr(period)
			}
			out = append(out, withMarket(rec, sheetMarket))
		}
		return out
	})
}
