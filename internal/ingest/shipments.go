package ingest

import (
	"math"
	"strings"
	"unicode"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/vocab"
)

var (
	shipCustomerAliases  = []string{"customer", "customer name", "consignee", "importer", "distributor", "buyer", "account"}
	shipProductAliases   = []string{"product", "product description", "description", "wine", "sku", "item", "item description", "goods"}
	shipCasesAliases     = []string{"cases", "qty", "quantity", "cartons", "ctns", "units", "qty cases", "no of cases"}
	shipStatusAliases    = []string{"status", "shipment status", "state of shipment", "stage"}
	shipShippedAliases   = []string{"shipped", "ship date", "shipped date", "date shipped", "etd", "departure", "departure date", "dispatch date", "sailing date"}
	shipArrivalAliases   = []string{"arrival", "arrival date", "eta", "arrived", "date arrived", "delivery date", "landed"}
	shipForwarderAliases = []string{"freight forwarder", "forwarder", "carrier", "shipping line", "logistics"}
	shipTransitDays      = []string{"transit days", "days in transit", "transit time days"}
	shipTransitMonths    = []string{"transit months", "transit time", "lead time", "lead time months"}
)

var completeStatuses = map[string]bool{
	"complete": true, "completed": true, "delivered": true, "arrived": true,
	"received": true, "closed": true, "landed": true, "done": true,
}

// negations keep a shipment active when they precede a finished word, as in
// "not yet arrived" or "awaiting landed cost".
var statusNegations = map[string]bool{
	"not": true, "no": true, "yet": true, "awaiting": true, "pending": true, "waiting": true,
}

// CollapseStatus maps a free-text shipment status onto active or complete. Anything
// not recognizably finished (waiting to ship, in transit, booked, blank) is active.
func CollapseStatus(raw string) domain.ShipmentStatus {
	words := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if statusNegations[w] {
			return domain.ShipmentActive
		}
		if completeStatuses[w] {
			return domain.ShipmentComplete
		}
	}
	return domain.ShipmentActive
}

// ShipmentResult is the exports counterpart of Result.
type ShipmentResult struct {
	Sheet     string                  `json:"sheet"`
	Shipments []domain.ShipmentRecord `json:"shipments"`
	Dropped   int                     `json:"dropped"`
	Err       error                   `json:"-"`
}

// ParseShipments parses an exports sheet into shipment records with quantities in
// 12-pack case equivalents.
func ParseShipments(sheet Sheet) ShipmentResult {
	res := ShipmentResult{Sheet: sheet.Name}
	hdr := findHeaderRow(sheet.Rows, 6, 2, shipCustomerAliases, shipProductAliases, shipCasesAliases, shipStatusAliases, shipShippedAliases, shipArrivalAliases, marketAliases)
	if hdr < 0 {
		res.Err = ErrNoHeader
		return res
	}
	g := newGrid(sheet, hdr)
	idxCustomer := g.colIndex(shipCustomerAliases...)
	idxMarket := g.colIndex(marketAliases...)
	idxProduct := g.colIndex(shipProductAliases...)
	idxCases := g.colIndex(shipCasesAliases...)
	idxStatus := g.colIndex(shipStatusAliases...)
	idxShipped := g.colIndex(shipShippedAliases...)
	idxArrival := g.colIndex(shipArrivalAliases...)
	idxForwarder := g.colIndex(shipForwarderAliases...)
	idxTransitDays := g.colIndex(shipTransitDays...)
	idxTransitMonths := g.colIndex(shipTransitMonths...)
	if idxCases < 0 {
		res.Err = ErrNoHeader
		return res
	}
	sheetMarket, _ := vocab.LookupMarket(sheet.Name)

	// exports reuse the canonical row loop, then rebuild the shipment from the row
	var tmp Result
	var shipments []domain.ShipmentRecord
	parseRows(g, &tmp, func(i int, record []string) []domain.CanonicalRecord {
		productText := cell(record, idxProduct)
		cases, ok := ParseQuantity(cell(record, idxCases))
		if productText == "" || !ok {
			return nil
		}
		p := resolveProduct(productText)
		customer := cell(record, idxCustomer)

		market := ""
		switch {
		case cell(record, idxMarket) != "":
			market = vocab.NormalizeMarket(cell(record, idxMarket))
		case p.market != "":
			market = p.market
		case sheetMarket != "":
			market = sheetMarket
		default:
			if code, ok := vocab.LookupMarket(customer); ok {
				market = code
			}
		}

		rec := newRecord(g, i, market, customer, p, cases)
		rec.MarketCode = market
		s := domain.ShipmentRecord{
			CanonicalRecord:       rec,
			Customer:              customer,
			CasesInCanonicalUnits: rec.Quantity,
			RawStatus:             cell(record, idxStatus),
			Status:                CollapseStatus(cell(record, idxStatus)),
			FreightForwarder:      cell(record, idxForwarder),
			LeadTimeMonths:        vocab.LeadTimeMonths(market),
		}
		if t, ok := ParseDate(cell(record, idxShipped)); ok {
			s.ShippedDate = &t
		}
		if t, ok := ParseDate(cell(record, idxArrival)); ok {
			s.ArrivalDate = &t
		}
		if months, ok := ParseQuantity(cell(record, idxTransitMonths)); ok && months > 0 {
			m := int(math.Round(months))
			s.TransitMonths = &m
		} else if days, ok := ParseQuantity(cell(record, idxTransitDays)); ok && days > 0 {
			m := int(math.Max(1, math.Round(days/30)))
			s.TransitMonths = &m
		}
		shipments = append(shipments, s)
		return []domain.CanonicalRecord{rec}
	})
	res.Shipments = shipments
	res.Dropped = tmp.Dropped
	return res
}
