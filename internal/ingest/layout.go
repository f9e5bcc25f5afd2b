// Package ingest turns raw regional spreadsheets into canonical records.
//
// Every sheet is dispatched by its name to one of a closed set of layouts; sheets whose
// name matches none of them fall through to the generic header-matching strategy.
package ingest

import (
	"strings"
	"unicode"

	"github.com/andresuchdata/stockfloat/internal/vocab"
)

// Layout tags a regional sheet structure.
type Layout string

const (
	LayoutChannelSales       Layout = "channel-sales"
	LayoutTransactionCartons Layout = "transaction-cartons"
	LayoutBannerPivot        Layout = "banner-pivot"
	LayoutStateMonthlyMatrix Layout = "state-monthly-matrix"
	LayoutSupplierRank       Layout = "supplier-rank-report"
	LayoutGeneric            Layout = "generic"
	LayoutShipments          Layout = "shipments"
)

type layoutRule struct {
	layout   Layout
	keywords []string
}

// Order matters: compound AU codes must be tried before plain AU.
var layoutRules = []layoutRule{
	{LayoutChannelSales, []string{"USA", "US", "UNITEDSTATES", "CHANNEL"}},
	{LayoutTransactionCartons, []string{"AUB", "CARTON", "CARTONS", "TRANSACTION", "TRANSACTIONS"}},
	{LayoutBannerPivot, []string{"AUC", "BANNER", "PIVOT"}},
	{LayoutSupplierRank, []string{"NZL", "NZ", "NEWZEALAND", "IRE", "IRL", "IRELAND", "RANK", "RANKING", "SUPPLIER"}},
	{LayoutStateMonthlyMatrix, []string{"AUS", "AU", "AUSTRALIA", "STATE", "MATRIX", "MONTHLY"}},
}

var defaultMarkets = map[Layout]string{
	LayoutChannelSales:       vocab.MarketUSA,
	LayoutTransactionCartons: vocab.MarketAUB,
	LayoutBannerPivot:        vocab.MarketAUC,
	LayoutSupplierRank:       vocab.MarketNZL,
	LayoutStateMonthlyMatrix: vocab.MarketAU,
}

// sheetTokens splits a sheet name into upper-case alphanumeric tokens and adds every
// adjacent pair joined, so "AU-B", "AU B" and "AUB" all produce "AUB".
func sheetTokens(name string) map[string]struct{} {
	parts := strings.FieldsFunc(strings.ToUpper(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(parts)*2)
	for i, p := range parts {
		out[p] = struct{}{}
		if i+1 < len(parts) {
			out[p+parts[i+1]] = struct{}{}
		}
	}
	return out
}

// DetectLayout picks the layout for a sheet from keywords in its name.
func DetectLayout(sheetName string) Layout {
	tokens := sheetTokens(sheetName)
	for _, rule := range layoutRules {
		for _, kw := range rule.keywords {
			if _, ok := tokens[kw]; ok {
				return rule.layout
			}
		}
	}
	return LayoutGeneric
}

// SheetMarket resolves the market a sheet reports on: a market named in the sheet title
// wins, otherwise the layout's home market.
func SheetMarket(sheetName string, layout Layout) string {
	if code, ok := vocab.LookupMarket(sheetName); ok {
		return code
	}
	return defaultMarkets[layout]
}
