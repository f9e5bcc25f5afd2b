package ingest

import (
	"strings"

	"github.com/andresuchdata/stockfloat/internal/descriptor"
	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/vocab"
)

// Strategy parses the rows of one sheet layout into canonical records.
type Strategy interface {
	Layout() Layout
	Parse(sheet Sheet, market string) Result
}

type strategyFunc struct {
	layout Layout
	parse  func(sheet Sheet, market string, res *Result)
}

func (s strategyFunc) Layout() Layout { return s.layout }

func (s strategyFunc) Parse(sheet Sheet, market string) Result {
	res := Result{Sheet: sheet.Name, Layout: s.layout, Market: market}
	s.parse(sheet, market, &res)
	return res
}

// Registry dispatches sheets to strategies by detected layout, with the generic
// strategy as the default entry.
type Registry struct {
	strategies map[Layout]Strategy
	fallback   Strategy
}

// NewRegistry returns a registry with every built-in layout registered.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[Layout]Strategy)}
	r.Register(strategyFunc{LayoutChannelSales, parseChannelSales})
	r.Register(strategyFunc{LayoutTransactionCartons, parseTransactionCartons})
	r.Register(strategyFunc{LayoutBannerPivot, parseBannerPivot})
	r.Register(strategyFunc{LayoutStateMonthlyMatrix, parseStateMonthlyMatrix})
	r.Register(strategyFunc{LayoutSupplierRank, parseSupplierRank})
	r.fallback = strategyFunc{LayoutGeneric, parseGeneric}
	return r
}

// Register adds or replaces the strategy for its layout.
func (r *Registry) Register(s Strategy) {
	if s.Layout() == LayoutGeneric {
		r.fallback = s
		return
	}
	r.strategies[s.Layout()] = s
}

// Parse detects the sheet's layout and parses it.
func (r *Registry) Parse(sheet Sheet) Result {
	return r.ParseAs(DetectLayout(sheet.Name), sheet)
}

// ParseAs parses a sheet with an explicit layout.
func (r *Registry) ParseAs(layout Layout, sheet Sheet) Result {
	s, ok := r.strategies[layout]
	if !ok {
		s = r.fallback
	}
	return s.Parse(sheet, SheetMarket(sheet.Name, layout))
}

// product describes a wine line resolved from free text.
type product struct {
	brand   vocab.Brand
	variety string
	vintage string
	market  string
	pack    int
}

func resolveProduct(text string) product {
	d := descriptor.Parse(text, descriptor.Options{UnitIsCases: true})
	p := product{variety: d.VarietyCode, vintage: d.Vintage, market: d.MarketCode, pack: d.PackCount}
	if d.BrandCode != "" {
		p.brand = vocab.Brand{Code: d.BrandCode, Name: d.BrandName}
	} else if b, ok := vocab.DetectBrand(text); ok {
		p.brand = b
	}
	return p
}

// newRecord assembles a canonical record. Market precedence is an explicit market
// cell, then a market named in the product text, then the sheet's market.
func newRecord(g grid, i int, marketCell, location string, p product, qty float64) domain.CanonicalRecord {
	market := ""
	switch {
	case strings.TrimSpace(marketCell) != "":
		market = vocab.NormalizeMarket(marketCell)
	case p.market != "":
		market = p.market
	}
	location = strings.TrimSpace(location)
	return domain.CanonicalRecord{
		MarketCode:         market,
		VarietyCode:        p.variety,
		BrandCode:          p.brand.Code,
		BrandName:          p.brand.Name,
		Vintage:            p.vintage,
		Location:           location,
		DistributorKey:     location,
		ProductDisplayName: vocab.DisplayName(p.brand, p.variety),
		Quantity:           descriptor.CaseEquivalents(qty, p.pack),
		SourceSheet:        g.sheet,
		RawRow:             g.rawRow(i),
	}
}

func withMarket(rec domain.CanonicalRecord, sheetMarket string) domain.CanonicalRecord {
	if rec.MarketCode == "" {
		rec.MarketCode = sheetMarket
	}
	return rec
}

func periodPtr(p domain.Period) *domain.Period {
	return &p
}
