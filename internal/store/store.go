// Package store holds the canonical record collections and persists them through a
// key/value port, one key per sheet plus a combined key per category.
package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

// CanonicalStore is an immutable snapshot of every category's records.
type CanonicalStore struct {
	StockOnHand    []domain.CanonicalRecord `json:"stockOnHand"`
	SalesDepletion []domain.CanonicalRecord `json:"salesDepletion"`
	Shipments      []domain.ShipmentRecord  `json:"shipments"`
	Meta           map[domain.Category]Meta `json:"meta"`
}

// Version identifies the snapshot contents; it changes on every save.
func (s CanonicalStore) Version() string {
	h := sha1.New()
	for _, c := range domain.Categories {
		m, ok := s.Meta[c]
		if !ok {
			continue
		}
		fmt.Fprintf(h, "%s:%d:%d;", c, m.Revision, m.RecordCount())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Has reports whether a category holds any records.
func (s CanonicalStore) Has(c domain.Category) bool {
	switch c {
	case domain.CategoryStockOnHand:
		return len(s.StockOnHand) > 0
	case domain.CategorySalesDepletion:
		return len(s.SalesDepletion) > 0
	case domain.CategoryExports:
		return len(s.Shipments) > 0
	}
	return false
}

// Meta describes the sheets of one saved category.
type Meta struct {
	SheetNames  []string       `json:"sheetNames"`
	SheetCounts map[string]int `json:"sheetCounts"`
	Revision    int64          `json:"revision"`
	SavedAt     time.Time      `json:"savedAt"`
}

// RecordCount sums the per-sheet counts.
func (m Meta) RecordCount() int {
	n := 0
	for _, c := range m.SheetCounts {
		n += c
	}
	return n
}

// SheetBatch is the parsed output of one sheet. Exports sheets fill Shipments, every
// other category fills Records.
type SheetBatch struct {
	Name      string                   `json:"name"`
	Records   []domain.CanonicalRecord `json:"records,omitempty"`
	Shipments []domain.ShipmentRecord  `json:"shipments,omitempty"`
}

// Count is the number of records the sheet produced.
func (b SheetBatch) Count() int {
	return len(b.Records) + len(b.Shipments)
}

// Batch is one upload of a category.
type Batch struct {
	Sheets []SheetBatch
}

// RecordCount totals the batch.
func (b Batch) RecordCount() int {
	n := 0
	for _, s := range b.Sheets {
		n += s.Count()
	}
	return n
}

func sheetKey(c domain.Category, sheet string) string {
	return "canonical:" + string(c) + ":sheet:" + sheet
}

func combinedKey(c domain.Category) string {
	return "canonical:" + string(c) + ":all"
}

func metaKey(c domain.Category) string {
	return "canonical:" + string(c) + ":meta"
}

// Store persists category batches through a KV.
type Store struct {
	kv  KV
	now func() time.Time
}

// New wraps a KV.
func New(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// SaveResult reports what was persisted.
type SaveResult struct {
	Meta Meta
	// CombinedDropped is set when the combined key did not fit and only per-sheet keys
	// were kept.
	CombinedDropped bool
}

// SaveCategory stores a new batch for a category. Each sheet in the batch replaces the
// stored sheet of the same name; sheets saved by earlier uploads and absent from the
// batch are kept. Capacity failures on the combined key fall back to per-sheet storage
// and are not reported as errors.
func (s *Store) SaveCategory(ctx context.Context, category domain.Category, batch Batch) (SaveResult, error) {
	var res SaveResult

	previous, err := s.meta(ctx, category)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return res, err
	}

	incoming := make(map[string]SheetBatch, len(batch.Sheets))
	for _, sheet := range batch.Sheets {
		incoming[sheet.Name] = sheet
	}

	meta := Meta{
		SheetNames:  make([]string, 0, len(previous.SheetNames)+len(batch.Sheets)),
		SheetCounts: make(map[string]int, len(previous.SheetNames)+len(batch.Sheets)),
		Revision:    s.now().UnixNano(),
		SavedAt:     s.now().UTC(),
	}
	var sheets []SheetBatch

	// sheets from earlier uploads that this batch does not name
	for _, name := range previous.SheetNames {
		if _, ok := incoming[name]; ok {
			continue
		}
		sheet, ok, err := s.loadSheet(ctx, category, name)
		if err != nil {
			return res, err
		}
		if !ok {
			continue
		}
		meta.SheetNames = append(meta.SheetNames, name)
		meta.SheetCounts[name] = sheet.Count()
		sheets = append(sheets, sheet)
	}

	for _, sheet := range batch.Sheets {
		payload, err := json.Marshal(sheet)
		if err != nil {
			return res, fmt.Errorf("marshal sheet %q: %w", sheet.Name, err)
		}
		if err := s.kv.Set(ctx, sheetKey(category, sheet.Name), payload); err != nil {
			if errors.Is(err, ErrCapacityExceeded) {
				log.Warn().Str("category", string(category)).Str("sheet", sheet.Name).Msg("store: sheet does not fit, skipped")
				// the older copy of this sheet is superseded even when the new one is skipped
				if err := s.kv.Remove(ctx, sheetKey(category, sheet.Name)); err != nil {
					log.Warn().Err(err).Str("sheet", sheet.Name).Msg("store: remove superseded sheet failed")
				}
				continue
			}
			return res, fmt.Errorf("save sheet %q: %w", sheet.Name, err)
		}
		if _, seen := meta.SheetCounts[sheet.Name]; !seen {
			meta.SheetNames = append(meta.SheetNames, sheet.Name)
		}
		meta.SheetCounts[sheet.Name] = sheet.Count()
		sheets = append(sheets, sheet)
	}

	metaPayload, err := json.Marshal(meta)
	if err != nil {
		return res, fmt.Errorf("marshal meta: %w", err)
	}
	if err := s.kv.Set(ctx, metaKey(category), metaPayload); err != nil {
		return res, fmt.Errorf("save meta: %w", err)
	}
	res.Meta = meta

	combined, err := json.Marshal(mergeSheets(sheets))
	if err != nil {
		return res, fmt.Errorf("marshal combined: %w", err)
	}
	if err := s.kv.Set(ctx, combinedKey(category), combined); err != nil {
		if !errors.Is(err, ErrCapacityExceeded) {
			return res, fmt.Errorf("save combined: %w", err)
		}
		log.Warn().Str("category", string(category)).Int("bytes", len(combined)).Msg("store: combined cache over capacity, keeping per-sheet keys")
		if err := s.kv.Remove(ctx, combinedKey(category)); err != nil {
			log.Warn().Err(err).Msg("store: remove combined key failed")
		}
		res.CombinedDropped = true
	}
	return res, nil
}

func mergeSheets(sheets []SheetBatch) SheetBatch {
	all := SheetBatch{Name: "all"}
	for _, sheet := range sheets {
		all.Records = append(all.Records, sheet.Records...)
		all.Shipments = append(all.Shipments, sheet.Shipments...)
	}
	return all
}

func (s *Store) loadSheet(ctx context.Context, category domain.Category, name string) (SheetBatch, bool, error) {
	raw, ok, err := s.kv.Get(ctx, sheetKey(category, name))
	if err != nil {
		return SheetBatch{}, false, fmt.Errorf("load sheet %q: %w", name, err)
	}
	if !ok {
		return SheetBatch{}, false, nil
	}
	var sheet SheetBatch
	if err := json.Unmarshal(raw, &sheet); err != nil {
		log.Warn().Err(err).Str("sheet", name).Msg("store: skip unreadable sheet")
		return SheetBatch{}, false, nil
	}
	return sheet, true, nil
}

func (s *Store) meta(ctx context.Context, category domain.Category) (Meta, error) {
	raw, ok, err := s.kv.Get(ctx, metaKey(category))
	if err != nil {
		return Meta{}, fmt.Errorf("load meta %s: %w", category, err)
	}
	if !ok {
		return Meta{}, ErrNotFound
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return Meta{}, fmt.Errorf("decode meta %s: %w", category, err)
	}
	return m, nil
}

// LoadCategory reads a category, preferring the combined key and falling back to the
// per-sheet keys listed in its meta.
func (s *Store) LoadCategory(ctx context.Context, category domain.Category) (SheetBatch, Meta, error) {
	meta, err := s.meta(ctx, category)
	if err != nil {
		return SheetBatch{}, Meta{}, err
	}

	if raw, ok, err := s.kv.Get(ctx, combinedKey(category)); err == nil && ok {
		var all SheetBatch
		if err := json.Unmarshal(raw, &all); err == nil {
			return all, meta, nil
		}
		log.Warn().Str("category", string(category)).Msg("store: combined key unreadable, rebuilding from sheets")
	}

	all := SheetBatch{Name: "all"}
	for _, name := range meta.SheetNames {
		sheet, ok, err := s.loadSheet(ctx, category, name)
		if err != nil {
			return SheetBatch{}, Meta{}, err
		}
		if !ok {
			continue
		}
		all.Records = append(all.Records, sheet.Records...)
		all.Shipments = append(all.Shipments, sheet.Shipments...)
	}
	return all, meta, nil
}

// Load assembles a CanonicalStore from every saved category.
func (s *Store) Load(ctx context.Context) (CanonicalStore, error) {
	cs := CanonicalStore{Meta: make(map[domain.Category]Meta)}
	for _, c := range domain.Categories {
		batch, meta, err := s.LoadCategory(ctx, c)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return CanonicalStore{}, err
		}
		cs.Meta[c] = meta
		switch c {
		case domain.CategoryStockOnHand:
			cs.StockOnHand = batch.Records
		case domain.CategorySalesDepletion:
			cs.SalesDepletion = batch.Records
		case domain.CategoryExports:
			cs.Shipments = batch.Shipments
		}
	}
	return cs, nil
}

// Clear removes every key of a category.
func (s *Store) Clear(ctx context.Context, category domain.Category) error {
	meta, err := s.meta(ctx, category)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, name := range meta.SheetNames {
		if err := s.kv.Remove(ctx, sheetKey(category, name)); err != nil {
			return err
		}
	}
	if err := s.kv.Remove(ctx, combinedKey(category)); err != nil {
		return err
	}
	return s.kv.Remove(ctx, metaKey(category))
}

// Summary lists the saved sheet counts for every category, sorted by category.
func (s *Store) Summary(ctx context.Context) (map[domain.Category]Meta, error) {
	out := make(map[domain.Category]Meta)
	for _, c := range domain.Categories {
		m, err := s.meta(ctx, c)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sort.Strings(m.SheetNames)
		out[c] = m
	}
	return out, nil
}

// FromBatches builds a snapshot directly, without persistence.
func FromBatches(batches map[domain.Category]Batch) CanonicalStore {
	cs := CanonicalStore{Meta: make(map[domain.Category]Meta)}
	rev := int64(0)
	for _, c := range domain.Categories {
		b, ok := batches[c]
		if !ok {
			continue
		}
		rev++
		m := Meta{SheetCounts: make(map[string]int), Revision: rev}
		for _, sheet := range b.Sheets {
			m.SheetNames = append(m.SheetNames, sheet.Name)
			m.SheetCounts[sheet.Name] += sheet.Count()
			switch c {
			case domain.CategoryExports:
				cs.Shipments = append(cs.Shipments, sheet.Shipments...)
			case domain.CategorySalesDepletion:
				cs.SalesDepletion = append(cs.SalesDepletion, sheet.Records...)
			default:
				cs.StockOnHand = append(cs.StockOnHand, sheet.Records...)
			}
		}
		cs.Meta[c] = m
	}
	return cs
}
