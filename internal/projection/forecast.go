package projection

import (
	"math"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/vocab"
)

// ForecastModel is a flat monthly average of historical quantity. There is no trend or
// seasonality: every projected period receives the same value.
type ForecastModel struct {
	ByMarket map[string]float64 `json:"byMarket"`
	Overall  float64            `json:"overall"`
	// Actuals holds the summed historical quantity per period key.
	Actuals map[string]float64 `json:"actuals"`
}

// Forecast averages history per market and overall. The average is the quantity sum
// divided by the number of distinct periods that carried data.
func Forecast(history []domain.CanonicalRecord) ForecastModel {
	perMarket := make(map[string]map[string]float64)
	actuals := make(map[string]float64)
	for _, r := range history {
		p, ok := r.EffectivePeriod()
		if !ok {
			continue
		}
		key := p.Key()
		qty := nonNegative(r.Quantity)
		m, ok := perMarket[r.MarketCode]
		if !ok {
			m = make(map[string]float64)
			perMarket[r.MarketCode] = m
		}
		m[key] += qty
		actuals[key] += qty
	}

	model := ForecastModel{ByMarket: make(map[string]float64, len(perMarket)), Actuals: actuals}
	for _, market := range sortedKeys(perMarket) {
		periods := perMarket[market]
		model.ByMarket[market] = average(periods)
	}
	model.Overall = average(actuals)
	return model
}

func average(byPeriod map[string]float64) float64 {
	if len(byPeriod) == 0 {
		return 0
	}
	sum := 0.0
	for _, k := range sortedKeys(byPeriod) {
		sum += byPeriod[k]
	}
	return sum / float64(len(byPeriod))
}

// Aggregate returns the predicted monthly sales for the whole selection: the market
// average when a single market is filtered and known, the overall average otherwise.
func (m ForecastModel) Aggregate(market string) float64 {
	if market != "" {
		if v, ok := m.ByMarket[vocab.NormalizeMarket(market)]; ok {
			return v
		}
	}
	return m.Overall
}

// ForMarket returns the market average, falling back to the overall average.
func (m ForecastModel) ForMarket(market string) float64 {
	if v, ok := m.ByMarket[market]; ok {
		return v
	}
	return m.Overall
}

// Actual returns the historical total for a period key.
func (m ForecastModel) Actual(period string) (float64, bool) {
	v, ok := m.Actuals[period]
	return v, ok
}

// ScoreAccuracy rates a forecast against the actual on a 0..100 scale. It returns nil
// when there is nothing to score.
func ScoreAccuracy(predicted, actual float64) *int {
	if predicted <= 0 {
		return nil
	}
	denom := math.Max(math.Max(predicted, actual), 1)
	score := int(math.Round((1 - math.Abs(predicted-actual)/denom) * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return &score
}
