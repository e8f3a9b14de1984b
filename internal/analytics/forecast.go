package analytics

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"billing/internal/store"
)

// fallbackConfidence is the score reported when fewer than three months of
// history exist.
const fallbackConfidence = 30

// Forecast is a revenue prediction derived from the trailing 12 months.
type Forecast struct {
	PredictedNextMonth   decimal.Decimal
	PredictedNextQuarter decimal.Decimal
	ConfidenceScore      float64 // Always within [0, 100]
	MonthsAnalyzed       int
	HistoricalAverage    decimal.Decimal
}

// PredictiveForecast predicts next month's and next quarter's revenue from
// the trailing 12 months of invoice totals grouped by month.
//
// With at least three months of history the prediction is the average of the
// most recent three months adjusted by the trend against the prior three
// (trend 0 with fewer than six months). Confidence is derived from the
// consistency of the monthly series: (1 - coefficient of variation) scaled
// to [0, 100], where the coefficient of variation is the population standard
// deviation over the mean. With fewer than three months the simple
// historical average is used with a fixed low confidence.
func (e *Engine) PredictiveForecast(ctx context.Context) (Forecast, error) {
	now := e.now()
	windowStart := now.AddDate(-1, 0, 0)

	monthly := map[string]decimal.Decimal{}
	err := e.store.View(ctx, func(tx store.Tx) error {
		invoices, err := tx.ListInvoices()
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			if inv.CreatedAt.Before(windowStart) {
				continue
			}
			key := inv.CreatedAt.Format(monthKeyLayout)
			monthly[key] = monthly[key].Add(inv.Total)
		}
		return nil
	})
	if err != nil {
		return Forecast{}, err
	}

	result := Forecast{
		PredictedNextMonth:   decimal.Zero,
		PredictedNextQuarter: decimal.Zero,
		HistoricalAverage:    decimal.Zero,
		MonthsAnalyzed:       len(monthly),
	}
	if len(monthly) == 0 {
		return result, nil
	}

	keys := sortedMonthKeys(monthly)
	revenues := make([]float64, len(keys))
	sum := 0.0
	for i, key := range keys {
		revenues[i] = monthly[key].InexactFloat64()
		sum += revenues[i]
	}
	mean := sum / float64(len(revenues))
	result.HistoricalAverage = decimal.NewFromFloat(mean).Round(2)

	if len(keys) < 3 {
		result.PredictedNextMonth = result.HistoricalAverage
		result.PredictedNextQuarter = result.HistoricalAverage.Mul(decimal.NewFromInt(3)).Round(2)
		result.ConfidenceScore = fallbackConfidence
		return result, nil
	}

	avgRecent := avgOf(revenues[len(revenues)-3:])
	trend := 0.0
	if len(keys) >= 6 {
		avgOlder := avgOf(revenues[len(revenues)-6 : len(revenues)-3])
		if avgOlder > 0 {
			trend = (avgRecent - avgOlder) / avgOlder
		}
	}
	predicted := avgRecent * (1 + trend)
	result.PredictedNextMonth = decimal.NewFromFloat(predicted).Round(2)
	result.PredictedNextQuarter = decimal.NewFromFloat(predicted * 3).Round(2)
	result.ConfidenceScore = confidenceScore(revenues, mean)
	return result, nil
}

// confidenceScore maps the coefficient of variation of the series onto
// [0, 100]; a steadier series scores higher.
func confidenceScore(revenues []float64, mean float64) float64 {
	cv := 1.0
	if mean > 0 {
		variance := 0.0
		for _, r := range revenues {
			variance += (r - mean) * (r - mean)
		}
		variance /= float64(len(revenues))
		cv = math.Sqrt(variance) / mean
	}
	return math.Max(0, math.Min(100, (1-cv)*100))
}

func avgOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
