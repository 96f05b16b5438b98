// Package series merges a chronological actual-price series and a forecast
// series into a single chart-ready sequence with an explicit hand-off from
// actual to predicted values.
package series

import (
	"sort"
	"time"

	"cryptodash/internal/domain"
)

// DefaultWindow bounds chart density: at most this many trailing actual
// points are kept when no explicit window is given.
const DefaultWindow = 20

// MergedPoint is one point of the reconciled series. At least one of
// Actual/Predicted is set, never both: the series switches from actual to
// predicted at the seam and never carries both values at once. Produced
// only by Reconcile.
type MergedPoint struct {
	Timestamp time.Time
	Actual    *float64
	Predicted *float64
}

// Reconcile merges actual observations and forecasts into one series sorted
// by timestamp ascending. The actual series is trimmed to its most recent
// window points (DefaultWindow when window <= 0). Forecast points dated at
// or before the last kept actual timestamp are invalid input and are
// dropped, so the output invariant holds unconditionally.
//
// Neither input needs to arrive sorted; both are sorted here. The inputs
// are not modified.
func Reconcile(actual []domain.PricePoint, predicted []domain.PredictionPoint, window int) []MergedPoint {
	if window <= 0 {
		window = DefaultWindow
	}

	hist := make([]domain.PricePoint, len(actual))
	copy(hist, actual)
	sort.Slice(hist, func(i, j int) bool {
		return hist[i].Timestamp.Before(hist[j].Timestamp)
	})
	if len(hist) > window {
		hist = hist[len(hist)-window:]
	}

	preds := make([]domain.PredictionPoint, len(predicted))
	copy(preds, predicted)
	sort.Slice(preds, func(i, j int) bool {
		return preds[i].TargetDate.Before(preds[j].TargetDate)
	})

	var lastActual time.Time
	if len(hist) > 0 {
		lastActual = hist[len(hist)-1].Timestamp
	}

	out := make([]MergedPoint, 0, len(hist)+len(preds))
	for i := range hist {
		price := hist[i].Price
		out = append(out, MergedPoint{Timestamp: hist[i].Timestamp, Actual: &price})
	}
	for i := range preds {
		if len(hist) > 0 && !preds[i].TargetDate.After(lastActual) {
			// Backdated forecast: no valid place for it after the seam.
			continue
		}
		price := preds[i].PredictedPrice
		out = append(out, MergedPoint{Timestamp: preds[i].TargetDate, Predicted: &price})
	}

	return out
}
