package series

import (
	"testing"
	"time"

	"cryptodash/internal/domain"
)

func at(sec int) time.Time {
	return time.Date(2024, 6, 15, 0, 0, sec, 0, time.UTC)
}

func actualPoint(sec int, price float64) domain.PricePoint {
	return domain.PricePoint{Symbol: "BTCUSDT", Timestamp: at(sec), Price: price}
}

func predictionPoint(sec int, price, ci float64) domain.PredictionPoint {
	return domain.PredictionPoint{Symbol: "BTCUSDT", TargetDate: at(sec), PredictedPrice: price, ConfidenceInterval: ci}
}

func TestReconcileHandOff(t *testing.T) {
	got := Reconcile(
		[]domain.PricePoint{actualPoint(1, 100), actualPoint(2, 110)},
		[]domain.PredictionPoint{predictionPoint(3, 120, 5)},
		0,
	)

	if len(got) != 3 {
		t.Fatalf("got %d points, want 3", len(got))
	}

	for i, want := range []struct {
		sec       int
		actual    float64
		predicted float64
		isActual  bool
	}{
		{1, 100, 0, true},
		{2, 110, 0, true},
		{3, 0, 120, false},
	} {
		p := got[i]
		if !p.Timestamp.Equal(at(want.sec)) {
			t.Errorf("point %d timestamp = %v, want %v", i, p.Timestamp, at(want.sec))
		}
		if want.isActual {
			if p.Actual == nil || *p.Actual != want.actual {
				t.Errorf("point %d Actual = %v, want %v", i, p.Actual, want.actual)
			}
			if p.Predicted != nil {
				t.Errorf("point %d should have no Predicted value", i)
			}
		} else {
			if p.Predicted == nil || *p.Predicted != want.predicted {
				t.Errorf("point %d Predicted = %v, want %v", i, p.Predicted, want.predicted)
			}
			if p.Actual != nil {
				t.Errorf("point %d should have no Actual value", i)
			}
		}
	}
}

func TestReconcileSortsUnorderedInput(t *testing.T) {
	// The recent-prices endpoint returns newest-first; predictions may
	// arrive in any order too.
	got := Reconcile(
		[]domain.PricePoint{actualPoint(3, 130), actualPoint(1, 100), actualPoint(2, 110)},
		[]domain.PredictionPoint{predictionPoint(6, 150, 5), predictionPoint(5, 140, 5)},
		0,
	)

	if len(got) != 5 {
		t.Fatalf("got %d points, want 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Fatalf("output not sorted: point %d (%v) before point %d (%v)",
				i, got[i].Timestamp, i-1, got[i-1].Timestamp)
		}
	}
}

func TestReconcileWindowTrimsOldest(t *testing.T) {
	actual := make([]domain.PricePoint, 30)
	for i := range actual {
		actual[i] = actualPoint(i+1, float64(100+i))
	}
	preds := []domain.PredictionPoint{predictionPoint(40, 200, 5)}

	got := Reconcile(actual, preds, 20)

	if len(got) != 21 {
		t.Fatalf("got %d points, want min(30,20)+1 = 21", len(got))
	}
	// The oldest 10 actual points must be gone; the first kept one is t=11.
	if !got[0].Timestamp.Equal(at(11)) {
		t.Errorf("first point at %v, want %v", got[0].Timestamp, at(11))
	}
	if got[20].Predicted == nil {
		t.Error("last point should be the forecast")
	}
}

func TestReconcileDefaultWindow(t *testing.T) {
	actual := make([]domain.PricePoint, DefaultWindow+5)
	for i := range actual {
		actual[i] = actualPoint(i+1, float64(i))
	}

	got := Reconcile(actual, nil, 0)
	if len(got) != DefaultWindow {
		t.Errorf("got %d points, want DefaultWindow = %d", len(got), DefaultWindow)
	}
}

func TestReconcileNeverBothValues(t *testing.T) {
	got := Reconcile(
		[]domain.PricePoint{actualPoint(1, 100), actualPoint(2, 110), actualPoint(3, 120)},
		[]domain.PredictionPoint{predictionPoint(4, 130, 5), predictionPoint(5, 140, 5)},
		0,
	)

	for i, p := range got {
		if p.Actual != nil && p.Predicted != nil {
			t.Errorf("point %d carries both actual and predicted values", i)
		}
		if p.Actual == nil && p.Predicted == nil {
			t.Errorf("point %d carries neither value", i)
		}
	}
}

func TestReconcileEmptyInputs(t *testing.T) {
	if got := Reconcile(nil, nil, 0); len(got) != 0 {
		t.Errorf("both empty: got %d points, want 0", len(got))
	}

	onlyActual := Reconcile([]domain.PricePoint{actualPoint(1, 100)}, nil, 0)
	if len(onlyActual) != 1 || onlyActual[0].Actual == nil {
		t.Errorf("empty predictions: got %+v, want one actual point", onlyActual)
	}

	onlyPreds := Reconcile(nil, []domain.PredictionPoint{predictionPoint(3, 120, 5)}, 0)
	if len(onlyPreds) != 1 || onlyPreds[0].Predicted == nil {
		t.Errorf("empty actual: got %+v, want one predicted point", onlyPreds)
	}
	if onlyPreds[0].Actual != nil {
		t.Error("forecast-only output should have no actual values")
	}
}

func TestReconcileDropsBackdatedPredictions(t *testing.T) {
	// A forecast dated at or before the last actual observation is invalid
	// input; it is dropped rather than rendered out of order.
	got := Reconcile(
		[]domain.PricePoint{actualPoint(1, 100), actualPoint(5, 110)},
		[]domain.PredictionPoint{
			predictionPoint(3, 105, 5), // backdated, inside the actual range
			predictionPoint(5, 109, 5), // ties the seam, still invalid
			predictionPoint(7, 120, 5),
		},
		0,
	)

	if len(got) != 3 {
		t.Fatalf("got %d points, want 3 (two actual + one valid forecast)", len(got))
	}
	last := got[len(got)-1]
	if last.Predicted == nil || *last.Predicted != 120 {
		t.Errorf("surviving forecast = %+v, want predicted 120", last)
	}
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	actual := []domain.PricePoint{actualPoint(2, 110), actualPoint(1, 100)}
	preds := []domain.PredictionPoint{predictionPoint(4, 130, 5), predictionPoint(3, 120, 5)}

	Reconcile(actual, preds, 0)

	if !actual[0].Timestamp.Equal(at(2)) {
		t.Error("actual input slice was reordered")
	}
	if !preds[0].TargetDate.Equal(at(4)) {
		t.Error("prediction input slice was reordered")
	}
}
