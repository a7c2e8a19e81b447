package roa

import (
	"errors"
	"math"
	"testing"

	"github.com/kartoza/roa-simulator/internal/ratios"
)

func collect(t *testing.T, p *Predictor, target ratios.Item, scalars ScalarInputs) []Point {
	t.Helper()
	var points []Point
	for pt, err := range p.Scan(target, scalars) {
		if err != nil {
			t.Fatalf("Scan(%s) failed: %v", target, err)
		}
		points = append(points, pt)
	}
	return points
}

func TestScanDiffByIndex(t *testing.T) {
	if ScanDiff(0) != -15 {
		t.Errorf("Expected first offset -15, got %v", ScanDiff(0))
	}
	if ScanDiff(ScanSteps-1) != 15 {
		t.Errorf("Expected last offset 15, got %v", ScanDiff(ScanSteps-1))
	}
	if ScanDiff(30) != 0 {
		t.Errorf("Expected middle offset 0, got %v", ScanDiff(30))
	}
	for i := 1; i < ScanSteps; i++ {
		if ScanDiff(i)-ScanDiff(i-1) != ScanStep {
			t.Fatalf("Offsets %d and %d are not exactly one step apart", i-1, i)
		}
	}
}

func TestScanPointCounts(t *testing.T) {
	p, _ := newLinearPredictor(t, nil, 0.5)

	tests := []struct {
		item      ratios.Item
		expected  int
		firstDiff float64
	}{
		{ratios.ItemFeeIncome, 61, -15},
		{ratios.ItemFXGains, 61, -15},
		{ratios.ItemTrustIncome, 43, -6},
		{ratios.ItemSecuritiesGainLoss, 61, -15},
	}

	for _, tt := range tests {
		t.Run(string(tt.item), func(t *testing.T) {
			points := collect(t, p, tt.item, SensitivityScalars)
			if len(points) != tt.expected {
				t.Fatalf("Expected %d points, got %d", tt.expected, len(points))
			}
			if points[0].Diff != tt.firstDiff {
				t.Errorf("Expected first diff %v, got %v", tt.firstDiff, points[0].Diff)
			}
			for _, pt := range points {
				if pt.Value < 0 || pt.Value > 100 {
					t.Errorf("Point outside [0, 100] leaked into the scan: %+v", pt)
				}
			}
		})
	}
}

func TestScanBoundary(t *testing.T) {
	p, lp := newLinearPredictor(t, nil, 0)

	points := collect(t, p, ratios.ItemFeeIncome, SensitivityScalars)
	last := points[len(points)-1]
	if last.Diff != 15 || last.Value != 56 {
		t.Errorf("Expected diff +15 at 56, got %+v", last)
	}

	// the +15 point rebalances the siblings down by 5 each
	x := lp.seen[len(lp.seen)-1]
	expected := []float64{0.6, 0.56, 0.10, 0.33, 0.01, 0.2}
	for i := range expected {
		if math.Abs(x[i]-expected[i]) > 1e-12 {
			t.Errorf("Feature %d: expected %v, got %v", i, expected[i], x[i])
		}
	}

	trust := collect(t, p, ratios.ItemTrustIncome, SensitivityScalars)
	if trust[0].Value != 0 {
		t.Errorf("Expected trust scan to start at 0, got %v", trust[0].Value)
	}
	for _, pt := range trust {
		if pt.Diff < -6 {
			t.Errorf("Diff %v pushes trust below zero and should be absent", pt.Diff)
		}
	}
}

func TestScanIsRestartable(t *testing.T) {
	p := newTreePredictor(t)
	seq := p.Scan(ratios.ItemFXGains, SensitivityScalars)

	var first, second []Point
	for pt, err := range seq {
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		first = append(first, pt)
	}
	for pt, err := range seq {
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		second = append(second, pt)
	}

	if len(first) != len(second) {
		t.Fatalf("Expected equal lengths, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Point %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestScanStopsEarly(t *testing.T) {
	p, lp := newLinearPredictor(t, nil, 0)

	n := 0
	for _, err := range p.Scan(ratios.ItemFeeIncome, SensitivityScalars) {
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		n++
		if n == 3 {
			break
		}
	}
	if len(lp.seen) != 3 {
		t.Errorf("Expected scan to stop after 3 predictions, got %d", len(lp.seen))
	}
}

func TestScanInvalidTarget(t *testing.T) {
	p, _ := newLinearPredictor(t, nil, 0)

	var errs []error
	for _, err := range p.Scan(ratios.Item("interest"), SensitivityScalars) {
		errs = append(errs, err)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrInvalidArgument) {
		t.Errorf("Expected a single ErrInvalidArgument, got %v", errs)
	}
}

func TestSensitivityCurves(t *testing.T) {
	p, lp := newLinearPredictor(t, []float64{0, 1, 0, 0, 0, 0}, 0)

	curves, err := p.SensitivityCurves(PageSensitivity)
	if err != nil {
		t.Fatalf("SensitivityCurves failed: %v", err)
	}
	if len(curves) != 4 {
		t.Fatalf("Expected 4 curves, got %d", len(curves))
	}
	for i, it := range ratios.Items() {
		if curves[i].Item != it {
			t.Errorf("Curve %d: expected %s, got %s", i, it, curves[i].Item)
		}
	}

	// every prediction used the sensitivity page's scalars
	for _, x := range lp.seen {
		if math.Abs(x[0]-0.6) > 1e-12 || math.Abs(x[5]-0.2) > 1e-12 {
			t.Fatalf("Expected interest 0.6 and admin 0.2, got %v and %v", x[0], x[5])
		}
	}

	// fee curve runs from 0.26 to 0.56, padded by 5% of the span
	fee := curves[0]
	if math.Abs(fee.Domain.Min-(0.26-0.015)) > 1e-9 || math.Abs(fee.Domain.Max-(0.56+0.015)) > 1e-9 {
		t.Errorf("Unexpected fee domain %+v", fee.Domain)
	}
}

func TestSensitivityCurvesFlatDomain(t *testing.T) {
	p, _ := newLinearPredictor(t, nil, 0.8)

	curves, err := p.SensitivityCurves(PageSensitivity)
	if err != nil {
		t.Fatalf("SensitivityCurves failed: %v", err)
	}
	d := curves[0].Domain
	if math.Abs(d.Min-0.79) > 1e-12 || math.Abs(d.Max-0.81) > 1e-12 {
		t.Errorf("Expected flat curve padded by 0.01, got %+v", d)
	}

	if _, err := p.SensitivityCurves(Page("nope")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}
