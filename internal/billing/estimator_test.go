package billing

import (
	"math"
	"testing"
	"time"

	"github.com/crosslogic/accounting-engine/internal/store"
	"github.com/crosslogic/accounting-engine/pkg/models"
)

func at(minutes int) time.Time {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(minutes) * time.Minute)
}

func sample(minutes int, rate float64) models.RateSample {
	return models.RateSample{SampleTime: at(minutes), Rate: rate}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestIntegrateWindowNoSamplesIsZero(t *testing.T) {
	start, end := at(0), at(60)
	got := integrateWindow(start, end, store.IntervalData{})
	if !almostEqual(got, 0) {
		t.Fatalf("expected 0, got %v", got)
	}
}

// A first sample arriving partway through the window should hold the rate
// at 0 until that instant, then step up - not ramp up from the window
// start. A second sample holds the rate flat until it too steps down to 0
// with no successor.
func TestIntegrateWindowStepsUpAtFirstSample(t *testing.T) {
	start, end := at(0), at(60)
	s1 := sample(20, 100)
	s2 := sample(40, 100)
	data := store.IntervalData{
		InWindow: []models.RateSample{s1, s2},
	}
	got := integrateWindow(start, end, data)
	// 0 for the first 20 minutes, flat at 100 between the two samples (20
	// minutes), then 0 for the remaining 20 minutes.
	want := 1200.0 * 100
	if !almostEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

// A last sample with no successor should hold flat, then step down to 0 -
// not ramp down to the window end.
func TestIntegrateWindowStepsDownAtLastSample(t *testing.T) {
	start, end := at(0), at(60)
	s1 := sample(0, 50)
	s2 := sample(30, 50)
	data := store.IntervalData{
		Predecessor: &s1,
		InWindow:    []models.RateSample{s2},
	}
	got := integrateWindow(start, end, data)
	// Flat at 50 from 0 to 30 minutes (predecessor==firstAfterStart rate),
	// then steps to 0 for the remaining 30 minutes.
	want := 1800.0 * 50
	if !almostEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestIntegrateWindowInterpolatesBetweenBracketingSamples(t *testing.T) {
	start, end := at(0), at(60)
	pred := sample(-30, 0)
	succ := sample(90, 120)
	data := store.IntervalData{Predecessor: &pred, Successor: &succ}
	got := integrateWindow(start, end, data)
	// Rate rises linearly from 0 at t=-30min to 120 at t=90min: at t=0,
	// rate=30; at t=60, rate=90. Trapezoid over 3600s: (30+90)/2*3600.
	want := (30.0 + 90.0) / 2 * 3600
	if !almostEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestInterpolateRateMidpoint(t *testing.T) {
	a := sample(0, 0)
	b := sample(60, 100)
	got := interpolateRate(a, b, at(30))
	if !almostEqual(got, 50) {
		t.Fatalf("got %v want 50", got)
	}
}

func TestInterpolateRateDegenerateSpanReturnsFirst(t *testing.T) {
	a := sample(0, 42)
	b := sample(0, 99)
	got := interpolateRate(a, b, at(0))
	if !almostEqual(got, 42) {
		t.Fatalf("got %v want 42", got)
	}
}

func TestIsoformatMatchesFixedOffsetConvention(t *testing.T) {
	got := isoformat(at(0))
	want := "2025-01-01T00:00:00+00:00"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
