package metrics

import (
	"math"
	"testing"
)

func TestProximityScore(t *testing.T) {
	cases := []struct {
		meters float64
		want   float64
	}{
		{0, 100},
		{250, 100},
		{251, 85},
		{300, 85},
		{500, 85},
		{750, 70},
		{1000, 70},
		{1200, 55},
		{1500, 55},
		{1800, 40},
		{2000, 40},
		{2500, 25},
		{10000, 25},
	}
	for _, tc := range cases {
		if got := ProximityScore(tc.meters); got != tc.want {
			t.Fatalf("ProximityScore(%v): expected %v, got %v", tc.meters, tc.want, got)
		}
	}
}

func TestTargetRangeScore(t *testing.T) {
	cases := []struct {
		km, optimal, acceptable float64
		want                    float64
	}{
		{0.4, SupermarketOptimalKm, SupermarketAcceptableKm, 100},
		{1.0, SupermarketOptimalKm, SupermarketAcceptableKm, 100},
		{2.0, SupermarketOptimalKm, SupermarketAcceptableKm, 70},
		{2.6, SupermarketOptimalKm, SupermarketAcceptableKm, 40},
		{1.5, GPOptimalKm, GPAcceptableKm, 100},
		{3.0, GPOptimalKm, GPAcceptableKm, 70},
		{3.1, GPOptimalKm, GPAcceptableKm, 40},
	}
	for _, tc := range cases {
		if got := TargetRangeScore(tc.km, tc.optimal, tc.acceptable); got != tc.want {
			t.Fatalf("TargetRangeScore(%v, %v, %v): expected %v, got %v", tc.km, tc.optimal, tc.acceptable, tc.want, got)
		}
	}
}

func TestVolumeScore(t *testing.T) {
	cases := map[int]float64{0: 0, 1: 5, 12: 60, 20: 100, 35: 100, -3: 0}
	for total, want := range cases {
		if got := VolumeScore(total); got != want {
			t.Fatalf("VolumeScore(%d): expected %v, got %v", total, want, got)
		}
	}
}

func TestCarDependencyScore(t *testing.T) {
	cases := []struct {
		cars float64
		want float64
	}{
		{0.3, 100},
		{0.7, 100},
		{0.9, 85},
		{1.0, 85},
		{1.2, 70},
		{1.3, 70},
		{1.5, 55},
		{1.6, 55},
		{2.1, 40},
	}
	for _, tc := range cases {
		if got := CarDependencyScore(tc.cars); got != tc.want {
			t.Fatalf("CarDependencyScore(%v): expected %v, got %v", tc.cars, tc.want, got)
		}
	}
}

func TestClampScore(t *testing.T) {
	if got := ClampScore(-5); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := ClampScore(140); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	if got := ClampScore(math.NaN()); got != 0 {
		t.Fatalf("expected NaN to clamp to 0, got %v", got)
	}
}
