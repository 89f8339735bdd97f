package geo

import (
	"math"
	"testing"
)

func TestHaversine_SamePoint(t *testing.T) {
	d := Haversine(15.3694, 44.1910, 15.3694, 44.1910)
	if d != 0 {
		t.Errorf("expected distance 0 for identical points, got %f", d)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Sana'a to Aden is roughly 320 km as the crow flies.
	d := Haversine(15.3694, 44.1910, 12.7855, 45.0187)
	if d < 290 || d > 350 {
		t.Errorf("Sana'a-Aden distance out of expected range: %f km", d)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	d1 := Haversine(15.0, 44.0, 13.0, 45.0)
	d2 := Haversine(13.0, 45.0, 15.0, 44.0)
	if math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestHaversine_SmallOffsetPositive(t *testing.T) {
	// ~0.01 degrees latitude is about 1.1 km.
	d := Haversine(15.0, 44.0, 15.01, 44.0)
	if d < 1.0 || d > 1.2 {
		t.Errorf("unexpected distance for 0.01 deg latitude offset: %f km", d)
	}
}

func TestValidateCoordinates(t *testing.T) {
	cases := []struct {
		lat, lon float64
		ok       bool
	}{
		{15.4, 44.2, true},
		{-90, -180, true},
		{90, 180, true},
		{91, 0, false},
		{0, 181, false},
		{-91, 0, false},
	}
	for _, c := range cases {
		if got := ValidateCoordinates(c.lat, c.lon); got != c.ok {
			t.Errorf("ValidateCoordinates(%f, %f) = %v, want %v", c.lat, c.lon, got, c.ok)
		}
	}
}
