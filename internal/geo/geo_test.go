package geo

import (
	"errors"
	"math"
	"testing"
)

func TestDistance_SamePointIsZero(t *testing.T) {
	points := []Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 52.52, Lon: 13.405},
		{Lat: -33.8688, Lon: 151.2093},
	}
	for _, p := range points {
		if d := Distance(p, p); d != 0 {
			t.Errorf("Distance(%v, %v) = %f, want 0", p, p, d)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Coordinate{Lat: 48.8566, Lon: 2.3522}
	b := Coordinate{Lat: 51.5074, Lon: -0.1278}

	ab := Distance(a, b)
	ba := Distance(b, a)

	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("Distance not symmetric: ab=%f ba=%f", ab, ba)
	}
}

func TestDistance_KnownValue(t *testing.T) {
	// One degree of latitude at the equator is ~111.19 km for R=6371 km.
	a := Coordinate{Lat: 0, Lon: 0}
	b := Coordinate{Lat: 1, Lon: 0}

	d := Distance(a, b)
	want := EarthRadiusMeters * math.Pi / 180

	if math.Abs(d-want) > 0.001 {
		t.Errorf("Distance = %f, want %f", d, want)
	}
}

func TestDistance_NearbyPoint(t *testing.T) {
	// 0.009 degrees of latitude is just over 1000 m, the radar range boundary.
	a := Coordinate{Lat: 0, Lon: 0}
	b := Coordinate{Lat: 0, Lon: 0.009}

	d := Distance(a, b)
	if d < 990 || d > 1010 {
		t.Errorf("Distance = %f, want ~1000", d)
	}
}

func TestBearing_CardinalDirections(t *testing.T) {
	origin := Coordinate{Lat: 0, Lon: 0}

	tests := []struct {
		name   string
		target Coordinate
		want   float64
	}{
		{"north", Coordinate{Lat: 1, Lon: 0}, 0},
		{"east", Coordinate{Lat: 0, Lon: 1}, 90},
		{"south", Coordinate{Lat: -1, Lon: 0}, 180},
		{"west", Coordinate{Lat: 0, Lon: -1}, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(origin, tt.target)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Bearing = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestBearing_Range(t *testing.T) {
	pairs := [][2]Coordinate{
		{{Lat: 10, Lon: 20}, {Lat: -5, Lon: 33}},
		{{Lat: 52.52, Lon: 13.405}, {Lat: 48.8566, Lon: 2.3522}},
		{{Lat: -33.8688, Lon: 151.2093}, {Lat: 35.6762, Lon: 139.6503}},
	}

	for _, pair := range pairs {
		fwd := Bearing(pair[0], pair[1])
		if fwd < 0 || fwd >= 360 {
			t.Errorf("Bearing %f out of [0,360)", fwd)
		}
	}
}

func TestBearing_Reciprocal(t *testing.T) {
	// Forward and reverse bearings differ by ~180 degrees mod 360 on short
	// arcs; meridian convergence breaks this over long great circles.
	pairs := [][2]Coordinate{
		{{Lat: 52.52, Lon: 13.405}, {Lat: 52.62, Lon: 13.405}},
		{{Lat: 0, Lon: 0}, {Lat: 0.5, Lon: 0.5}},
		{{Lat: -33.87, Lon: 151.21}, {Lat: -33.80, Lon: 151.10}},
	}

	for _, pair := range pairs {
		fwd := Bearing(pair[0], pair[1])
		rev := Bearing(pair[1], pair[0])

		diff := math.Mod(rev-fwd+360, 360)
		if math.Abs(diff-180) > 1.0 {
			t.Errorf("reciprocal bearing diff = %f, want ~180 (fwd=%f rev=%f)", diff, fwd, rev)
		}
	}
}

func TestBearing_SentinelInputDoesNotFault(t *testing.T) {
	// Absence of a fix substitutes the 0,0 sentinel; math must stay total.
	b := Bearing(Sentinel, Sentinel)
	if math.IsNaN(b) {
		t.Errorf("Bearing(sentinel, sentinel) = NaN, want a number")
	}
	d := Distance(Sentinel, Coordinate{Lat: 45, Lon: 90})
	if math.IsNaN(d) || d < 0 {
		t.Errorf("Distance from sentinel = %f, want nonnegative number", d)
	}
}

func TestParseCoordinate_Valid(t *testing.T) {
	c, err := ParseCoordinate("52.52,13.405")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat != 52.52 {
		t.Errorf("expected Lat=52.52, got %f", c.Lat)
	}
	if c.Lon != 13.405 {
		t.Errorf("expected Lon=13.405, got %f", c.Lon)
	}
}

func TestParseCoordinate_ValidWithSpaces(t *testing.T) {
	c, err := ParseCoordinate(" -33.8688 , 151.2093 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat != -33.8688 {
		t.Errorf("expected Lat=-33.8688, got %f", c.Lat)
	}
}

func TestParseCoordinate_Invalid(t *testing.T) {
	inputs := []string{"", "52.52", "abc,13.4", "52.52,xyz", "91.0,0.0", "-90.5,0.0", "0.0,181.0", "0.0,-180.5"}
	for _, in := range inputs {
		_, err := ParseCoordinate(in)
		if err == nil {
			t.Errorf("ParseCoordinate(%q): expected error", in)
		}
		if !errors.Is(err, ErrInvalidCoordinate) {
			t.Errorf("ParseCoordinate(%q): expected ErrInvalidCoordinate, got %v", in, err)
		}
	}
}

func TestWebMercator_NonFiniteInputIsEmpty(t *testing.T) {
	p := WebMercator(Coordinate{Lat: math.NaN(), Lon: 0})

	if !p.IsEmpty() {
		t.Error("expected empty point for non-finite input")
	}
	if _, ok := p.Coordinates(); ok {
		t.Error("expected no coordinates on empty point")
	}
}

func TestWebMercator_Origin(t *testing.T) {
	p := WebMercator(Coordinate{})

	coords, ok := p.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X != 0 {
		t.Errorf("expected X=0 at origin, got %f", coords.X)
	}
	if coords.Y != 0 {
		t.Errorf("expected Y=0 at origin, got %f", coords.Y)
	}
}

func TestWebMercator_Hemispheres(t *testing.T) {
	p := WebMercator(Coordinate{Lat: -30, Lon: -45})

	coords, ok := p.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X >= 0 {
		t.Errorf("expected negative X for western hemisphere, got %f", coords.X)
	}
	if coords.Y >= 0 {
		t.Errorf("expected negative Y for southern hemisphere, got %f", coords.Y)
	}
}
