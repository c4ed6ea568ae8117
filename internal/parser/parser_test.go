package parser

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewParser(logger, "test-bridge", "test-engine")
}

func TestParsePosition(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name    string
		input   []string
		wantLat float64
		wantLon float64
		wantErr bool
	}{
		{
			name:    "basic fix",
			input:   []string{"48.8584,2.2945"},
			wantLat: 48.8584,
			wantLon: 2.2945,
		},
		{
			name:    "quoted argument",
			input:   []string{`"51.5007,-0.1246"`},
			wantLat: 51.5007,
			wantLon: -0.1246,
		},
		{
			name:    "negative both",
			input:   []string{"-33.8568,-151.2153"},
			wantLat: -33.8568,
			wantLon: -151.2153,
		},
		{
			name:    "southern hemisphere",
			input:   []string{"-33.8568,151.2153"},
			wantLat: -33.8568,
			wantLon: 151.2153,
		},
		{
			name:    "error: empty args",
			input:   []string{},
			wantErr: true,
		},
		{
			name:    "error: not a coordinate",
			input:   []string{"abc"},
			wantErr: true,
		},
		{
			name:    "error: latitude out of range",
			input:   []string{"91.0,0.0"},
			wantErr: true,
		},
		{
			name:    "error: longitude out of range",
			input:   []string{"0.0,-181.0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord, err := p.ParsePosition(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantLat, coord.Lat, 1e-9)
			assert.InDelta(t, tt.wantLon, coord.Lon, 1e-9)
		})
	}
}

func TestParseHeading(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name    string
		input   []string
		want    float64
		wantErr bool
	}{
		{name: "north", input: []string{"0"}, want: 0},
		{name: "east", input: []string{"90"}, want: 90},
		{name: "fractional", input: []string{"271.25"}, want: 271.25},
		{name: "wraps over 360", input: []string{"450"}, want: 90},
		{name: "exactly 360 wraps to 0", input: []string{"360"}, want: 0},
		{name: "negative normalizes", input: []string{"-90"}, want: 270},
		{name: "quoted", input: []string{`"180"`}, want: 180},
		{name: "error: empty args", input: []string{}, wantErr: true},
		{name: "error: not a number", input: []string{"north"}, wantErr: true},
		{name: "error: NaN", input: []string{"NaN"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseHeading(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
