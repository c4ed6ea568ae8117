package parser

import (
	"fmt"
	"math"

	"github.com/geostash/engine/internal/geo"
	"github.com/geostash/engine/internal/util"
)

// ParsePosition parses a geolocation fix. data[0] is "lat,lon".
func (p *Parser) ParsePosition(data []string) (geo.Coordinate, error) {
	data = util.SanitizeArgs(data)

	if len(data) < 1 {
		return geo.Coordinate{}, fmt.Errorf("position: no arguments")
	}

	coord, err := geo.ParseCoordinate(data[0])
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("error parsing position: %w", err)
	}
	return coord, nil
}

// ParseHeading parses an observer compass heading in degrees, normalized
// to [0, 360).
func (p *Parser) ParseHeading(data []string) (float64, error) {
	data = util.SanitizeArgs(data)

	deg, err := parseFloat(data, 0)
	if err != nil {
		return 0, fmt.Errorf("error parsing heading: %w", err)
	}
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0, fmt.Errorf("error parsing heading: %v is not finite", deg)
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg, nil
}
