package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/geostash/engine/internal/gesture"
	"github.com/geostash/engine/internal/util"
)

// ParseLandmarkFrame parses a hand landmark frame. The bridge sends 63
// floats, x/y/z per landmark, either as 63 separate arguments or as a
// single comma-separated argument. A malformed payload is an error; the
// handler maps it to "no hand" rather than failing the feed.
func (p *Parser) ParseLandmarkFrame(data []string) (gesture.LandmarkFrame, error) {
	data = util.SanitizeArgs(data)

	if len(data) == 1 && strings.Contains(data[0], ",") {
		data = strings.Split(data[0], ",")
	}

	const want = gesture.LandmarkCount * 3
	if len(data) != want {
		return nil, fmt.Errorf("landmark frame: expected %d values, got %d", want, len(data))
	}

	frame := make(gesture.LandmarkFrame, gesture.LandmarkCount)
	for i := 0; i < gesture.LandmarkCount; i++ {
		x, err := strconv.ParseFloat(strings.TrimSpace(data[i*3]), 64)
		if err != nil {
			return nil, fmt.Errorf("landmark %d x: %w", i, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(data[i*3+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("landmark %d y: %w", i, err)
		}
		z, err := strconv.ParseFloat(strings.TrimSpace(data[i*3+2]), 64)
		if err != nil {
			return nil, fmt.Errorf("landmark %d z: %w", i, err)
		}
		frame[i] = gesture.Point3{X: x, Y: y, Z: z}
	}

	return frame, nil
}
