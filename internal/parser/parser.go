// Package parser converts raw bridge argument lists into typed values.
// It has zero external dependencies beyond a logger; handlers decide what
// to do with the results.
package parser

import (
	"fmt"
	"log/slog"
	"strconv"
)

// Parser provides pure []string -> typed value conversion.
type Parser struct {
	logger *slog.Logger

	// Static config set at creation time
	bridgeVersion string
	engineVersion string
}

// NewParser creates a new parser with only a logger dependency.
func NewParser(logger *slog.Logger, bridgeVersion, engineVersion string) *Parser {
	return &Parser{
		logger:        logger,
		bridgeVersion: bridgeVersion,
		engineVersion: engineVersion,
	}
}

// parseFloat parses a float argument with positional error context.
func parseFloat(data []string, i int) (float64, error) {
	if i >= len(data) {
		return 0, fmt.Errorf("missing argument %d", i)
	}
	f, err := strconv.ParseFloat(data[i], 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing argument %d: %w", i, err)
	}
	return f, nil
}
