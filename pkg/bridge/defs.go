package bridge

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"

import (
	"github.com/geostash/engine/internal/dispatcher"
)

// configStruct is the central configuration used by this library
type configStruct struct {
	// bridgeVersion is the value returned when the device bridge first
	// loads the engine
	bridgeVersion string

	// errChan is the channel that errors will be sent to
	errChan chan []string

	// dispatcher handles event routing
	dispatcher *dispatcher.Dispatcher
}

// Init method initializes the config struct
func (c *configStruct) Init() {
	c.bridgeVersion = "No version set"
}

// SetVersion sets the version string returned when the device bridge first loads the engine
func SetVersion(version string) {
	Config.bridgeVersion = version
}

// RegisterErrorChan sets the channel for error reporting
func RegisterErrorChan(channel chan []string) {
	Config.errChan = channel
}

// SetDispatcher sets the event dispatcher for handling commands
func SetDispatcher(d *dispatcher.Dispatcher) {
	Config.dispatcher = d
}

// GetDispatcher returns the configured dispatcher, or nil if not set
func GetDispatcher() *dispatcher.Dispatcher {
	return Config.dispatcher
}
