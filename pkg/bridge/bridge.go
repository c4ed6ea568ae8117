// Package bridge is the C ABI surface the AR device bridge loads the engine
// through. The bridge calls in with a command string plus optional string
// arguments and gets a bracketed status response back.
package bridge

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"
import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/geostash/engine/internal/dispatcher"
)

// Config defines how calls into this library will be handled
var Config configStruct = configStruct{}

func init() {
	Config.Init()
}

// called by the device bridge to get the version of the engine
//
//export GeostashBridgeVersion
func GeostashBridgeVersion(output *C.char, outputsize C.size_t) {
	result := Config.bridgeVersion
	replyToSyncBridgeCall(result, output, outputsize)
}

// called by the device bridge for bare commands without an argument array
//
//export GeostashBridgeCall
func GeostashBridgeCall(output *C.char, outputsize C.size_t, input *C.char) {
	command := C.GoString(input)
	commandSubstr := strings.Split(command, "|")[0]

	// Handle built-in timestamp command
	if command == ":TIMESTAMP:" {
		replyToSyncBridgeCall(getTimestamp(), output, outputsize)
		return
	}

	// Use dispatcher (check both full command and substring)
	if Config.dispatcher != nil {
		dispatchCommand := command
		if !Config.dispatcher.HasHandler(command) && Config.dispatcher.HasHandler(commandSubstr) {
			dispatchCommand = commandSubstr
		}

		if Config.dispatcher.HasHandler(dispatchCommand) {
			event := dispatcher.Event{
				Command:   dispatchCommand,
				Args:      []string{command},
				Timestamp: time.Now(),
			}

			result, err := Config.dispatcher.Dispatch(event)
			response := formatDispatchResponse(result, err)
			replyToSyncBridgeCall(response, output, outputsize)
			return
		}
	}

	// No handler found
	replyToSyncBridgeCall(fmt.Sprintf(`["error", "no handler registered for %s"]`, command), output, outputsize)
}

// called by the device bridge for commands carrying an argument array
//
//export GeostashBridgeCallArgs
func GeostashBridgeCallArgs(output *C.char, outputsize C.size_t, input *C.char, argv **C.char, argc C.int) {
	command := C.GoString(input)
	args := parseArgsFromC(argv, argc)

	// Use dispatcher
	if Config.dispatcher != nil && Config.dispatcher.HasHandler(command) {
		event := dispatcher.Event{
			Command:   command,
			Args:      args,
			Timestamp: time.Now(),
		}

		result, err := Config.dispatcher.Dispatch(event)
		response := formatDispatchResponse(result, err)
		replyToSyncBridgeCall(response, output, outputsize)
		return
	}

	// No handler found
	replyToSyncBridgeCall(fmt.Sprintf(`["error", "no handler registered for %s"]`, command), output, outputsize)
}

// parseArgsFromC converts C argv array to Go string slice
func parseArgsFromC(argv **C.char, argc C.int) []string {
	var offset = unsafe.Sizeof(uintptr(0))
	var data []string
	for index := C.int(0); index < argc; index++ {
		data = append(data, C.GoString(*argv))
		argv = (**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(argv)) + offset))
	}
	return data
}

// formatDispatchResponse formats the dispatcher result for the device bridge.
// Strings pass through untouched, everything else is JSON encoded.
func formatDispatchResponse(result any, err error) string {
	if err != nil {
		return fmt.Sprintf(`["error", "%s"]`, err.Error())
	}
	if result == nil {
		return `["ok"]`
	}
	if s, ok := result.(string); ok {
		return fmt.Sprintf(`["ok", "%s"]`, s)
	}
	data, jsonErr := json.Marshal(result)
	if jsonErr != nil {
		return fmt.Sprintf(`["error", "%s"]`, jsonErr.Error())
	}
	return fmt.Sprintf(`["ok", %s]`, data)
}

// replyToSyncBridgeCall will respond to a synchronous call from the device bridge
func replyToSyncBridgeCall(response string, output *C.char, outputsize C.size_t) {
	result := C.CString(response)
	defer C.free(unsafe.Pointer(result))
	var size = C.strlen(result) + 1
	if size > outputsize {
		size = outputsize
	}
	C.memmove(unsafe.Pointer(output), unsafe.Pointer(result), size)
}

func getTimestamp() string {
	return fmt.Sprintf("%d", time.Now().UTC().UnixNano())
}
