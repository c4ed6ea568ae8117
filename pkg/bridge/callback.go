package bridge

/*
#include <stdlib.h>

typedef int (*bridgeCallback)(char const *name, char const *function, char const *data);

// https://golang.org/cmd/cgo/#hdr-C_references_to_Go
static inline int runBridgeCallback(bridgeCallback fnc, char const *name, char const *function, char const *data)
{
	return fnc(name, function, data);
}
*/
import "C"

import (
	"fmt"
	"strings"
	"unsafe"
)

var callbackFnc C.bridgeCallback

// called by the device bridge to register its asynchronous callback
//
//export GeostashBridgeRegisterCallback
func GeostashBridgeRegisterCallback(fnc C.bridgeCallback) {
	callbackFnc = fnc
}

// WriteBridgeCallback pushes an asynchronous message to the device bridge.
// A no-op until the bridge has registered its callback.
func WriteBridgeCallback(name string, function string, data ...string) {
	if callbackFnc == nil {
		return
	}

	payload := ""
	switch len(data) {
	case 0:
	case 1:
		payload = data[0]
	default:
		payload = fmt.Sprintf(`["%s"]`, strings.Join(data, `","`))
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	cFunction := C.CString(function)
	defer C.free(unsafe.Pointer(cFunction))
	cData := C.CString(payload)
	defer C.free(unsafe.Pointer(cData))
	C.runBridgeCallback(callbackFnc, cName, cFunction, cData)
}
