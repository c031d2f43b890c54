package provision

import (
	"fmt"

	"prewarm/pkg/types"
)

// unsupportedModelError signals that the registry confirmed the model cannot
// be installed for the requested capability.
type unsupportedModelError struct {
	modelID    string
	capability types.Capability
}

func (e unsupportedModelError) Error() string {
	return fmt.Sprintf("model %q is not supported by the registry for capability %q", e.modelID, e.capability)
}

// ErrModelUnsupported constructs an unsupportedModelError.
func ErrModelUnsupported(modelID string, capability types.Capability) error {
	return unsupportedModelError{modelID: modelID, capability: capability}
}

// IsModelUnsupported reports whether err indicates a registry-confirmed
// unsupported model.
func IsModelUnsupported(err error) bool {
	_, ok := err.(unsupportedModelError)
	return ok
}

// loadTriggerError signals that the load/download request was rejected. It
// keeps the HTTP status and response body for diagnostics.
type loadTriggerError struct {
	modelID string
	status  int
	body    string
}

func (e loadTriggerError) Error() string {
	if e.status == 0 {
		return fmt.Sprintf("load trigger for %q failed: %s", e.modelID, e.body)
	}
	return fmt.Sprintf("load trigger for %q failed: status %d: %s", e.modelID, e.status, e.body)
}

// ErrLoadTrigger constructs a loadTriggerError. status 0 means the request
// itself failed before a response was received.
func ErrLoadTrigger(modelID string, status int, body string) error {
	return loadTriggerError{modelID: modelID, status: status, body: body}
}

// IsLoadTrigger reports whether err indicates a rejected load trigger.
func IsLoadTrigger(err error) bool {
	_, ok := err.(loadTriggerError)
	return ok
}
