package types

// Capability classifies what a model does and selects the registry task label
// used when asking the managed service which models it supports.
type Capability string

const (
	CapabilitySpeechToText Capability = "speech-to-text"
	CapabilityTextToSpeech Capability = "text-to-speech"
	CapabilityEmbedding    Capability = "embedding"
)

// TaskLabel maps a capability to the task string understood by the registry
// endpoint. Unknown capabilities map to an empty label.
func (c Capability) TaskLabel() string {
	switch c {
	case CapabilitySpeechToText:
		return "automatic-speech-recognition"
	case CapabilityTextToSpeech:
		return "text-to-speech"
	case CapabilityEmbedding:
		return "feature-extraction"
	default:
		return ""
	}
}

// Valid reports whether c is one of the known capabilities.
func (c Capability) Valid() bool { return c.TaskLabel() != "" }

// ModelDescriptor identifies one model to provision.
// ModelID is an opaque provider string and frequently contains a '/'
// (e.g. "Systran/faster-whisper-base"), which must be percent-encoded when
// embedded in a URL path segment.
type ModelDescriptor struct {
	ModelID    string     `json:"model_id"`
	Capability Capability `json:"capability"`
}

func (d ModelDescriptor) String() string {
	return d.ModelID + " (" + string(d.Capability) + ")"
}

// Outcome is the result of one provisioning attempt for one descriptor.
type Outcome string

const (
	// OutcomeAlreadyLoaded means the model was resident before we did anything.
	OutcomeAlreadyLoaded Outcome = "already_loaded"
	// OutcomeLoadedNow means the load was triggered and observed ready.
	OutcomeLoadedNow Outcome = "loaded_now"
	// OutcomeUnsupported means the registry confirmed the model cannot be installed.
	OutcomeUnsupported Outcome = "unsupported"
	// OutcomeLoadFailed means the load trigger request was rejected.
	OutcomeLoadFailed Outcome = "load_failed"
	// OutcomeReadyTimeout means the load was triggered but readiness was never
	// observed before the polling deadline. Non-fatal.
	OutcomeReadyTimeout Outcome = "ready_timeout"
)

// Fatal reports whether the outcome aborts the whole ensure-ready pass.
func (o Outcome) Fatal() bool {
	return o == OutcomeUnsupported || o == OutcomeLoadFailed
}
