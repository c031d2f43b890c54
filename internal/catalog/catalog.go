package catalog

import (
	"prewarm/pkg/types"
)

// Static tables of known-good model ids per capability. These are plain data
// consumed as input; nothing here talks to the service.

var defaults = map[types.Capability]string{
	types.CapabilitySpeechToText: "Systran/faster-whisper-base",
	types.CapabilityTextToSpeech: "speaches-ai/Kokoro-82M-v1.0-ONNX",
	types.CapabilityEmbedding:    "sentence-transformers/all-MiniLM-L6-v2",
}

// smallest maps each capability to the lightest known model, handy for test
// suites that only care about exercising the pipeline.
var smallest = map[types.Capability]string{
	types.CapabilitySpeechToText: "Systran/faster-whisper-tiny",
	types.CapabilityTextToSpeech: "speaches-ai/piper-en_US-amy-low",
	types.CapabilityEmbedding:    "sentence-transformers/all-MiniLM-L6-v2",
}

// DefaultModel returns the default model id for a capability.
func DefaultModel(c types.Capability) (string, bool) {
	id, ok := defaults[c]
	return id, ok
}

// SmallestModel returns the lightest known model id for a capability.
func SmallestModel(c types.Capability) (string, bool) {
	id, ok := smallest[c]
	return id, ok
}

// DefaultDescriptors lists the default model per capability, in provisioning
// order.
func DefaultDescriptors() []types.ModelDescriptor {
	order := []types.Capability{
		types.CapabilitySpeechToText,
		types.CapabilityTextToSpeech,
		types.CapabilityEmbedding,
	}
	descs := make([]types.ModelDescriptor, 0, len(order))
	for _, c := range order {
		descs = append(descs, types.ModelDescriptor{ModelID: defaults[c], Capability: c})
	}
	return descs
}
