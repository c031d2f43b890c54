package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"prewarm/pkg/types"
)

// Config holds runtime parameters for the orchestrator.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	// Command (and args) that starts the managed service. Args may carry
	// {host}, {port} and {cache} placeholders.
	Command string   `json:"command" yaml:"command" toml:"command"`
	Args    []string `json:"args" yaml:"args" toml:"args"`
	// Host/Port the service should listen on; port 0 picks a free one.
	Host string `json:"host" yaml:"host" toml:"host"`
	Port int    `json:"port" yaml:"port" toml:"port"`
	// APIKey is forwarded as a bearer credential; empty disables it.
	APIKey string `json:"api_key" yaml:"api_key" toml:"api_key"`
	// CacheDir is the host-local model cache root handed to the service.
	CacheDir string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	// Models maps capability to the model id to provision, e.g.
	// {"speech-to-text": "Systran/faster-whisper-base"}.
	Models map[string]string `json:"models" yaml:"models" toml:"models"`
	// Polling knobs, in milliseconds. Zero uses the built-in defaults.
	PollIntervalMS int `json:"poll_interval_ms" yaml:"poll_interval_ms" toml:"poll_interval_ms"`
	MaxWaitMS      int `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`
	SettleMS       int `json:"settle_ms" yaml:"settle_ms" toml:"settle_ms"`
	SettleTTSMS    int `json:"settle_tts_ms" yaml:"settle_tts_ms" toml:"settle_tts_ms"`
	// StatusAddr is where the orchestrator's own status/metrics listener
	// binds, e.g. ":9090". Empty disables it.
	StatusAddr string `json:"status_addr" yaml:"status_addr" toml:"status_addr"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Descriptors converts the capability->model mapping into an ordered list of
// descriptors. Order is fixed (speech-to-text, text-to-speech, embedding) so
// provisioning runs deterministically. Unknown capability keys are reported.
func (c Config) Descriptors() ([]types.ModelDescriptor, error) {
	for key := range c.Models {
		if !types.Capability(key).Valid() {
			return nil, fmt.Errorf("unknown capability %q in models mapping", key)
		}
	}
	known := []types.Capability{
		types.CapabilitySpeechToText,
		types.CapabilityTextToSpeech,
		types.CapabilityEmbedding,
	}
	var descs []types.ModelDescriptor
	for _, capability := range known {
		if id, ok := c.Models[string(capability)]; ok && id != "" {
			descs = append(descs, types.ModelDescriptor{ModelID: id, Capability: capability})
		}
	}
	return descs, nil
}

// Duration converts a millisecond knob to a duration, zero staying zero so the
// provisioner's defaults apply.
func Duration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
