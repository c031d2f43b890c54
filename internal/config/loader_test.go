package config

import (
	"os"
	"path/filepath"
	"testing"

	"prewarm/pkg/types"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "command: speaches\nhost: 127.0.0.1\nport: 8000\napi_key: k1\ncache_dir: /tmp/cache\nmodels:\n  speech-to-text: Systran/faster-whisper-base\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Command != "speaches" || cfg.Host != "127.0.0.1" || cfg.Port != 8000 || cfg.APIKey != "k1" || cfg.CacheDir != "/tmp/cache" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Models["speech-to-text"] != "Systran/faster-whisper-base" {
		t.Fatalf("unexpected models: %+v", cfg.Models)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"command":"svc","port":7070,"models":{"embedding":"a/b"},"max_wait_ms":5000}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Command != "svc" || cfg.Port != 7070 || cfg.MaxWaitMS != 5000 || cfg.Models["embedding"] != "a/b" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "command=\"svc\"\nport=8081\nstatus_addr=\":9090\"\n[models]\n\"text-to-speech\"=\"x/y\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Command != "svc" || cfg.Port != 8081 || cfg.StatusAddr != ":9090" || cfg.Models["text-to-speech"] != "x/y" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestDescriptorsOrderAndValidation(t *testing.T) {
	cfg := Config{Models: map[string]string{
		"embedding":      "e/f",
		"speech-to-text": "a/b",
		"text-to-speech": "c/d",
	}}
	descs, err := cfg.Descriptors()
	if err != nil {
		t.Fatalf("descriptors: %v", err)
	}
	want := []types.ModelDescriptor{
		{ModelID: "a/b", Capability: types.CapabilitySpeechToText},
		{ModelID: "c/d", Capability: types.CapabilityTextToSpeech},
		{ModelID: "e/f", Capability: types.CapabilityEmbedding},
	}
	if len(descs) != len(want) {
		t.Fatalf("got %d descriptors", len(descs))
	}
	for i := range want {
		if descs[i] != want[i] {
			t.Fatalf("descriptor %d: got %+v want %+v", i, descs[i], want[i])
		}
	}

	bad := Config{Models: map[string]string{"speechy": "a/b"}}
	if _, err := bad.Descriptors(); err == nil {
		t.Fatal("expected unknown capability error")
	}
}
