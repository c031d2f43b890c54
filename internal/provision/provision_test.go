package provision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"prewarm/internal/registry"
	"prewarm/pkg/types"
)

// fakeService mimics the managed service's model endpoints. A triggered load
// makes the model appear in the loaded listing immediately.
type fakeService struct {
	mu         sync.Mutex
	supported  []string
	loaded     []string
	loadCalls  int
	loadStatus int // 0 means 200
}

func (f *fakeService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/registry", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		objs := []map[string]string{}
		for _, id := range f.supported {
			objs = append(objs, map[string]string{"id": id})
		}
		json.NewEncoder(w).Encode(objs)
	})
	mux.HandleFunc("/v1/models/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), "/v1/models/"))
		if err != nil {
			t.Errorf("bad path segment: %v", err)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.loadCalls++
		if f.loadStatus != 0 && f.loadStatus/100 != 2 {
			w.WriteHeader(f.loadStatus)
			w.Write([]byte("download rejected"))
			return
		}
		f.loaded = append(f.loaded, id)
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"models": f.loaded})
	})
	return mux
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls
}

func testConfig() Config {
	return Config{
		PollInterval: 10 * time.Millisecond,
		MaxWait:      200 * time.Millisecond,
		Settle:       time.Millisecond,
		SettleTTS:    time.Millisecond,
	}
}

func newTestProvisioner(t *testing.T, f *fakeService) (*Provisioner, func()) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	c := registry.New(srv.URL, "", zerolog.Nop())
	return New(c, testConfig(), zerolog.Nop()), srv.Close
}

func TestProvision_LoadsThenShortCircuits(t *testing.T) {
	f := &fakeService{supported: []string{"a/b", "c/d"}}
	p, done := newTestProvisioner(t, f)
	defer done()

	desc := types.ModelDescriptor{ModelID: "a/b", Capability: types.CapabilitySpeechToText}
	out, err := p.Provision(context.Background(), desc)
	if err != nil {
		t.Fatalf("first provision: %v", err)
	}
	if out != types.OutcomeLoadedNow {
		t.Fatalf("first outcome: %v", out)
	}
	if f.calls() != 1 {
		t.Fatalf("load calls after first provision: %d", f.calls())
	}

	// second pass must stop at the already-loaded check
	out, err = p.Provision(context.Background(), desc)
	if err != nil {
		t.Fatalf("second provision: %v", err)
	}
	if out != types.OutcomeAlreadyLoaded {
		t.Fatalf("second outcome: %v", out)
	}
	if f.calls() != 1 {
		t.Fatalf("load trigger re-issued: %d calls", f.calls())
	}
}

func TestProvision_UnsupportedIsFatalBeforeTrigger(t *testing.T) {
	f := &fakeService{supported: []string{"x/y"}}
	p, done := newTestProvisioner(t, f)
	defer done()

	out, err := p.Provision(context.Background(), types.ModelDescriptor{
		ModelID: "a/b", Capability: types.CapabilityEmbedding,
	})
	if !IsModelUnsupported(err) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
	if out != types.OutcomeUnsupported {
		t.Fatalf("outcome: %v", out)
	}
	if f.calls() != 0 {
		t.Fatalf("load endpoint hit %d times before fatal", f.calls())
	}
}

func TestProvision_EmptyRegistryIsInconclusive(t *testing.T) {
	// registry returns nothing for the task: the support check is skipped and
	// provisioning proceeds to the load trigger
	f := &fakeService{}
	p, done := newTestProvisioner(t, f)
	defer done()

	out, err := p.Provision(context.Background(), types.ModelDescriptor{
		ModelID: "a/b", Capability: types.CapabilitySpeechToText,
	})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if out != types.OutcomeLoadedNow {
		t.Fatalf("outcome: %v", out)
	}
	if f.calls() != 1 {
		t.Fatalf("load calls: %d", f.calls())
	}
}

func TestProvision_LoadFailureKeepsStatusAndBody(t *testing.T) {
	f := &fakeService{supported: []string{"a/b"}, loadStatus: http.StatusConflict}
	p, done := newTestProvisioner(t, f)
	defer done()

	out, err := p.Provision(context.Background(), types.ModelDescriptor{
		ModelID: "a/b", Capability: types.CapabilitySpeechToText,
	})
	if !IsLoadTrigger(err) {
		t.Fatalf("expected load trigger error, got %v", err)
	}
	if out != types.OutcomeLoadFailed {
		t.Fatalf("outcome: %v", out)
	}
	msg := err.Error()
	if !strings.Contains(msg, "409") || !strings.Contains(msg, "download rejected") {
		t.Fatalf("error missing diagnostics: %q", msg)
	}
}

func TestProvision_ReadyTimeoutIsNonFatal(t *testing.T) {
	// loads are accepted but the model never shows up in the listing
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/registry":
			w.Write([]byte(`[]`))
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusOK)
		default:
			w.Write([]byte(`{"models":[]}`))
		}
	}))
	defer srv.Close()

	cfg := testConfig()
	p := New(registry.New(srv.URL, "", zerolog.Nop()), cfg, zerolog.Nop())

	start := time.Now()
	out, err := p.Provision(context.Background(), types.ModelDescriptor{
		ModelID: "a/b", Capability: types.CapabilitySpeechToText,
	})
	if err != nil {
		t.Fatalf("timeout must not be an error: %v", err)
	}
	if out != types.OutcomeReadyTimeout {
		t.Fatalf("outcome: %v", out)
	}
	// bounded by maxWait plus one interval, with some slack for the HTTP calls
	if elapsed := time.Since(start); elapsed > cfg.MaxWait+cfg.PollInterval+time.Second {
		t.Fatalf("poller overran deadline: %v", elapsed)
	}
}
