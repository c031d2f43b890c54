package lifecycle

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"prewarm/internal/common/fsutil"
	"prewarm/internal/provision"
	"prewarm/internal/registry"
	"prewarm/pkg/types"
)

// Instance is a handle to one managed service instance. At most one instance
// exists per label within a process; the instance lives for the rest of the
// process unless StopAll tears it down.
type Instance struct {
	Label string
	Host  string
	Port  int

	running atomic.Bool
	stop    func()
}

// BaseURL returns the http endpoint of the instance.
func (i *Instance) BaseURL() string {
	return "http://" + net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

// Running reports whether the instance is considered up. Safe to call from
// any goroutine, including while StopAll is tearing the instance down.
func (i *Instance) Running() bool { return i != nil && i.running.Load() }

// Options configures a Manager.
type Options struct {
	// APIKey is forwarded as a bearer credential on every service request.
	// Empty disables the header.
	APIKey string
	// CacheDir is the host-local model cache root handed to the service.
	// Created if absent. Empty disables cache handling.
	CacheDir string
	// Provision holds the readiness-polling knobs.
	Provision provision.Config
}

// Manager owns the shared service instances, one per label, and gates callers
// on provisioning. All methods are safe for concurrent use; work for a label
// is serialized by a per-label lock held across the whole start-or-reuse
// decision and provisioning pass, so parallel callers can never race a second
// instance or interleave downloads against the shared one.
type Manager struct {
	launcher Launcher
	opts     Options
	log      zerolog.Logger
	started  time.Time

	mu     sync.Mutex
	labels map[string]*labelState
}

// labelState carries the per-label instance and provisioning state. mu
// serializes start-or-reuse plus the provisioning pass; snapMu guards the
// fields read by snapshots (Endpoint, Status) so those never wait on a
// provisioning pass in flight.
type labelState struct {
	mu sync.Mutex

	snapMu   sync.Mutex
	inst     *Instance
	prov     *provision.Provisioner
	statuses []types.ModelStatus
}

func NewManager(launcher Launcher, opts Options, log zerolog.Logger) *Manager {
	return &Manager{
		launcher: launcher,
		opts:     opts,
		log:      log,
		started:  time.Now(),
		labels:   make(map[string]*labelState),
	}
}

func (m *Manager) labelState(label string) *labelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.labels[label]
	if !ok {
		ls = &labelState{}
		m.labels[label] = ls
	}
	return ls
}

// EnsureStarted starts the instance for label if it is not already up and
// returns its handle. Concurrent callers all observe the same instance; only
// the first one pays the startup cost.
func (m *Manager) EnsureStarted(ctx context.Context, label string) (*Instance, error) {
	ls := m.labelState(label)
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return m.ensureStartedLocked(ctx, label, ls)
}

func (m *Manager) ensureStartedLocked(ctx context.Context, label string, ls *labelState) (*Instance, error) {
	if inst := ls.instance(); inst != nil {
		return inst, nil
	}
	if m.opts.CacheDir != "" {
		if err := fsutil.EnsureDir(m.opts.CacheDir); err != nil {
			return nil, err
		}
	}
	host, port, stop, err := m.launcher.Launch(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("start instance %q: %w", label, err)
	}
	inst := &Instance{Label: label, Host: host, Port: port, stop: stop}
	inst.running.Store(true)
	client := registry.New(inst.BaseURL(), m.opts.APIKey, m.log)
	ls.snapMu.Lock()
	ls.inst = inst
	ls.prov = provision.New(client, m.opts.Provision, m.log)
	ls.snapMu.Unlock()
	m.log.Info().Str("label", label).Str("endpoint", inst.BaseURL()).Msg("instance ready")
	return inst, nil
}

// provisionLocked runs the sequential per-descriptor pass. Caller holds ls.mu.
func (m *Manager) provisionLocked(ctx context.Context, ls *labelState, models []types.ModelDescriptor) error {
	for _, desc := range models {
		diagnoseCache(m.log, m.opts.CacheDir, desc.ModelID)
		out, err := ls.prov.Provision(ctx, desc)
		ls.recordStatus(desc, out)
		if err != nil {
			return fmt.Errorf("provision %s: %w", desc, err)
		}
		if out == types.OutcomeReadyTimeout {
			m.log.Warn().Str("model", desc.ModelID).Msg("proceeding without observed readiness")
		}
	}
	return nil
}

// EnsureReady provisions every descriptor against the instance, in the given
// order and one at a time to bound pressure on the shared service. Fatal
// outcomes (unsupported model, rejected load) abort the pass; readiness
// timeouts only log. The same instance is returned for chaining.
func (m *Manager) EnsureReady(ctx context.Context, inst *Instance, models []types.ModelDescriptor) (*Instance, error) {
	ls := m.labelState(inst.Label)
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.instance() == nil || ls.prov == nil {
		return nil, fmt.Errorf("instance %q is not started", inst.Label)
	}
	if err := m.provisionLocked(ctx, ls, models); err != nil {
		return nil, err
	}
	return ls.instance(), nil
}

// Ensure is the common entry point for callers: start-or-reuse plus the full
// provisioning pass under one hold of the label lock.
func (m *Manager) Ensure(ctx context.Context, label string, models []types.ModelDescriptor) (*Instance, error) {
	ls := m.labelState(label)
	ls.mu.Lock()
	defer ls.mu.Unlock()
	inst, err := m.ensureStartedLocked(ctx, label, ls)
	if err != nil {
		return nil, err
	}
	if err := m.provisionLocked(ctx, ls, models); err != nil {
		return nil, err
	}
	return inst, nil
}

func (ls *labelState) instance() *Instance {
	ls.snapMu.Lock()
	defer ls.snapMu.Unlock()
	return ls.inst
}

func (ls *labelState) recordStatus(desc types.ModelDescriptor, out types.Outcome) {
	ls.snapMu.Lock()
	defer ls.snapMu.Unlock()
	for i, s := range ls.statuses {
		if s.ModelID == desc.ModelID && s.Capability == desc.Capability {
			ls.statuses[i].Outcome = out
			return
		}
	}
	ls.statuses = append(ls.statuses, types.ModelStatus{
		ModelID: desc.ModelID, Capability: desc.Capability, Outcome: out,
	})
}

// Endpoint returns the resolved host:port for label, if started. It reads the
// snapshot state only, so it does not wait on a provisioning pass in flight.
func (m *Manager) Endpoint(label string) (string, bool) {
	ls := m.labelState(label)
	inst := ls.instance()
	if inst == nil {
		return "", false
	}
	return net.JoinHostPort(inst.Host, strconv.Itoa(inst.Port)), true
}

// Status snapshots all managed instances for the status endpoint. Like
// Endpoint it only touches snapshot state, so a long provisioning pass on a
// busy label cannot stall it; outcomes for a model in flight show up once
// that model's attempt finishes.
func (m *Manager) Status() types.StatusResponse {
	m.mu.Lock()
	labels := make([]string, 0, len(m.labels))
	states := make(map[string]*labelState, len(m.labels))
	for label, ls := range m.labels {
		labels = append(labels, label)
		states[label] = ls
	}
	m.mu.Unlock()
	sort.Strings(labels)

	now := time.Now()
	resp := types.StatusResponse{
		Instances:      []types.InstanceStatus{},
		UptimeSeconds:  int64(now.Sub(m.started).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
	for _, label := range labels {
		ls := states[label]
		ls.snapMu.Lock()
		st := types.InstanceStatus{Label: label}
		if ls.inst != nil {
			st.Host = ls.inst.Host
			st.Port = ls.inst.Port
			st.Running = ls.inst.Running()
		}
		st.Models = append([]types.ModelStatus(nil), ls.statuses...)
		ls.snapMu.Unlock()
		resp.Instances = append(resp.Instances, st)
	}
	return resp
}

// StopAll terminates every started instance. Intended for the host
// environment's shutdown hook; the core itself never calls it. It takes each
// label lock, so it waits for any provisioning pass to finish rather than
// killing the instance out from under it.
func (m *Manager) StopAll() {
	m.mu.Lock()
	states := make([]*labelState, 0, len(m.labels))
	for _, ls := range m.labels {
		states = append(states, ls)
	}
	m.mu.Unlock()
	for _, ls := range states {
		ls.mu.Lock()
		if inst := ls.instance(); inst != nil && inst.stop != nil {
			inst.stop()
			inst.running.Store(false)
		}
		ls.mu.Unlock()
	}
}
