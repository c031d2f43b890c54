package provision

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"prewarm/pkg/types"
)

// ServiceClient is the slice of the model endpoints the state machine needs.
// *registry.Client satisfies it; tests substitute fakes.
type ServiceClient interface {
	SupportedModels(ctx context.Context, capability types.Capability) []string
	LoadedModels(ctx context.Context) string
	TriggerLoad(ctx context.Context, modelID string) (status int, body string, err error)
}

// Config holds the polling knobs. Zero values mean "unspecified" and are
// replaced by defaults.
type Config struct {
	// PollInterval is the fixed delay between loaded-models polls.
	PollInterval time.Duration
	// MaxWait bounds how long readiness polling may take in total.
	MaxWait time.Duration
	// Settle is slept after the model first appears in the listing, because
	// the listing can report presence slightly before the instance can
	// actually serve requests.
	Settle time.Duration
	// SettleTTS replaces Settle for text-to-speech models, whose
	// initialization is observably slower.
	SettleTTS time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 2 * time.Minute
	}
	if c.Settle <= 0 {
		c.Settle = 3 * time.Second
	}
	if c.SettleTTS <= 0 {
		c.SettleTTS = 10 * time.Second
	}
	return c
}

// Provisioner drives one model at a time through the support check, the
// already-loaded check, the load trigger and the readiness wait. It is
// synchronous and keeps no per-model state; callers serialize access.
type Provisioner struct {
	client ServiceClient
	cfg    Config
	log    zerolog.Logger
}

func New(client ServiceClient, cfg Config, log zerolog.Logger) *Provisioner {
	return &Provisioner{client: client, cfg: cfg.withDefaults(), log: log}
}

// Provision ensures one model is supported and loaded. Fatal outcomes
// (unsupported, load rejected) come back with a non-nil error; ready-timeout
// is reported through the outcome alone so a flaky readiness signal cannot
// fail the caller.
func (p *Provisioner) Provision(ctx context.Context, desc types.ModelDescriptor) (types.Outcome, error) {
	started := time.Now()
	p.log.Info().Str("model", desc.ModelID).Str("capability", string(desc.Capability)).Msg("provision start")

	// Support check. An empty result means the registry query itself failed
	// and is inconclusive, so only a non-empty set that excludes the model is
	// treated as a confirmed mismatch.
	supported := p.client.SupportedModels(ctx, desc.Capability)
	if len(supported) > 0 && !containsID(supported, desc.ModelID) {
		p.record(desc, types.OutcomeUnsupported)
		return types.OutcomeUnsupported, ErrModelUnsupported(desc.ModelID, desc.Capability)
	}

	if strings.Contains(p.client.LoadedModels(ctx), desc.ModelID) {
		p.log.Info().Str("model", desc.ModelID).Msg("already loaded")
		p.record(desc, types.OutcomeAlreadyLoaded)
		return types.OutcomeAlreadyLoaded, nil
	}

	loadTriggersTotal.Inc()
	status, body, err := p.client.TriggerLoad(ctx, desc.ModelID)
	if err != nil {
		p.record(desc, types.OutcomeLoadFailed)
		return types.OutcomeLoadFailed, ErrLoadTrigger(desc.ModelID, 0, err.Error())
	}
	if status/100 != 2 {
		p.record(desc, types.OutcomeLoadFailed)
		return types.OutcomeLoadFailed, ErrLoadTrigger(desc.ModelID, status, strings.TrimSpace(body))
	}
	p.log.Info().Str("model", desc.ModelID).Int("status", status).Msg("load triggered")

	if !p.waitLoaded(ctx, desc.ModelID) {
		p.record(desc, types.OutcomeReadyTimeout)
		return types.OutcomeReadyTimeout, nil
	}
	p.settle(desc.Capability)

	p.log.Info().Str("model", desc.ModelID).Dur("dur", time.Since(started)).Msg("provision ready")
	p.record(desc, types.OutcomeLoadedNow)
	return types.OutcomeLoadedNow, nil
}

func (p *Provisioner) record(desc types.ModelDescriptor, o types.Outcome) {
	outcomesTotal.WithLabelValues(string(o), string(desc.Capability)).Inc()
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
