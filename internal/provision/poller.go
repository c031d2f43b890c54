package provision

import (
	"context"
	"strings"
	"time"

	"prewarm/pkg/types"
)

// waitLoaded polls the loaded-models listing at a fixed interval until the
// model id appears or MaxWait elapses. Timeouts are logged and reported as
// false; the poller never fails the caller. No backoff growth, fixed interval
// and a fixed ceiling.
func (p *Provisioner) waitLoaded(ctx context.Context, modelID string) bool {
	deadline := time.Now().Add(p.cfg.MaxWait)
	for {
		readinessPollsTotal.Inc()
		if strings.Contains(p.client.LoadedModels(ctx), modelID) {
			return true
		}
		if time.Now().After(deadline) {
			p.log.Warn().
				Str("model", modelID).
				Dur("max_wait", p.cfg.MaxWait).
				Msg("model did not appear in loaded listing before deadline")
			return false
		}
		select {
		case <-time.After(p.cfg.PollInterval):
		case <-ctx.Done():
			p.log.Warn().Str("model", modelID).Err(ctx.Err()).Msg("readiness wait interrupted")
			return false
		}
	}
}

// settle sleeps past the point where the listing reports presence, since the
// instance can need a little longer before it serves requests correctly.
func (p *Provisioner) settle(capability types.Capability) {
	d := p.cfg.Settle
	if capability == types.CapabilityTextToSpeech {
		d = p.cfg.SettleTTS
	}
	time.Sleep(d)
}
