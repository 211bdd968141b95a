// Package health probes the configured channels on a schedule and keeps
// the latest result for the HTTP health endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobcaster/internal/channel"
	"jobcaster/internal/eventbus"
	logx "jobcaster/pkg/logx"
)

// DefaultSchedule probes every five minutes.
const DefaultSchedule = "@every 5m"

// ChannelStatus is one channel's most recent probe result.
type ChannelStatus struct {
	Platform  string    `json:"platform"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Elapsed   string    `json:"elapsed"`
}

// Snapshot is the last full probe round.
type Snapshot struct {
	Healthy   bool            `json:"healthy"`
	Channels  []ChannelStatus `json:"channels"`
	ProbedAt  time.Time       `json:"probed_at"`
	NextProbe time.Time       `json:"next_probe,omitempty"`
}

// Prober runs channel checks on a cron schedule. Adapters that do not
// implement channel.Checker are reported healthy without probing.
type Prober struct {
	adapters []channel.Adapter
	timeout  time.Duration
	bus      eventbus.Bus
	log      logx.Logger

	cron  *cron.Cron
	entry cron.EntryID

	mu   sync.RWMutex
	last Snapshot
}

func NewProber(adapters []channel.Adapter, timeout time.Duration, bus eventbus.Bus, log logx.Logger) *Prober {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Prober{adapters: adapters, timeout: timeout, bus: bus, log: log}
}

// Start schedules probes and runs one immediately so the health endpoint
// has data before the first tick.
func (p *Prober) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New()
	entry, err := c.AddFunc(schedule, func() { p.probe(ctx) })
	if err != nil {
		return err
	}
	p.cron = c
	p.entry = entry
	c.Start()

	p.probe(ctx)

	go func() {
		<-ctx.Done()
		p.cron.Stop()
	}()
	return nil
}

// Last returns the most recent snapshot.
func (p *Prober) Last() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

func (p *Prober) probe(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	snap := Snapshot{Healthy: true, ProbedAt: time.Now().UTC()}
	for _, a := range p.adapters {
		snap.Channels = append(snap.Channels, p.check(cctx, a))
	}
	for _, cs := range snap.Channels {
		if !cs.Healthy {
			snap.Healthy = false
			break
		}
	}

	if p.cron != nil {
		snap.NextProbe = p.cron.Entry(p.entry).Next
	}

	p.mu.Lock()
	p.last = snap
	p.mu.Unlock()

	if !snap.Healthy {
		p.log.Warn("channel probe found unhealthy channels")
	}
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{Type: eventbus.TypeHealthReport, Data: snap})
	}
}

func (p *Prober) check(ctx context.Context, a channel.Adapter) ChannelStatus {
	status := ChannelStatus{Platform: a.Platform(), CheckedAt: time.Now().UTC()}
	checker, ok := a.(channel.Checker)
	if !ok {
		status.Healthy = true
		status.Elapsed = "0s"
		return status
	}

	start := time.Now()
	err := checker.Check(ctx)
	status.Elapsed = time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		status.Error = err.Error()
		p.log.Warn("channel probe failed",
			logx.String("channel", a.Platform()),
			logx.Err(err))
		return status
	}
	status.Healthy = true
	return status
}
