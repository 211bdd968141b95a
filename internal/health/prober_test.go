package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobcaster/internal/channel"
	"jobcaster/internal/eventbus"
	"jobcaster/internal/webhook"
	logx "jobcaster/pkg/logx"
)

// checkedAdapter implements Adapter and Checker.
type checkedAdapter struct {
	platform string
	err      error
}

func (c *checkedAdapter) Platform() string { return c.platform }
func (c *checkedAdapter) Post(context.Context, channel.RenderedPost, webhook.Job) channel.Outcome {
	return channel.Outcome{Platform: c.platform, Succeeded: true}
}
func (c *checkedAdapter) Check(context.Context) error { return c.err }

// plainAdapter has no Check method.
type plainAdapter struct{ platform string }

func (p *plainAdapter) Platform() string { return p.platform }
func (p *plainAdapter) Post(context.Context, channel.RenderedPost, webhook.Job) channel.Outcome {
	return channel.Outcome{Platform: p.platform, Succeeded: true}
}

func TestProberAllHealthy(t *testing.T) {
	t.Parallel()

	adapters := []channel.Adapter{
		&checkedAdapter{platform: "linkedin"},
		&plainAdapter{platform: "telegram"},
	}
	p := NewProber(adapters, time.Second, nil, logx.Nop())
	p.probe(context.Background())

	snap := p.Last()
	if !snap.Healthy {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Channels) != 2 {
		t.Fatalf("channels = %v", snap.Channels)
	}
	// Adapters without a Check are reported healthy, not probed.
	if !snap.Channels[1].Healthy || snap.Channels[1].Error != "" {
		t.Fatalf("uncheckable channel = %+v", snap.Channels[1])
	}
}

func TestProberUnhealthyChannel(t *testing.T) {
	t.Parallel()

	adapters := []channel.Adapter{
		&checkedAdapter{platform: "linkedin", err: errors.New("token expired")},
		&checkedAdapter{platform: "facebook"},
	}
	p := NewProber(adapters, time.Second, nil, logx.Nop())
	p.probe(context.Background())

	snap := p.Last()
	if snap.Healthy {
		t.Fatal("snapshot healthy with a failing channel")
	}
	if snap.Channels[0].Healthy || snap.Channels[0].Error != "token expired" {
		t.Fatalf("failing channel = %+v", snap.Channels[0])
	}
	if !snap.Channels[1].Healthy {
		t.Fatalf("healthy channel = %+v", snap.Channels[1])
	}
}

func TestProberPublishesReport(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	sub, unsub := bus.Subscribe(1)
	defer unsub()

	p := NewProber([]channel.Adapter{&checkedAdapter{platform: "linkedin"}}, time.Second, bus, logx.Nop())
	p.probe(context.Background())

	select {
	case e := <-sub:
		if e.Type != eventbus.TypeHealthReport {
			t.Fatalf("event type = %q", e.Type)
		}
		if snap, ok := e.Data.(Snapshot); !ok || !snap.Healthy {
			t.Fatalf("event data = %#v", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("no health report published")
	}
}

func TestProberStartRunsImmediateProbe(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewProber([]channel.Adapter{&checkedAdapter{platform: "linkedin"}}, time.Second, nil, logx.Nop())
	if err := p.Start(ctx, "@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	snap := p.Last()
	if snap.ProbedAt.IsZero() {
		t.Fatal("no immediate probe ran")
	}
	if snap.NextProbe.IsZero() {
		t.Fatal("next probe time not recorded")
	}
}

func TestProberStartRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	p := NewProber(nil, time.Second, nil, logx.Nop())
	if err := p.Start(context.Background(), "every now and then"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
