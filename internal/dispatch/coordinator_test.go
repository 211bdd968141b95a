package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"jobcaster/internal/channel"
	"jobcaster/internal/webhook"
	logx "jobcaster/pkg/logx"
)

// fakeAdapter scripts one channel's behavior.
type fakeAdapter struct {
	platform string
	fail     bool
	panics   bool
	delay    time.Duration

	mu     sync.Mutex
	posted []channel.RenderedPost
}

func (f *fakeAdapter) Platform() string { return f.platform }

func (f *fakeAdapter) Post(ctx context.Context, post channel.RenderedPost, _ webhook.Job) channel.Outcome {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return channel.Outcome{Platform: f.platform, Error: ctx.Err().Error()}
		}
	}
	if f.panics {
		panic("adapter exploded")
	}
	f.mu.Lock()
	f.posted = append(f.posted, post)
	f.mu.Unlock()
	if f.fail {
		return channel.Outcome{Platform: f.platform, Error: "upstream rejected"}
	}
	return channel.Outcome{Platform: f.platform, Succeeded: true}
}

func postsFor(adapters ...*fakeAdapter) map[string]channel.RenderedPost {
	posts := make(map[string]channel.RenderedPost, len(adapters))
	for _, a := range adapters {
		posts[a.platform] = channel.RenderedPost{Platform: a.platform, Body: "body " + a.platform}
	}
	return posts
}

func asAdapters(fakes ...*fakeAdapter) []channel.Adapter {
	out := make([]channel.Adapter, len(fakes))
	for i, f := range fakes {
		out[i] = f
	}
	return out
}

func TestDispatchAllSucceed(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{platform: "linkedin"}
	b := &fakeAdapter{platform: "facebook"}
	c := NewCoordinator(asAdapters(a, b), logx.Nop())

	report, err := c.Dispatch(context.Background(), postsFor(a, b), webhook.Job{ID: "1", Title: "Engineer"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !report.OverallSuccess {
		t.Fatal("OverallSuccess = false")
	}
	if report.ID == "" || report.JobID != "1" {
		t.Fatalf("report identity = %+v", report)
	}
	if got := report.Succeeded(); len(got) != 2 {
		t.Fatalf("Succeeded() = %v", got)
	}
}

func TestDispatchPartialFailure(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{platform: "linkedin", fail: true}
	b := &fakeAdapter{platform: "facebook"}
	c := NewCoordinator(asAdapters(a, b), logx.Nop())

	report, err := c.Dispatch(context.Background(), postsFor(a, b), webhook.Job{ID: "1"})
	if err != nil {
		t.Fatalf("Dispatch with one surviving channel: %v", err)
	}
	if !report.OverallSuccess {
		t.Fatal("OverallSuccess = false with one success")
	}
	if got := report.Failed(); len(got) != 1 || got[0] != "linkedin" {
		t.Fatalf("Failed() = %v", got)
	}
}

func TestDispatchAllFail(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{platform: "linkedin", fail: true}
	b := &fakeAdapter{platform: "facebook", fail: true}
	c := NewCoordinator(asAdapters(a, b), logx.Nop())

	report, err := c.Dispatch(context.Background(), postsFor(a, b), webhook.Job{ID: "1"})
	if !errors.Is(err, ErrAllChannelsFailed) {
		t.Fatalf("err = %v, want ErrAllChannelsFailed", err)
	}
	if report.OverallSuccess {
		t.Fatal("OverallSuccess = true with zero successes")
	}
	// The report still carries every outcome for the operator.
	if len(report.Outcomes) != 2 {
		t.Fatalf("Outcomes = %v", report.Outcomes)
	}
}

func TestDispatchOutcomeOrderIsDeclaredOrder(t *testing.T) {
	t.Parallel()

	// First adapter is slowest; its outcome must still come first.
	a := &fakeAdapter{platform: "linkedin", delay: 50 * time.Millisecond}
	b := &fakeAdapter{platform: "facebook"}
	d := &fakeAdapter{platform: "googlechat"}
	c := NewCoordinator(asAdapters(a, b, d), logx.Nop())

	report, err := c.Dispatch(context.Background(), postsFor(a, b, d), webhook.Job{ID: "1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	want := []string{"linkedin", "facebook", "googlechat"}
	for i, o := range report.Outcomes {
		if o.Platform != want[i] {
			t.Fatalf("Outcomes[%d].Platform = %q, want %q", i, o.Platform, want[i])
		}
	}
}

func TestDispatchPanicBecomesFailedOutcome(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{platform: "linkedin", panics: true}
	b := &fakeAdapter{platform: "facebook"}
	c := NewCoordinator(asAdapters(a, b), logx.Nop())

	report, err := c.Dispatch(context.Background(), postsFor(a, b), webhook.Job{ID: "1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !report.OverallSuccess {
		t.Fatal("the healthy channel should still succeed")
	}
	panicked := report.Outcomes[0]
	if panicked.Succeeded || !strings.Contains(panicked.Error, "panic") {
		t.Fatalf("panicked outcome = %+v", panicked)
	}
}

func TestDispatchEachChannelGetsOwnCopy(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{platform: "linkedin"}
	b := &fakeAdapter{platform: "facebook"}
	c := NewCoordinator(asAdapters(a, b), logx.Nop())

	if _, err := c.Dispatch(context.Background(), postsFor(a, b), webhook.Job{ID: "1"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(a.posted) != 1 || a.posted[0].Body != "body linkedin" {
		t.Fatalf("linkedin received %+v", a.posted)
	}
	if len(b.posted) != 1 || b.posted[0].Body != "body facebook" {
		t.Fatalf("facebook received %+v", b.posted)
	}
}

func TestDispatchMissingRenderedPost(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{platform: "linkedin"}
	c := NewCoordinator(asAdapters(a), logx.Nop())

	report, err := c.Dispatch(context.Background(), map[string]channel.RenderedPost{}, webhook.Job{ID: "1"})
	if !errors.Is(err, ErrAllChannelsFailed) {
		t.Fatalf("err = %v, want ErrAllChannelsFailed", err)
	}
	if o := report.Outcomes[0]; o.Succeeded || o.Error == "" {
		t.Fatalf("outcome = %+v, want failure", o)
	}
}

func TestDispatchNoAdapters(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(nil, logx.Nop())
	if _, err := c.Dispatch(context.Background(), nil, webhook.Job{ID: "1"}); err == nil {
		t.Fatal("expected error with zero adapters")
	}
}
