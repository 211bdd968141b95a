// Package dispatch fans a rendered announcement out to every configured
// channel at once and folds the per-channel results into a single report.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobcaster/internal/channel"
	"jobcaster/internal/webhook"
	logx "jobcaster/pkg/logx"
)

// ErrAllChannelsFailed is returned when no channel accepted the post.
var ErrAllChannelsFailed = errors.New("all channels failed")

// Report is the rollup of one fan-out. Outcomes keep the order the
// adapters were registered in, regardless of completion order.
type Report struct {
	ID             string            `json:"id"`
	JobID          string            `json:"job_id"`
	JobTitle       string            `json:"job_title"`
	StartedAt      time.Time         `json:"started_at"`
	Elapsed        time.Duration     `json:"elapsed"`
	Outcomes       []channel.Outcome `json:"outcomes"`
	OverallSuccess bool              `json:"overall_success"`
}

// Succeeded lists the platforms that accepted the post.
func (r Report) Succeeded() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Succeeded {
			out = append(out, o.Platform)
		}
	}
	return out
}

// Failed lists the platforms that rejected the post.
func (r Report) Failed() []string {
	var out []string
	for _, o := range r.Outcomes {
		if !o.Succeeded {
			out = append(out, o.Platform)
		}
	}
	return out
}

// Coordinator runs the registered adapters concurrently. One slow or
// broken channel never blocks or cancels the others.
type Coordinator struct {
	adapters []channel.Adapter
	log      logx.Logger
}

func NewCoordinator(adapters []channel.Adapter, log logx.Logger) *Coordinator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Coordinator{adapters: adapters, log: log}
}

// Adapters returns the registered adapters in declared order.
func (c *Coordinator) Adapters() []channel.Adapter { return c.adapters }

// Dispatch posts to every adapter in parallel and waits for all of them.
// The returned Report always carries one Outcome per adapter; the error
// is non-nil only when there are no adapters or every one of them failed.
func (c *Coordinator) Dispatch(ctx context.Context, posts map[string]channel.RenderedPost, job webhook.Job) (Report, error) {
	report := Report{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		JobTitle:  job.Title,
		StartedAt: time.Now(),
	}
	if len(c.adapters) == 0 {
		return report, errors.New("no channels configured")
	}

	report.Outcomes = make([]channel.Outcome, len(c.adapters))
	var wg sync.WaitGroup
	for i, a := range c.adapters {
		wg.Add(1)
		go func(i int, a channel.Adapter) {
			defer wg.Done()
			report.Outcomes[i] = c.post(ctx, a, posts, job)
		}(i, a)
	}
	wg.Wait()
	report.Elapsed = time.Since(report.StartedAt)

	for _, o := range report.Outcomes {
		if o.Succeeded {
			report.OverallSuccess = true
			break
		}
	}

	c.log.Info("dispatch finished",
		logx.String("dispatch_id", report.ID),
		logx.String("job_id", job.ID),
		logx.Int("channels", len(report.Outcomes)),
		logx.Any("succeeded", report.Succeeded()),
		logx.Any("failed", report.Failed()),
		logx.Duration("elapsed", report.Elapsed))

	if !report.OverallSuccess {
		return report, ErrAllChannelsFailed
	}
	return report, nil
}

// post runs one adapter, turning a panic into a failed Outcome so a
// misbehaving channel cannot take the whole fan-out down.
func (c *Coordinator) post(ctx context.Context, a channel.Adapter, posts map[string]channel.RenderedPost, job webhook.Job) (out channel.Outcome) {
	platform := a.Platform()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("channel panicked",
				logx.String("channel", platform),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
			out = channel.Outcome{
				Platform: platform,
				Error:    fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	post, ok := posts[platform]
	if !ok {
		return channel.Outcome{Platform: platform, Error: "no rendered post for channel"}
	}
	return a.Post(ctx, post, job)
}
