// Package process runs the post-ack pipeline for an accepted event:
// render copy for every channel, fan out, and report the result.
package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"jobcaster/internal/channel"
	"jobcaster/internal/dispatch"
	"jobcaster/internal/eventbus"
	"jobcaster/internal/generate"
	"jobcaster/internal/webhook"
	logx "jobcaster/pkg/logx"
)

// Site describes the public careers site, used to build job links.
type Site struct {
	BaseURL            string
	DefaultCompanySlug string
}

// Processor renders and dispatches an announcement for one accepted event.
type Processor struct {
	site        Site
	generator   *generate.Generator
	coordinator *dispatch.Coordinator
	bus         eventbus.Bus
	log         logx.Logger
}

func New(site Site, gen *generate.Generator, coord *dispatch.Coordinator, bus eventbus.Bus, log logx.Logger) *Processor {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Processor{site: site, generator: gen, coordinator: coord, bus: bus, log: log}
}

// JobURL builds the public link for a posting. A payload without a
// company slug falls back to the configured default slug.
func (p *Processor) JobURL(job webhook.Job) string {
	slug := job.CompanySlug
	if slug == "" {
		slug = p.site.DefaultCompanySlug
	}
	base := strings.TrimRight(p.site.BaseURL, "/")
	return fmt.Sprintf("%s/careers/%s/%s", base, slug, job.ID)
}

// Process renders copy for each channel concurrently, dispatches, and
// publishes the rollup on the bus. It returns the dispatch report; the
// error is non-nil only when every channel failed.
func (p *Processor) Process(ctx context.Context, job webhook.Job) (dispatch.Report, error) {
	adapters := p.coordinator.Adapters()
	if len(adapters) == 0 {
		return dispatch.Report{}, errors.New("no channels configured")
	}

	url := p.JobURL(job)
	start := time.Now()

	// One generation per platform; each has its own timeout inside the
	// generator and is total, so this never blocks past the budget.
	posts := make(map[string]channel.RenderedPost, len(adapters))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, a := range adapters {
		wg.Add(1)
		go func(platform string) {
			defer wg.Done()
			style := generate.StyleFor(platform)
			body := p.generator.Generate(ctx, style, job)
			mu.Lock()
			posts[platform] = channel.RenderedPost{
				Platform:  platform,
				Body:      body,
				TargetURL: url,
			}
			mu.Unlock()
		}(a.Platform())
	}
	wg.Wait()

	p.log.Debug("announcement copy rendered",
		logx.String("job_id", job.ID),
		logx.Int("platforms", len(posts)),
		logx.Duration("elapsed", time.Since(start)))

	report, err := p.coordinator.Dispatch(ctx, posts, job)
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{
			Type: eventbus.TypeDispatchReport,
			Time: time.Now(),
			Data: report,
		})
	}
	if errors.Is(err, dispatch.ErrAllChannelsFailed) {
		p.log.Error("announcement reached no channel",
			logx.String("job_id", job.ID),
			logx.String("dispatch_id", report.ID))
	}
	return report, err
}
