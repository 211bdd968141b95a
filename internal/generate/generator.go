// Package generate turns a classified job posting into announcement copy,
// one rendering per destination platform.
package generate

import (
	"context"
	"strings"
	"time"

	"jobcaster/internal/webhook"
	logx "jobcaster/pkg/logx"
)

// DefaultTimeout bounds a single backend completion.
const DefaultTimeout = 15 * time.Second

// Backend produces a completion for a system/user prompt pair.
type Backend interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Generator renders announcement copy. Generate never fails and never
// returns empty text: when the backend errors, times out, or replies with
// nothing, the deterministic template takes over.
type Generator struct {
	backend Backend
	timeout time.Duration
	log     logx.Logger
}

func New(backend Backend, timeout time.Duration, log logx.Logger) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Generator{backend: backend, timeout: timeout, log: log}
}

// Generate renders the announcement for one platform style.
func (g *Generator) Generate(ctx context.Context, style Style, job webhook.Job) string {
	if g.backend == nil {
		return fallback(style, job)
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.backend.Complete(cctx, systemPrompt(style), userPrompt(job))
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		g.log.Warn("generation fell back to template",
			logx.String("platform", style.Platform),
			logx.String("job_id", job.ID),
			logx.Duration("elapsed", time.Since(start)),
			logx.Err(err))
		return fallback(style, job)
	}
	return clip(text, style.MaxChars)
}
