package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"jobcaster/internal/publish"
	logx "jobcaster/pkg/logx"
)

// maxPayloadBytes bounds an inbound delivery body.
const maxPayloadBytes = 1 << 20

// Options is the hot-reloadable part of the handler configuration.
type Options struct {
	Secret  string
	Headers []string
	// MaxAge rejects tokens whose embedded timestamp is older than this.
	// Zero disables the freshness check.
	MaxAge time.Duration
}

// Spawn runs fn on a supervised background goroutine detached from the
// inbound request.
type Spawn func(name string, fn func(ctx context.Context))

// Handler accepts webhook deliveries, authenticates them, and decides
// once per job whether to announce. Accepted events are acknowledged
// immediately; rendering and fan-out happen in the background.
type Handler struct {
	mu     sync.RWMutex
	opts   Options
	ledger publish.Ledger
	spawn  Spawn
	// process runs the render-and-dispatch pipeline for an accepted job.
	process func(ctx context.Context, job Job)
	log     logx.Logger
}

func NewHandler(opts Options, ledger publish.Ledger, spawn Spawn, process func(ctx context.Context, job Job), log logx.Logger) *Handler {
	if len(opts.Headers) == 0 {
		opts.Headers = DefaultSignatureHeaders
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{opts: opts, ledger: ledger, spawn: spawn, process: process, log: log}
}

// SetOptions swaps the signature options on config reload.
func (h *Handler) SetOptions(opts Options) {
	if len(opts.Headers) == 0 {
		opts.Headers = DefaultSignatureHeaders
	}
	h.mu.Lock()
	h.opts = opts
	h.mu.Unlock()
}

func (h *Handler) options() Options {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.opts
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The sender gets exactly one JSON response, even on an internal fault.
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("webhook handler panicked", logx.Any("panic", rec))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if len(body) > maxPayloadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	// Authenticate before touching the payload. Verification always runs;
	// there is no bypass switch.
	opts := h.options()
	token := SignatureFromHeaders(r.Header, opts.Headers)
	if !VerifySignature(body, token, opts.Secret, opts.MaxAge) {
		h.log.Warn("delivery rejected, bad signature",
			logx.String("remote", r.RemoteAddr),
			logx.Bool("token_present", token != ""))
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	event, err := Classify(body)
	if err != nil {
		h.log.Warn("delivery rejected, unclassifiable", logx.Err(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := h.log.With(
		logx.String("job_id", event.Job.ID),
		logx.String("event_kind", string(event.Kind)))

	if reason := h.suppressReason(r.Context(), event); reason != "" {
		log.Info("delivery suppressed", logx.String("reason", reason))
		writeAck(w, "event received, no announcement ("+reason+")")
		return
	}

	// The ledger row is claimed; from here the announcement happens at
	// most once, detached from the request lifetime.
	job := event.Job
	h.spawn("announce-"+job.ID, func(ctx context.Context) {
		h.process(ctx, job)
	})
	log.Info("delivery accepted, dispatch scheduled")
	writeAck(w, "announcement scheduled")
}

// suppressReason decides whether the event should be announced. A
// non-empty return names why not. Claiming the ledger row is the last
// step, so suppressed events never consume the once-only slot.
func (h *Handler) suppressReason(ctx context.Context, event Event) string {
	if event.Kind == KindDeleted {
		return "job deleted"
	}
	if event.Job.Status != StatusOpen {
		return "status " + string(event.Job.Status)
	}

	claimed, err := h.ledger.Claim(ctx, event.Job.ID)
	if err != nil {
		// Fail toward suppression rather than risk a duplicate post.
		h.log.Error("ledger claim failed", logx.String("job_id", event.Job.ID), logx.Err(err))
		return "ledger unavailable"
	}
	if !claimed {
		return "already announced"
	}
	return ""
}

type ackResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

func writeAck(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, ackResponse{Success: true, Message: msg, Timestamp: time.Now().UTC()})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg, Timestamp: time.Now().UTC()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
