package publish

import (
	"context"
	"errors"
	"strings"
	"sync"

	logx "jobcaster/pkg/logx"
)

// Ledger records which job ids have already been announced.
//
// Claim is the idempotency gate: an atomic insert-if-absent. It returns true
// exactly once per job id across all concurrent callers; every later or
// racing call returns false. Once claimed, a job id never reverts.
type Ledger interface {
	// WasPublished reports whether jobID has been claimed before.
	WasPublished(ctx context.Context, jobID string) (bool, error)

	// Claim atomically marks jobID as published. The first caller wins and
	// gets true; everyone else gets false.
	Claim(ctx context.Context, jobID string) (bool, error)

	Close() error
}

var ErrUnknownDriver = errors.New("unknown ledger driver")

// Config selects and configures the ledger backend.
//
// Driver values:
//   - "" or "memory": in-process map; publish state is lost on restart
//   - "sqlite": durable single-file database
//   - "redis": shared store for multi-replica deployments
type Config struct {
	Driver      string
	Path        string // sqlite only
	RedisURL    string // redis only
	BusyTimeout int64  // sqlite only, milliseconds; 0 means default
}

// Open initializes the configured ledger.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Ledger, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "redis":
		return openRedis(ctx, cfg, log)
	default:
		return nil, ErrUnknownDriver
	}
}

// memoryLedger is the baseline in-process implementation. A single mutex is
// enough: Claim is a map lookup plus insert, so contention between different
// job ids is negligible next to the network calls that follow.
type memoryLedger struct {
	mu        sync.Mutex
	published map[string]struct{}
}

func NewMemory() Ledger {
	return &memoryLedger{published: map[string]struct{}{}}
}

func (m *memoryLedger) WasPublished(_ context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.published[jobID]
	return ok, nil
}

func (m *memoryLedger) Claim(_ context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.published[jobID]; ok {
		return false, nil
	}
	m.published[jobID] = struct{}{}
	return true, nil
}

func (m *memoryLedger) Close() error { return nil }
