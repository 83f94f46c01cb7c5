package vault

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/StevenGann/ObsidianDB/internal/apperr"
)

// Callback receives the full current note when its content hash is found to
// have diverged from the stored value.
type Callback func(*Note)

// Ledger is the update notification pub/sub keyed by note id. Pending ids
// accumulate between ticks; each distinct id is delivered exactly once per
// drain. Fan-out order across subscribers is unspecified.
type Ledger struct {
	vault  *Vault
	logger *slog.Logger

	mu      sync.Mutex
	subs    map[string][]Callback
	pending map[string]struct{}
	order   []string
}

func newLedger(v *Vault, logger *slog.Logger) *Ledger {
	return &Ledger{
		vault:   v,
		logger:  logger,
		subs:    make(map[string][]Callback),
		pending: make(map[string]struct{}),
	}
}

// Subscribe registers interest in future changes to the note id. Multiple
// subscribers per id are allowed.
func (l *Ledger) Subscribe(id string, cb Callback) {
	if id == "" || cb == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs[id] = append(l.subs[id], cb)
}

// EnqueueUpdate marks the note id as pending. Enqueuing an id twice before
// the next drain is a no-op, and ids without any subscription are dropped.
func (l *Ledger) EnqueueUpdate(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, subscribed := l.subs[id]; !subscribed {
		return
	}
	if _, dup := l.pending[id]; dup {
		return
	}
	l.pending[id] = struct{}{}
	l.order = append(l.order, id)
}

// Pending returns the number of ids waiting to be drained.
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Tick drains the pending ids, resolving each to the current note and firing
// every subscribed callback. A panicking subscriber is logged and does not
// block the others; an id that no longer resolves has its subscriptions
// dropped.
func (l *Ledger) Tick() {
	l.mu.Lock()
	ids := l.order
	l.order = nil
	l.pending = make(map[string]struct{})
	l.mu.Unlock()

	for _, id := range ids {
		n, err := l.vault.GetNote(id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				l.mu.Lock()
				delete(l.subs, id)
				l.mu.Unlock()
				l.logger.Debug("callbacks: dropped dead id", slog.String("id", id))
				continue
			}
			l.logger.Warn("callbacks: resolve failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}

		l.mu.Lock()
		cbs := append([]Callback(nil), l.subs[id]...)
		l.mu.Unlock()

		for _, cb := range cbs {
			l.fire(id, cb, n)
		}
	}
}

func (l *Ledger) fire(id string, cb Callback, n *Note) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("callbacks: subscriber panicked",
				slog.String("id", id),
				slog.Any("panic", r))
		}
	}()
	cb(n)
}
