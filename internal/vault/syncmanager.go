package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/StevenGann/ObsidianDB/internal/apperr"
)

// lockSet is the self-write suppression set: paths currently being written
// by a note itself, keyed by absolute path and ref-counted so concurrent
// saves of different notes never unlock each other.
type lockSet struct {
	mu    sync.Mutex
	paths map[string]int
}

func newLockSet() *lockSet {
	return &lockSet{paths: make(map[string]int)}
}

func (l *lockSet) lock(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths[path]++
}

func (l *lockSet) unlock(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paths[path] <= 1 {
		delete(l.paths, path)
		return
	}
	l.paths[path]--
}

func (l *lockSet) locked(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.paths[path]
	return ok
}

type opKind int

const (
	opIndex opKind = iota
	opUpdate
	opDelete
)

func (k opKind) String() string {
	switch k {
	case opIndex:
		return "index"
	case opUpdate:
		return "update"
	case opDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// operation is one queued unit of registry work; path is absolute.
type operation struct {
	kind opKind
	path string
}

// EventCallback is invoked after a successfully applied operation.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind, noteID, path string)

// Manager owns the vault's file-system watcher and the serialized operation
// queue that turns raw events into registry mutations. Events for paths the
// note layer is itself writing are swallowed via the shared lock set.
type Manager struct {
	vault  *Vault
	logger *slog.Logger
	ext    string
	cb     EventCallback

	active atomic.Bool
	queue  chan operation

	consumerOnce sync.Once
	stopCh       chan struct{}
	stopped      chan struct{}
}

// NewManager creates the sync manager for a vault and attaches it. cb may be
// nil. The manager starts inactive; Start activates it.
func NewManager(v *Vault, logger *slog.Logger, cb EventCallback) *Manager {
	m := &Manager{
		vault:   v,
		logger:  logger,
		ext:     ".md",
		cb:      cb,
		queue:   make(chan operation, 1024),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	v.manager = m
	return m
}

// Activate enables reaction to watcher events.
func (m *Manager) Activate() { m.active.Store(true) }

// Deactivate suspends reaction to watcher events (used during bulk scans).
func (m *Manager) Deactivate() { m.active.Store(false) }

// Active reports whether watcher events are being processed.
func (m *Manager) Active() bool { return m.active.Load() }

// Tick is non-blocking and safe to call on a fixed interval: it ensures the
// queue consumer is running. The actual work is event-driven.
func (m *Manager) Tick() {
	m.consumerOnce.Do(func() {
		go m.consume()
	})
}

// Start watches the vault root recursively and processes events until ctx is
// cancelled. It blocks; run it on its own goroutine.
func (m *Manager) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("sync: watcher: %w", err)
	}
	defer w.Close()

	if err := addDirsRecursive(w, m.vault.Root()); err != nil {
		return fmt.Errorf("sync: watch root: %w", err)
	}

	m.Tick()
	m.Activate()
	m.logger.Info("sync: watcher started", slog.String("root", m.vault.Root()))

	for {
		select {
		case <-ctx.Done():
			close(m.stopCh)
			<-m.stopped
			m.logger.Info("sync: watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			m.handleEvent(w, ev)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Error("sync: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// handleEvent maps one raw watcher event onto queued operations.
func (m *Manager) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event) {
	if !m.active.Load() {
		return
	}

	absPath := ev.Name

	// New directories join the watch; notes already inside are indexed.
	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
			if addErr := addDirsRecursive(w, absPath); addErr != nil {
				m.logger.Warn("sync: add new dir failed",
					slog.String("path", absPath), slog.String("error", addErr.Error()))
			}
			m.enqueueDirContents(absPath)
			return
		}
	}

	if !strings.HasSuffix(absPath, m.ext) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		// Atomic writes surface as a rename-over, i.e. a Create, so the
		// self-write check applies here too.
		if m.vault.locks.locked(absPath) {
			m.logger.Debug("sync: suppressed self-write", slog.String("path", absPath))
			return
		}
		m.enqueue(operation{kind: opIndex, path: absPath})

	case ev.Op&fsnotify.Write != 0:
		if m.vault.locks.locked(absPath) {
			m.logger.Debug("sync: suppressed self-write", slog.String("path", absPath))
			return
		}
		m.enqueue(operation{kind: opUpdate, path: absPath})

	case ev.Op&fsnotify.Remove != 0:
		if m.vault.locks.locked(absPath) {
			return
		}
		m.enqueue(operation{kind: opDelete, path: absPath})

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports the old path only; the new path arrives as a
		// separate Create event on the same queue, after this delete.
		if m.vault.locks.locked(absPath) {
			return
		}
		m.enqueue(operation{kind: opDelete, path: absPath})
	}
}

// NotifyRename enqueues the delete-then-index pair for an API-driven rename
// where both paths are known. FIFO processing keeps the order safe.
func (m *Manager) NotifyRename(oldAbs, newAbs string) {
	m.enqueue(operation{kind: opDelete, path: oldAbs})
	m.enqueue(operation{kind: opIndex, path: newAbs})
}

func (m *Manager) enqueueDirContents(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, m.ext) {
			return nil
		}
		m.enqueue(operation{kind: opIndex, path: path})
		return nil
	})
}

func (m *Manager) enqueue(op operation) {
	select {
	case m.queue <- op:
	case <-m.stopCh:
	}
}

// consume drains operations strictly in enqueue order. Errors are logged and
// never stop the consumer.
func (m *Manager) consume() {
	defer close(m.stopped)
	for {
		select {
		case <-m.stopCh:
			return
		case op := <-m.queue:
			if err := m.apply(op); err != nil {
				m.logger.Warn("sync: operation failed",
					slog.String("op", op.kind.String()),
					slog.String("path", op.path),
					slog.String("error", err.Error()))
			}
		}
	}
}

func (m *Manager) apply(op operation) error {
	switch op.kind {
	case opIndex:
		if n, err := m.vault.GetNoteByPath(op.path); err == nil {
			// Already known (e.g. rename target of a loaded note): refresh.
			if err := n.Reload(""); err != nil {
				return err
			}
			m.vault.purgeSearch(n.id)
			m.vault.indexSearch(n)
			m.emit("updated", n.id, op.path)
			return nil
		}
		n, err := m.vault.AddNote(op.path)
		if err != nil {
			return err
		}
		m.emit("created", n.id, op.path)
		return nil

	case opUpdate:
		n, err := m.vault.GetNoteByPath(op.path)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				// Never seen this file; treat as an index.
				return m.apply(operation{kind: opIndex, path: op.path})
			}
			return err
		}
		if err := n.Reload(""); err != nil {
			return err
		}
		// External index update is delete-then-reindex, idempotent on its side.
		m.vault.purgeSearch(n.id)
		m.vault.indexSearch(n)
		m.emit("updated", n.id, op.path)
		return nil

	case opDelete:
		n, ok := m.vault.removeByPath(op.path)
		if !ok {
			return nil
		}
		m.vault.purgeSearch(n.id)
		m.emit("deleted", n.id, op.path)
		return nil

	default:
		return fmt.Errorf("sync: unknown operation %d", op.kind)
	}
}

func (m *Manager) emit(kind, noteID, path string) {
	m.logger.Debug("sync: applied", slog.String("kind", kind), slog.String("path", path))
	if m.cb != nil {
		m.cb(kind, noteID, path)
	}
}

// addDirsRecursive adds root and all of its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
