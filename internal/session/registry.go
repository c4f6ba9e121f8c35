package session

import (
	"context"
	"sync"
	"time"

	"github.com/atinyakov/JobBoard/internal/client/storage"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// StoreFactory returns the durable store of one visitor.
type StoreFactory func(visitorID string) storage.Store

// Toucher is implemented by stores that track visitor activity. The
// registry touches the store on use, at most once per idle period.
type Toucher interface {
	Touch() error
}

type entry struct {
	mgr      *Manager
	store    storage.Store
	lastUsed time.Time
	touched  time.Time
}

// Registry keeps one Manager per visitor for the web gateway. Managers are
// built on first use and rehydrated from the visitor's store, so dropping an
// idle one loses nothing.
type Registry struct {
	auth     Authenticator
	newStore StoreFactory
	idle     time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates a Registry. Managers unused for longer than idle are
// removed by Sweep.
func NewRegistry(auth Authenticator, newStore StoreFactory, idle time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		auth:     auth,
		newStore: newStore,
		idle:     idle,
		log:      log,
		now:      time.Now,
		entries:  map[string]*entry{},
	}
}

// Get returns the Manager of visitorID, creating it if needed. Stores that
// implement Toucher are touched so an active visitor's saved session is
// not treated as idle.
func (r *Registry) Get(visitorID string) (*Manager, error) {
	if visitorID == "" {
		return nil, errors.New("empty visitor id")
	}

	r.mu.Lock()
	e, ok := r.entries[visitorID]
	if !ok {
		store := r.newStore(visitorID)
		mgr, err := New(r.auth, store, r.log.With(zap.String("visitor", visitorID)))
		if err != nil {
			r.mu.Unlock()
			return nil, errors.Wrapf(err, "restore session of visitor %s", visitorID)
		}
		e = &entry{mgr: mgr, store: store}
		r.entries[visitorID] = e
	}
	now := r.now()
	e.lastUsed = now
	var toucher Toucher
	if t, ok := e.store.(Toucher); ok && (e.touched.IsZero() || now.Sub(e.touched) >= r.idle) {
		toucher = t
		e.touched = now
	}
	r.mu.Unlock()

	if toucher != nil {
		if err := toucher.Touch(); err != nil {
			r.log.Warn("failed to record visitor activity", zap.String("visitor", visitorID), zap.Error(err))
		}
	}
	return e.mgr, nil
}

// Len returns the number of live managers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops managers idle for longer than the configured duration and
// returns how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	removed := 0
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					r.log.Debug("dropped idle sessions", zap.Int("removed", n))
				}
			}
		}
	}()
}
