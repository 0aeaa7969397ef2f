package callcontext

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Manager coordinates the durable store and the cache with write-through
// semantics: every mutation hits the store first, then refreshes the cache.
// A per-call lock serializes mutations so turn order is never interleaved.
type Manager struct {
	store *Store
	cache Cache

	mu    sync.Mutex
	locks map[string]*callLock
}

// callLock is a refcounted registry entry. The count tracks callers holding
// or waiting on the lock, so an entry is only removed once no goroutine can
// still reference it; a waiter never ends up on an orphaned mutex.
type callLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(store *Store, cache Cache) *Manager {
	return &Manager{
		store: store,
		cache: cache,
		locks: make(map[string]*callLock),
	}
}

func (m *Manager) lock(callID string) func() {
	m.mu.Lock()
	l, ok := m.locks[callID]
	if !ok {
		l = &callLock{}
		m.locks[callID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, callID)
		}
		m.mu.Unlock()
	}
}

// Create registers a new call. A duplicate create for a live call returns
// ErrAlreadyExists unless reuse is set, in which case the existing context is
// returned untouched so repeated call-started events never reset history.
func (m *Manager) Create(ctx context.Context, callID, userID, customerNumber string, reuse bool) (*CallContext, error) {
	unlock := m.lock(callID)
	defer unlock()

	existing, err := m.get(ctx, callID)
	if err == nil {
		if reuse {
			return existing, nil
		}
		return nil, ErrAlreadyExists
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	cc := &CallContext{
		CallID:         callID,
		UserID:         userID,
		CustomerNumber: customerNumber,
		State:          StateAwaitingFirstTurn,
		Status:         StatusActive,
		History:        []Turn{},
		StartedAt:      time.Now().UTC(),
	}
	if err := m.store.Create(ctx, cc); err != nil {
		return nil, err
	}
	m.cachePut(ctx, cc)
	return cc.Clone(), nil
}

// Get returns the context for a call, repopulating the cache on a miss.
func (m *Manager) Get(ctx context.Context, callID string) (*CallContext, error) {
	unlock := m.lock(callID)
	defer unlock()
	return m.get(ctx, callID)
}

func (m *Manager) get(ctx context.Context, callID string) (*CallContext, error) {
	cc, err := m.cache.Get(ctx, callID)
	if err == nil {
		return cc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Printf("call cache read failed for %s: %v", callID, err)
	}

	cc, err = m.store.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	m.cachePut(ctx, cc)
	return cc, nil
}

// Mutate loads the context, applies fn under the call's lock, and writes the
// result through store and cache. fn sees a private copy; returning an error
// abandons the mutation.
func (m *Manager) Mutate(ctx context.Context, callID string, fn func(*CallContext) error) (*CallContext, error) {
	unlock := m.lock(callID)
	defer unlock()

	cc, err := m.get(ctx, callID)
	if err != nil {
		return nil, err
	}

	if err := fn(cc); err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, cc); err != nil {
		return nil, err
	}
	m.cachePut(ctx, cc)
	return cc.Clone(), nil
}

// AppendTurn records one utterance. Appending to an ended call is an error.
func (m *Manager) AppendTurn(ctx context.Context, callID string, turn Turn) (*CallContext, error) {
	return m.Mutate(ctx, callID, func(cc *CallContext) error {
		if cc.State == StateEnded {
			return ErrCallEnded
		}
		if turn.At.IsZero() {
			turn.At = time.Now().UTC()
		}
		cc.History = append(cc.History, turn)
		return nil
	})
}

// MergeDerived applies a partial update to the call's derived state.
func (m *Manager) MergeDerived(ctx context.Context, callID string, patch DerivedPatch) (*CallContext, error) {
	return m.Mutate(ctx, callID, func(cc *CallContext) error {
		if cc.State == StateEnded {
			return ErrCallEnded
		}
		cc.Derived.apply(patch)
		return nil
	})
}

// Transition moves the call to the given state. Leaving the terminal state is
// rejected; a repeated transition to the current state is absorbed.
func (m *Manager) Transition(ctx context.Context, callID string, to State) (*CallContext, error) {
	return m.Mutate(ctx, callID, func(cc *CallContext) error {
		if cc.State == to {
			return nil
		}
		if cc.State == StateEnded {
			return ErrCallEnded
		}
		cc.State = to
		return nil
	})
}

// Complete marks the call finished, persists it, and evicts it from the
// cache. Completing an already completed call is a no-op; the returned flag
// reports whether this invocation performed the transition, so callers can
// run end-of-call side effects exactly once under retried callbacks.
func (m *Manager) Complete(ctx context.Context, callID string) (*CallContext, bool, error) {
	unlock := m.lock(callID)
	defer unlock()

	cc, err := m.get(ctx, callID)
	if err != nil {
		return nil, false, err
	}

	ended := false
	if cc.Status != StatusCompleted {
		now := time.Now().UTC()
		cc.State = StateEnded
		cc.Status = StatusCompleted
		cc.CompletedAt = &now
		if err := m.store.Save(ctx, cc); err != nil {
			return nil, false, err
		}
		ended = true
	}

	if err := m.cache.Delete(ctx, callID); err != nil {
		log.Printf("evicting completed call %s from cache: %v", callID, err)
	}
	return cc.Clone(), ended, nil
}

// ListByUser exposes the durable call log for read APIs.
func (m *Manager) ListByUser(ctx context.Context, userID string, limit int) ([]*CallContext, error) {
	return m.store.ListByUser(ctx, userID, limit)
}

func (m *Manager) cachePut(ctx context.Context, cc *CallContext) {
	if err := m.cache.Put(ctx, cc); err != nil {
		log.Printf("call cache write failed for %s: %v", cc.CallID, err)
		if derr := m.cache.Delete(ctx, cc.CallID); derr != nil {
			log.Printf("call cache invalidation failed for %s: %v", cc.CallID, derr)
		}
	}
}
