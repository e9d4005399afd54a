package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// AccountRegistry tracks live sessions keyed by account id and collapses
// concurrent opens for the same account into a single engine dial.
type AccountRegistry struct {
	mu       sync.Mutex
	sessions map[string]*AccountSession
	inflight map[string]*inflightOpen
}

type inflightOpen struct {
	done    chan struct{}
	session *AccountSession
	err     error
}

func NewAccountRegistry() *AccountRegistry {
	return &AccountRegistry{
		sessions: make(map[string]*AccountSession),
		inflight: make(map[string]*inflightOpen),
	}
}

// CreateOrGet returns the live session for accountID, invoking open to
// build one when none exists. Concurrent callers for the same account
// share a single open call; losers block until the leader resolves and
// then observe the same session or error. The created flag is true only
// for the caller whose open actually ran.
func (r *AccountRegistry) CreateOrGet(
	ctx context.Context,
	accountID string,
	open func(ctx context.Context) (*AccountSession, error),
) (*AccountSession, bool, error) {
	if r == nil {
		return nil, false, fmt.Errorf("core: account registry is nil")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, false, fmt.Errorf("core: account id is required")
	}
	if open == nil {
		return nil, false, fmt.Errorf("core: session opener is required")
	}

	r.mu.Lock()
	if session, ok := r.sessions[accountID]; ok {
		r.mu.Unlock()
		return session, false, nil
	}
	if flight, ok := r.inflight[accountID]; ok {
		r.mu.Unlock()
		select {
		case <-flight.done:
			return flight.session, false, flight.err
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	flight := &inflightOpen{done: make(chan struct{})}
	r.inflight[accountID] = flight
	r.mu.Unlock()

	session, err := open(ctx)

	r.mu.Lock()
	delete(r.inflight, accountID)
	if err == nil && session != nil {
		r.sessions[accountID] = session
	}
	flight.session = session
	flight.err = err
	close(flight.done)
	r.mu.Unlock()

	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

func (r *AccountRegistry) Get(accountID string) (*AccountSession, bool) {
	if r == nil {
		return nil, false
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, false
	}
	r.mu.Lock()
	session, ok := r.sessions[accountID]
	r.mu.Unlock()
	return session, ok
}

// List returns the live sessions ordered by account id.
func (r *AccountRegistry) List() []*AccountSession {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	keys := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		keys = append(keys, id)
	}
	sessions := make(map[string]*AccountSession, len(r.sessions))
	for id, session := range r.sessions {
		sessions[id] = session
	}
	r.mu.Unlock()

	sort.Strings(keys)
	out := make([]*AccountSession, 0, len(keys))
	for _, id := range keys {
		out = append(out, sessions[id])
	}
	return out
}

// Remove detaches the session from the registry. The caller owns whatever
// teardown the detached session still needs.
func (r *AccountRegistry) Remove(accountID string) (*AccountSession, bool) {
	if r == nil {
		return nil, false
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, false
	}
	r.mu.Lock()
	session, ok := r.sessions[accountID]
	if ok {
		delete(r.sessions, accountID)
	}
	r.mu.Unlock()
	return session, ok
}

func (r *AccountRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
