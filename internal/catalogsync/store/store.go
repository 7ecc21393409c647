// Package store implements the authoritative in-memory state container for
// the catalog sync engine. All mutation goes through named operations on
// Store; subscribers receive state copies after each commit. The store is
// the single owner of catalog state; collaborators read, they do not hold
// drifting private copies.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/apigrid/catalogsync/internal/common/apperrors"
	"github.com/apigrid/catalogsync/pkg/api"
)

// Fetcher retrieves the full catalog from the server of record. Used by the
// bulk refresh path; cancellation is delegated to the context.
type Fetcher interface {
	FetchCatalog(ctx context.Context) (api.Catalog, error)
}

// Adapter persists a durable snapshot of store state across restarts.
// Load is called exactly once at startup; Save after every state-changing
// operation. Persistence failures degrade to "next restart starts from
// defaults" and must not be fatal.
type Adapter interface {
	Load() (Snapshot, bool, error)
	Save(Snapshot) error
}

// Options configures a Store instance. Both collaborators are optional:
// without a Fetcher the refresh path reports ErrNoFetcher, without an
// Adapter state is in-memory only.
type Options struct {
	Fetcher     Fetcher
	Persistence Adapter
}

// subscriber is one registered state listener with a buffered channel.
type subscriber struct {
	ch     chan State
	mu     sync.Mutex
	closed bool
}

// safeSend delivers a state copy without blocking. Slow subscribers miss
// intermediate states, never the channel's eventual latest commit.
func (s *subscriber) safeSend(state State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- state:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Store is the mutable holder around State. Operations are atomic with
// respect to each other; mutation ordering is call order.
type Store struct {
	mu       sync.RWMutex
	commitMu sync.Mutex
	state    State
	fetcher  Fetcher
	persist  Adapter
	subs     map[string]*subscriber
}

// New constructs a store seeded from the persistence adapter when one is
// configured and a snapshot exists. A load failure is logged and the store
// starts from the built-in default catalog.
func New(opts Options) *Store {
	s := &Store{
		state:   defaultState(),
		fetcher: opts.Fetcher,
		persist: opts.Persistence,
		subs:    make(map[string]*subscriber),
	}
	if s.persist == nil {
		return s
	}
	snap, ok, err := s.persist.Load()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load snapshot, starting from defaults")
		return s
	}
	if !ok {
		return s
	}
	s.state.Catalog = snap.Catalog
	s.state.Endpoints = snap.Endpoints
	s.state.Connections = snap.Connections
	s.state.LastSyncedAt = snap.LastSyncedAt
	s.state.PendingChanges = snap.PendingChanges
	return s
}

// Subscribe registers a state listener. The returned channel receives a
// state copy after each commit; the function unsubscribes and closes the
// channel.
func (s *Store) Subscribe(buffer int) (<-chan State, func()) {
	id := uuid.NewString()
	sub := &subscriber{ch: make(chan State, buffer)}

	s.mu.Lock()
	s.subs[id] = sub
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		if reg, ok := s.subs[id]; ok {
			reg.close()
			delete(s.subs, id)
		}
		s.mu.Unlock()
	}
	return sub.ch, unsubscribe
}

// Update applies a transition function to a copy of the current state and
// commits the result. This is the entry point the message router uses; the
// named operations below are built on it.
//
// Notification and persistence run outside the state lock but in commit
// order: commitMu is acquired before the state lock is released, so a later
// commit's snapshot can never overtake an earlier one on the way to the
// adapter, and subscribers observe states in the order they were committed.
func (s *Store) Update(transition func(State) State) {
	s.mu.Lock()
	next := transition(s.state.clone())
	if next.Catalog.CurrentVersion != nil {
		next.Catalog.CurrentVersionID = next.Catalog.CurrentVersion.ID
	}
	s.state = next
	subs := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	snap := next.Snapshot()
	s.commitMu.Lock()
	s.mu.Unlock()
	defer s.commitMu.Unlock()

	for _, sub := range subs {
		sub.safeSend(next)
	}
	s.save(snap)
}

// save writes the snapshot through the persistence adapter. Failures are
// logged and swallowed; the in-memory engine keeps operating.
func (s *Store) save(snap Snapshot) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(snap); err != nil {
		log.Warn().Err(err).Msg("failed to persist snapshot")
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// SyncState returns the derived sync health view.
func (s *Store) SyncState() SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SyncState()
}

// SetCatalog replaces the catalog wholesale and stamps the sync time.
// Used after a full refresh, not by incremental sync.
func (s *Store) SetCatalog(c api.Catalog) {
	s.Update(func(st State) State {
		st.Catalog = c
		st.LastSyncedAt = time.Now().UTC()
		return st
	})
}

// SetEndpoints replaces the endpoint projection wholesale.
func (s *Store) SetEndpoints(list []api.Endpoint) {
	s.Update(func(st State) State {
		st.Endpoints = list
		return st
	})
}

// SetConnections replaces the connection projection wholesale.
func (s *Store) SetConnections(list []api.Connection) {
	s.Update(func(st State) State {
		st.Connections = list
		return st
	})
}

// SetVersions replaces the known versions list wholesale. Versions are not
// part of the persisted snapshot.
func (s *Store) SetVersions(list []api.CatalogVersion) {
	s.Update(func(st State) State {
		st.Versions = list
		return st
	})
}

// AddPendingChange appends id to the pending ledger. Appending an id that
// is already present is a no-op.
func (s *Store) AddPendingChange(id string) {
	s.Update(func(st State) State {
		st.PendingChanges = AppendPending(st.PendingChanges, id)
		return st
	})
}

// ClearPendingChanges empties the pending ledger. Used after a full resync
// establishes a new baseline.
func (s *Store) ClearPendingChanges() {
	s.Update(func(st State) State {
		st.PendingChanges = nil
		return st
	})
}

// UpdateSyncState overwrites the sync metadata. Called by the router after
// each applied message. IsOutOfDate is derived and ignored on write.
func (s *Store) UpdateSyncState(sync SyncState) {
	s.Update(func(st State) State {
		st.LastSyncedAt = sync.LastSyncedAt
		st.PendingChanges = sync.PendingChanges
		st.Conflicts = sync.Conflicts
		return st
	})
}

// SetConnected records the transport state. Connection state is transient
// and excluded from the snapshot.
func (s *Store) SetConnected(connected bool) {
	s.Update(func(st State) State {
		st.IsConnected = connected
		return st
	})
}

// SetSyncError records an error string for subscribers to render. An empty
// string clears the error.
func (s *Store) SetSyncError(msg string) {
	s.Update(func(st State) State {
		st.Error = msg
		return st
	})
}

// ResetToDefaults restores the built-in empty catalog and clears all
// derived state. Used for logout or hard error recovery.
func (s *Store) ResetToDefaults() {
	s.Update(func(State) State {
		return defaultState()
	})
}

// UpsertLocalEndpoint optimistically reflects a locally-issued endpoint
// write and registers it in the pending ledger in one atomic operation.
// Callers invoke this after the catalog API accepted the write.
func (s *Store) UpsertLocalEndpoint(ep api.Endpoint) {
	s.Update(func(st State) State {
		st.Endpoints = UpsertEndpoint(st.Endpoints, ep)
		st.PendingChanges = AppendPending(st.PendingChanges, ep.ID)
		return st
	})
}

// DeleteLocalEndpoint optimistically removes an endpoint and registers the
// deletion in the pending ledger.
func (s *Store) DeleteLocalEndpoint(id string) {
	s.Update(func(st State) State {
		st.Endpoints = RemoveEndpoint(st.Endpoints, id)
		st.PendingChanges = AppendPending(st.PendingChanges, id)
		return st
	})
}

// UpsertLocalConnection optimistically reflects a locally-issued connection
// write and registers it in the pending ledger.
func (s *Store) UpsertLocalConnection(cn api.Connection) {
	s.Update(func(st State) State {
		st.Connections = UpsertConnection(st.Connections, cn)
		st.PendingChanges = AppendPending(st.PendingChanges, cn.ID)
		return st
	})
}

// DeleteLocalConnection optimistically removes a connection and registers
// the deletion in the pending ledger.
func (s *Store) DeleteLocalConnection(id string) {
	s.Update(func(st State) State {
		st.Connections = RemoveConnection(st.Connections, id)
		st.PendingChanges = AppendPending(st.PendingChanges, id)
		return st
	})
}

// RefreshFromServer fetches the full catalog and atomically replaces the
// catalog, reseeds the projections from the current version, stamps the
// sync time, and clears any stale error. On failure the state is unchanged
// except for the recorded error string; no partial replacement happens.
func (s *Store) RefreshFromServer(ctx context.Context) apperrors.Error {
	if s.fetcher == nil {
		return ErrNoFetcher
	}

	s.Update(func(st State) State {
		st.IsSyncing = true
		return st
	})

	catalog, err := s.fetcher.FetchCatalog(ctx)
	if err != nil {
		refreshErr := ErrRefreshFailed.Err(err)
		s.Update(func(st State) State {
			st.IsSyncing = false
			st.Error = refreshErr.ErrorAll()
			return st
		})
		return refreshErr
	}

	s.Update(func(st State) State {
		st.Catalog = catalog
		if v := catalog.CurrentVersion; v != nil {
			st.Endpoints = append([]api.Endpoint(nil), v.Endpoints...)
			st.Connections = append([]api.Connection(nil), v.Connections...)
			st.Versions = UpsertVersion(st.Versions, *v)
		} else {
			st.Endpoints = nil
			st.Connections = nil
		}
		st.LastSyncedAt = time.Now().UTC()
		st.IsSyncing = false
		st.Error = ""
		return st
	})
	return nil
}
