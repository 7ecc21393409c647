package store

import (
	"time"

	"github.com/apigrid/catalogsync/pkg/api"
)

// State is the full engine state at a point in time. Mutation happens only
// through Store operations; collaborators receive copies and never hold a
// mutable reference. Endpoints and Connections are flattened projections of
// the current catalog version and stay consistent with the last applied
// sync message or snapshot load.
type State struct {
	Catalog     api.Catalog
	Endpoints   []api.Endpoint
	Connections []api.Connection
	Versions    []api.CatalogVersion

	LastSyncedAt   time.Time
	PendingChanges []string
	Conflicts      []ConflictEntry

	IsConnected bool
	IsSyncing   bool
	Error       string
}

// ConflictEntry records a server-reported divergence between a pending local
// change and the authoritative state. Both sides are preserved for manual
// reconciliation; the engine never merges.
type ConflictEntry struct {
	ResourceType api.ResourceType `json:"resourceType"`
	ResourceID   string           `json:"resourceId"`
	VersionID    string           `json:"versionId,omitempty"`
	Message      string           `json:"message"`
	LocalValue   any              `json:"localValue,omitempty"`
	RemoteValue  map[string]any   `json:"remoteValue,omitempty"`
	OccurredAt   time.Time        `json:"occurredAt"`
	WasPending   bool             `json:"wasPending"`
}

// SyncState is the point-in-time health of the sync channel, recomputed
// after every applied message or connection-state change.
type SyncState struct {
	LastSyncedAt   time.Time       `json:"lastSyncedAt"`
	IsOutOfDate    bool            `json:"isOutOfDate"`
	PendingChanges []string        `json:"pendingChanges"`
	Conflicts      []ConflictEntry `json:"conflicts"`
}

// Snapshot is the durable subset of the state. Transient and derived fields
// (connection flags, error string, versions list) are excluded.
type Snapshot struct {
	Catalog        api.Catalog      `json:"catalog"`
	Endpoints      []api.Endpoint   `json:"endpoints"`
	Connections    []api.Connection `json:"connections"`
	LastSyncedAt   time.Time        `json:"lastSyncedAt"`
	PendingChanges []string         `json:"pendingChanges"`
}

// OutOfDate reports whether the local mirror should be treated as
// potentially stale: the channel is down, or the last refresh or sync
// activity recorded an error. A reconnect gap is always a potential gap.
func (s State) OutOfDate() bool {
	return !s.IsConnected || s.Error != ""
}

// SyncState derives the sync health view from the state.
func (s State) SyncState() SyncState {
	return SyncState{
		LastSyncedAt:   s.LastSyncedAt,
		IsOutOfDate:    s.OutOfDate(),
		PendingChanges: append([]string(nil), s.PendingChanges...),
		Conflicts:      append([]ConflictEntry(nil), s.Conflicts...),
	}
}

// Snapshot extracts the durable subset of the state.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Catalog:        s.Catalog,
		Endpoints:      append([]api.Endpoint(nil), s.Endpoints...),
		Connections:    append([]api.Connection(nil), s.Connections...),
		LastSyncedAt:   s.LastSyncedAt,
		PendingChanges: append([]string(nil), s.PendingChanges...),
	}
}

// HasPendingChange reports whether id is in the pending ledger.
func (s State) HasPendingChange(id string) bool {
	for _, p := range s.PendingChanges {
		if p == id {
			return true
		}
	}
	return false
}

// clone returns a copy of the state with all slices copied, so a transition
// function can rework the copy without aliasing the committed state.
// Version payloads are immutable once received, so pointers inside them are
// shared deliberately.
func (s State) clone() State {
	cp := s
	cp.Endpoints = append([]api.Endpoint(nil), s.Endpoints...)
	cp.Connections = append([]api.Connection(nil), s.Connections...)
	cp.Versions = append([]api.CatalogVersion(nil), s.Versions...)
	cp.PendingChanges = append([]string(nil), s.PendingChanges...)
	cp.Conflicts = append([]ConflictEntry(nil), s.Conflicts...)
	return cp
}

// DefaultCatalog returns the built-in empty catalog active before any
// snapshot load or server contact.
func DefaultCatalog() api.Catalog {
	return api.Catalog{
		ID:   "default",
		Name: "default",
	}
}

// defaultState is the engine state at first start: default catalog, empty
// projections, disconnected.
func defaultState() State {
	return State{Catalog: DefaultCatalog()}
}
