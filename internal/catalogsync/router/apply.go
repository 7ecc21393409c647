package router

import (
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"

	"github.com/apigrid/catalogsync/internal/catalogsync/store"
	"github.com/apigrid/catalogsync/pkg/api"
)

// Apply is the message-application state machine: a dispatch over the
// message type, computing the next state from the current one. It never
// fails; a payload that cannot be interpreted leaves the state unchanged
// apart from the logged anomaly.
//
// Ordering policy: messages are applied in arrival order with no
// reordering. An update for a resource the projection does not know yet is
// an implicit create, so the freshest known state stays available even when
// the seeding publish was missed; a later publish snapshot reconciles any
// drift.
//
// Tie-break for concurrent local and remote edits of one resource: remote
// wins. An update or delete for a resource with a pending local change
// overwrites the optimistic value and clears the ledger entry. Only an
// explicit conflict message retains the local value, so unsaved intent is
// not lost.
func Apply(st store.State, msg api.SyncMessage) store.State {
	switch msg.Type {
	case api.MessageTypeUpdate:
		st = applyUpdate(st, msg)
	case api.MessageTypeDelete:
		st = applyDelete(st, msg)
	case api.MessageTypePublish:
		st = applyPublish(st, msg)
	case api.MessageTypeConflict:
		st = applyConflict(st, msg)
	default:
		// DecodeMessage guards the closed set; nothing to do here.
		return st
	}
	st.LastSyncedAt = messageTime(msg)
	return st
}

// messageTime prefers the server's emission timestamp so replayed message
// sequences are deterministic.
func messageTime(msg api.SyncMessage) time.Time {
	if !msg.Timestamp.IsZero() {
		return msg.Timestamp
	}
	return time.Now().UTC()
}

// applyUpdate upserts the resource into the relevant projection, replacing
// in place to preserve list order. The pending ledger entry for the
// resource, if any, is cleared: the remote message is the authoritative
// outcome of the local mutation.
func applyUpdate(st store.State, msg api.SyncMessage) store.State {
	switch msg.ResourceType {
	case api.ResourceTypeEndpoint:
		ep, err := decodeEndpoint(msg)
		if err != nil {
			log.Warn().Str("resource_id", msg.ResourceID).Err(err).Msg("dropping update with bad endpoint payload")
			return st
		}
		st.Endpoints = store.UpsertEndpoint(st.Endpoints, ep)
	case api.ResourceTypeConnection:
		cn, err := decodeConnection(msg)
		if err != nil {
			log.Warn().Str("resource_id", msg.ResourceID).Err(err).Msg("dropping update with bad connection payload")
			return st
		}
		st.Connections = store.UpsertConnection(st.Connections, cn)
	case api.ResourceTypeVersion:
		v, err := decodeVersion(msg)
		if err != nil {
			log.Warn().Str("resource_id", msg.ResourceID).Err(err).Msg("dropping update with bad version payload")
			return st
		}
		st.Versions = store.UpsertVersion(st.Versions, v)
	}
	st.PendingChanges = store.RemovePending(st.PendingChanges, msg.ResourceID)
	return st
}

// applyDelete removes the resource from the relevant projection. Deleting
// an absent resource is a no-op, not an error.
func applyDelete(st store.State, msg api.SyncMessage) store.State {
	switch msg.ResourceType {
	case api.ResourceTypeEndpoint:
		st.Endpoints = store.RemoveEndpoint(st.Endpoints, msg.ResourceID)
	case api.ResourceTypeConnection:
		st.Connections = store.RemoveConnection(st.Connections, msg.ResourceID)
	case api.ResourceTypeVersion:
		st.Versions = store.RemoveVersion(st.Versions, msg.ResourceID)
	}
	st.PendingChanges = store.RemovePending(st.PendingChanges, msg.ResourceID)
	return st
}

// applyPublish atomically swaps the current version. The payload is a whole
// catalog or a whole version; it already reflects any update or delete for
// the same version that has not been applied yet, so nothing else needs to
// be replayed.
func applyPublish(st store.State, msg api.SyncMessage) store.State {
	if msg.Data == nil {
		log.Warn().Str("version_id", msg.VersionID).Msg("dropping publish without payload")
		return st
	}
	catalog, version, err := decodePublishPayload(msg)
	if err != nil {
		log.Warn().Str("version_id", msg.VersionID).Err(err).Msg("dropping publish with bad payload")
		return st
	}

	if catalog != nil {
		st.Catalog = *catalog
		version = catalog.CurrentVersion
		if version == nil {
			// No current version means no published surface; the
			// projections mirror the current version and empty with it.
			st.Endpoints = nil
			st.Connections = nil
		}
	}
	if version != nil {
		warnOnDowngrade(st.Catalog.CurrentVersion, version)
		v := *version
		st.Catalog.CurrentVersion = &v
		st.Catalog.CurrentVersionID = v.ID
		st.Endpoints = append([]api.Endpoint(nil), v.Endpoints...)
		st.Connections = append([]api.Connection(nil), v.Connections...)
		st.Versions = store.UpsertVersion(st.Versions, v)
	}
	st.Catalog.UpdatedAt = messageTime(msg)
	return st
}

// warnOnDowngrade logs when a publish moves the catalog to a lower version
// number. The swap still happens; the server is authoritative.
func warnOnDowngrade(current *api.CatalogVersion, next *api.CatalogVersion) {
	if current == nil {
		return
	}
	cur, err := semver.NewVersion(current.VersionNumber)
	if err != nil {
		return
	}
	nxt, err := semver.NewVersion(next.VersionNumber)
	if err != nil {
		return
	}
	if nxt.LessThan(cur) {
		log.Warn().
			Str("current_version", current.VersionNumber).
			Str("published_version", next.VersionNumber).
			Msg("publish moves catalog to a lower version")
	}
}

// applyConflict records a structured conflict entry and moves the resource
// from the pending ledger into the conflicts list. The projection itself is
// untouched: the local optimistic value is retained until the caller
// resolves it. A conflict is never silently dropped, pending or not.
func applyConflict(st store.State, msg api.SyncMessage) store.State {
	message := msg.ConflictMessage()
	if message == "" {
		message = ErrConflictReported.Error()
	}

	entry := store.ConflictEntry{
		ResourceType: msg.ResourceType,
		ResourceID:   msg.ResourceID,
		VersionID:    msg.VersionID,
		Message:      message,
		RemoteValue:  msg.Data,
		OccurredAt:   messageTime(msg),
		WasPending:   st.HasPendingChange(msg.ResourceID),
	}
	switch msg.ResourceType {
	case api.ResourceTypeEndpoint:
		if ep, ok := store.FindEndpoint(st.Endpoints, msg.ResourceID); ok {
			entry.LocalValue = ep
		}
	case api.ResourceTypeConnection:
		if cn, ok := store.FindConnection(st.Connections, msg.ResourceID); ok {
			entry.LocalValue = cn
		}
	}

	st.PendingChanges = store.RemovePending(st.PendingChanges, msg.ResourceID)
	st.Conflicts = append(st.Conflicts, entry)
	st.Error = message
	return st
}
