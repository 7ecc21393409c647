package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apigrid/catalogsync/internal/catalogsync/store"
	"github.com/apigrid/catalogsync/pkg/api"
)

func baseState() store.State {
	return store.State{
		Catalog: api.Catalog{ID: "cat-1", Name: "orders"},
		Endpoints: []api.Endpoint{
			{ID: "e1", Path: "/orders", Method: "GET"},
			{ID: "e2", Path: "/orders/{id}", Method: "GET"},
		},
		Connections: []api.Connection{
			{ID: "c1", Name: "upstream", BaseURL: "https://api.internal"},
		},
	}
}

func TestApplyUpdateReplacesExistingEndpoint(t *testing.T) {
	msg := api.SyncMessage{
		Type:         api.MessageTypeUpdate,
		ResourceType: api.ResourceTypeEndpoint,
		ResourceID:   "e1",
		Data: map[string]any{
			"id":     "e1",
			"path":   "/orders",
			"method": "POST",
		},
	}

	next := Apply(baseState(), msg)

	require.Len(t, next.Endpoints, 2)
	assert.Equal(t, "POST", next.Endpoints[0].Method)
	assert.Equal(t, "e1", next.Endpoints[0].ID, "replacement preserves list order")
}

func TestApplyUpdateIsImplicitCreate(t *testing.T) {
	msg := api.SyncMessage{
		Type:         api.MessageTypeUpdate,
		ResourceType: api.ResourceTypeEndpoint,
		ResourceID:   "e9",
		Data: map[string]any{
			"path":   "/refunds",
			"method": "POST",
		},
	}

	next := Apply(baseState(), msg)

	require.Len(t, next.Endpoints, 3)
	assert.Equal(t, "e9", next.Endpoints[2].ID, "envelope id fills an absent payload id")
	assert.Equal(t, "/refunds", next.Endpoints[2].Path)
}

func TestApplyUpdateClearsPendingEntry(t *testing.T) {
	st := baseState()
	st.PendingChanges = []string{"e1", "c1"}

	msg := api.SyncMessage{
		Type:         api.MessageTypeUpdate,
		ResourceType: api.ResourceTypeEndpoint,
		ResourceID:   "e1",
		Data:         map[string]any{"id": "e1", "path": "/orders", "method": "PUT"},
	}
	next := Apply(st, msg)

	assert.Equal(t, []string{"c1"}, next.PendingChanges, "remote outcome settles the pending change")
	assert.Equal(t, "PUT", next.Endpoints[0].Method, "remote value wins over the optimistic one")
	assert.Empty(t, next.Conflicts)
}

func TestApplyUpdateBadPayloadLeavesProjectionUntouched(t *testing.T) {
	st := baseState()
	msg := api.SyncMessage{
		Type:         api.MessageTypeUpdate,
		ResourceType: api.ResourceTypeEndpoint,
		ResourceID:   "e1",
		Data: map[string]any{
			"id":   "e1",
			"tags": "not-a-list",
		},
	}

	next := Apply(st, msg)

	assert.Equal(t, st.Endpoints, next.Endpoints)
	assert.Empty(t, next.Error, "a bad payload is dropped, not surfaced as a sync error")
}

func TestApplyDeleteRemovesResource(t *testing.T) {
	msg := api.SyncMessage{
		Type:         api.MessageTypeDelete,
		ResourceType: api.ResourceTypeConnection,
		ResourceID:   "c1",
	}

	next := Apply(baseState(), msg)

	assert.Empty(t, next.Connections)
}

func TestApplyDeleteIsIdempotent(t *testing.T) {
	msg := api.SyncMessage{
		Type:         api.MessageTypeDelete,
		ResourceType: api.ResourceTypeEndpoint,
		ResourceID:   "nope",
	}

	st := baseState()
	next := Apply(st, msg)

	assert.Equal(t, st.Endpoints, next.Endpoints)
	assert.Empty(t, next.Error)
}

func TestApplyPublishSwapsVersion(t *testing.T) {
	st := baseState()
	st.Catalog.CurrentVersion = &api.CatalogVersion{ID: "v1", VersionNumber: "1.0.0"}
	st.Catalog.CurrentVersionID = "v1"

	msg := api.SyncMessage{
		Type:         api.MessageTypePublish,
		ResourceType: api.ResourceTypeVersion,
		VersionID:    "v2",
		Data: map[string]any{
			"id":            "v2",
			"versionNumber": "1.1.0",
			"status":        "published",
			"endpoints": []any{
				map[string]any{"id": "e1", "path": "/orders", "method": "GET"},
			},
			"connections": []any{
				map[string]any{"id": "c2", "name": "billing", "baseUrl": "https://billing.internal"},
			},
		},
	}

	next := Apply(st, msg)

	require.NotNil(t, next.Catalog.CurrentVersion)
	assert.Equal(t, "v2", next.Catalog.CurrentVersion.ID)
	assert.Equal(t, "v2", next.Catalog.CurrentVersionID)
	require.Len(t, next.Endpoints, 1)
	assert.Equal(t, "e1", next.Endpoints[0].ID)
	require.Len(t, next.Connections, 1)
	assert.Equal(t, "c2", next.Connections[0].ID)
	require.Len(t, next.Versions, 1)
	assert.Equal(t, "v2", next.Versions[0].ID)
}

func TestApplyPublishWithCatalogPayload(t *testing.T) {
	msg := api.SyncMessage{
		Type:         api.MessageTypePublish,
		ResourceType: api.ResourceTypeVersion,
		Data: map[string]any{
			"id":               "cat-2",
			"name":             "orders-v2",
			"currentVersionId": "v5",
			"currentVersion": map[string]any{
				"id":            "v5",
				"versionNumber": "2.0.0",
				"endpoints": []any{
					map[string]any{"id": "e7", "path": "/invoices", "method": "GET"},
				},
			},
		},
	}

	next := Apply(baseState(), msg)

	assert.Equal(t, "cat-2", next.Catalog.ID)
	assert.Equal(t, "v5", next.Catalog.CurrentVersionID)
	require.Len(t, next.Endpoints, 1)
	assert.Equal(t, "e7", next.Endpoints[0].ID)
}

func TestApplyPublishCatalogWithoutVersionClearsProjections(t *testing.T) {
	msg := api.SyncMessage{
		Type:         api.MessageTypePublish,
		ResourceType: api.ResourceTypeVersion,
		Data: map[string]any{
			"id":               "cat-3",
			"name":             "retired",
			"currentVersionId": "",
		},
	}

	next := Apply(baseState(), msg)

	assert.Equal(t, "cat-3", next.Catalog.ID)
	assert.Empty(t, next.Endpoints, "projections mirror the current version, which is absent")
	assert.Empty(t, next.Connections)
}

func TestApplyPublishWithoutPayloadIsDropped(t *testing.T) {
	st := baseState()
	msg := api.SyncMessage{
		Type:         api.MessageTypePublish,
		ResourceType: api.ResourceTypeVersion,
		VersionID:    "v3",
	}

	next := Apply(st, msg)

	assert.Equal(t, st.Catalog, next.Catalog)
	assert.Equal(t, st.Endpoints, next.Endpoints)
}

func TestApplyPublishSupersedesStaleUpdate(t *testing.T) {
	// Delete arrives, then a stale update recreates the endpoint, then the
	// publish snapshot reconciles the projection. Arrival order, no
	// reordering.
	st := baseState()

	st = Apply(st, api.SyncMessage{
		Type:         api.MessageTypeDelete,
		ResourceType: api.ResourceTypeEndpoint,
		ResourceID:   "e1",
	})
	require.Len(t, st.Endpoints, 1)

	st = Apply(st, api.SyncMessage{
		Type:         api.MessageTypeUpdate,
		ResourceType: api.ResourceTypeEndpoint,
		ResourceID:   "e1",
		Data:         map[string]any{"id": "e1", "path": "/orders", "method": "GET"},
	})
	require.Len(t, st.Endpoints, 2, "stale update recreates the endpoint")

	st = Apply(st, api.SyncMessage{
		Type:         api.MessageTypePublish,
		ResourceType: api.ResourceTypeVersion,
		VersionID:    "v2",
		Data: map[string]any{
			"id":            "v2",
			"versionNumber": "1.1.0",
			"endpoints": []any{
				map[string]any{"id": "e2", "path": "/orders/{id}", "method": "GET"},
			},
		},
	})

	require.Len(t, st.Endpoints, 1, "publish snapshot reconciles the drift")
	assert.Equal(t, "e2", st.Endpoints[0].ID)
}

func TestApplyConflictPreservesLocalValue(t *testing.T) {
	st := baseState()
	st.PendingChanges = []string{"e1"}

	msg := api.SyncMessage{
		Type:         api.MessageTypeConflict,
		ResourceType: api.ResourceTypeEndpoint,
		ResourceID:   "e1",
		Data:         map[string]any{"id": "e1", "method": "DELETE"},
		Metadata:     map[string]any{"message": "endpoint e1 was modified concurrently"},
	}

	next := Apply(st, msg)

	assert.Equal(t, st.Endpoints, next.Endpoints, "projection keeps the local optimistic value")
	assert.Empty(t, next.PendingChanges)
	require.Len(t, next.Conflicts, 1)

	entry := next.Conflicts[0]
	assert.Equal(t, "e1", entry.ResourceID)
	assert.True(t, entry.WasPending)
	assert.Equal(t, "endpoint e1 was modified concurrently", entry.Message)
	assert.Equal(t, msg.Data, entry.RemoteValue)
	local, ok := entry.LocalValue.(api.Endpoint)
	require.True(t, ok)
	assert.Equal(t, "e1", local.ID)
	assert.Equal(t, "endpoint e1 was modified concurrently", next.Error)
}

func TestApplyConflictWithoutPendingChangeIsStillRecorded(t *testing.T) {
	msg := api.SyncMessage{
		Type:         api.MessageTypeConflict,
		ResourceType: api.ResourceTypeConnection,
		ResourceID:   "c1",
	}

	next := Apply(baseState(), msg)

	require.Len(t, next.Conflicts, 1)
	assert.False(t, next.Conflicts[0].WasPending)
	assert.Equal(t, ErrConflictReported.Error(), next.Conflicts[0].Message)
}

func TestApplyStampsSyncTimeFromMessage(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	msg := api.SyncMessage{
		Type:         api.MessageTypeDelete,
		ResourceType: api.ResourceTypeEndpoint,
		ResourceID:   "e1",
		Timestamp:    ts,
	}

	next := Apply(baseState(), msg)

	assert.Equal(t, ts, next.LastSyncedAt)
}

func TestApplyStampsSyncTimeWhenMessageHasNone(t *testing.T) {
	before := time.Now().UTC()
	next := Apply(baseState(), api.SyncMessage{
		Type:         api.MessageTypeDelete,
		ResourceType: api.ResourceTypeEndpoint,
		ResourceID:   "e1",
	})
	assert.False(t, next.LastSyncedAt.Before(before))
}
