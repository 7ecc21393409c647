package router

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apigrid/catalogsync/pkg/api"
)

func TestDecodeMessage(t *testing.T) {
	frame := []byte(`{
		"type": "update",
		"resourceType": "endpoint",
		"resourceId": "e1",
		"timestamp": "2026-03-14T09:26:53Z",
		"data": {"id": "e1", "path": "/orders", "method": "GET"}
	}`)

	msg, err := DecodeMessage(frame)
	require.Nil(t, err)

	assert.Equal(t, api.MessageTypeUpdate, msg.Type)
	assert.Equal(t, api.ResourceTypeEndpoint, msg.ResourceType)
	assert.Equal(t, "e1", msg.ResourceID)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC), msg.Timestamp)
	assert.Equal(t, "/orders", msg.Data["path"])
}

func TestDecodeMessageMalformedFrame(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type": "update",`))
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrMalformedFrame))
}

func TestDecodeMessageUnknownType(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type": "patch", "resourceType": "endpoint"}`))
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrUnknownMessageType))
}

func TestDecodeMessageUnknownResourceType(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type": "update", "resourceType": "widget"}`))
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrUnknownResourceType))
}

func TestDecodeMessageMissingType(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"resourceType": "endpoint", "resourceId": "e1"}`))
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, ErrSyncMessage))
}

func TestDecodeEndpointPayload(t *testing.T) {
	msg := api.SyncMessage{
		ResourceID: "e1",
		Data: map[string]any{
			"path":          "/orders",
			"method":        "POST",
			"requiresAuth":  true,
			"tags":          []any{"billing", "beta"},
			"requestSchema": map[string]any{"type": "object"},
		},
	}

	ep, err := decodeEndpoint(msg)
	require.Nil(t, err)

	assert.Equal(t, "e1", ep.ID)
	assert.Equal(t, "POST", ep.Method)
	assert.True(t, ep.RequiresAuth)
	assert.Equal(t, []string{"billing", "beta"}, ep.Tags)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(ep.RequestSchema, &schema))
	assert.Equal(t, "object", schema["type"])
}

func TestDecodeVersionPayloadTimestamps(t *testing.T) {
	msg := api.SyncMessage{
		VersionID: "v1",
		Data: map[string]any{
			"versionNumber": "1.2.0",
			"status":        "published",
			"createdAt":     "2026-02-01T12:00:00Z",
		},
	}

	v, err := decodeVersion(msg)
	require.Nil(t, err)

	assert.Equal(t, "v1", v.ID)
	assert.Equal(t, api.VersionStatusPublished, v.Status)
	assert.Equal(t, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), v.CreatedAt)
}
