// Package api defines the public wire types for the catalog sync protocol:
// the catalog entity model served by the catalog API and the sync message
// envelope pushed over the realtime channel. It also provides an HTTP client
// for the catalog API.
package api

import (
	"encoding/json"
	"time"
)

// MessageType identifies the kind of mutation a sync message carries.
type MessageType string

const (
	MessageTypeUpdate   MessageType = "update"
	MessageTypeDelete   MessageType = "delete"
	MessageTypePublish  MessageType = "publish"
	MessageTypeConflict MessageType = "conflict"
)

// IsValid reports whether the message type is one of the closed set.
func (m MessageType) IsValid() bool {
	switch m {
	case MessageTypeUpdate, MessageTypeDelete, MessageTypePublish, MessageTypeConflict:
		return true
	default:
		return false
	}
}

// ResourceType identifies which catalog entity a sync message refers to.
type ResourceType string

const (
	ResourceTypeEndpoint   ResourceType = "endpoint"
	ResourceTypeConnection ResourceType = "connection"
	ResourceTypeVersion    ResourceType = "version"
)

// IsValid reports whether the resource type is one of the closed set.
func (r ResourceType) IsValid() bool {
	switch r {
	case ResourceTypeEndpoint, ResourceTypeConnection, ResourceTypeVersion:
		return true
	default:
		return false
	}
}

// VersionStatus is the publication state of a catalog version.
type VersionStatus string

const (
	VersionStatusDraft     VersionStatus = "draft"
	VersionStatusPreview   VersionStatus = "preview"
	VersionStatusPublished VersionStatus = "published"
)

// Endpoint describes one callable route in the catalog.
type Endpoint struct {
	ID             string          `json:"id"`
	Path           string          `json:"path"`
	Method         string          `json:"method"`
	RequestSchema  json.RawMessage `json:"requestSchema,omitempty"`
	ResponseSchema json.RawMessage `json:"responseSchema,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	RequiresAuth   bool            `json:"requiresAuth"`
}

// Connection is a named base URL plus auth profile used to reach an upstream.
type Connection struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	BaseURL    string            `json:"baseUrl"`
	AuthType   string            `json:"authType"`
	AuthConfig map[string]string `json:"authConfig,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// ChangeRecord is one entry of a version's diff log.
type ChangeRecord struct {
	ResourceType ResourceType `json:"resourceType"`
	ResourceID   string       `json:"resourceId"`
	Action       string       `json:"action"`
	Summary      string       `json:"summary,omitempty"`
}

// CatalogVersion is an immutable snapshot of the catalog's endpoints,
// connections, and schemas at a point in time. Versions are created
// server-side; the client receives whole versions and never mutates one
// in place.
type CatalogVersion struct {
	ID            string                     `json:"id"`
	VersionNumber string                     `json:"versionNumber"`
	Status        VersionStatus              `json:"status"`
	Endpoints     []Endpoint                 `json:"endpoints,omitempty"`
	Connections   []Connection               `json:"connections,omitempty"`
	Schemas       map[string]json.RawMessage `json:"schemas,omitempty"`
	Changes       []ChangeRecord             `json:"changes,omitempty"`
	CreatedAt     time.Time                  `json:"createdAt,omitempty"`
}

// Catalog is the aggregate root describing the whole API surface of a
// deployment. It is replaced wholesale on publish; it is never partially
// mutated outside a version swap.
type Catalog struct {
	ID               string                     `json:"id"`
	Name             string                     `json:"name"`
	CurrentVersionID string                     `json:"currentVersionId"`
	CurrentVersion   *CatalogVersion            `json:"currentVersion,omitempty"`
	BaseURLs         []string                   `json:"baseUrls,omitempty"`
	Schemas          map[string]json.RawMessage `json:"schemas,omitempty"`
	UpdatedAt        time.Time                  `json:"updatedAt,omitempty"`
	UpdatedBy        string                     `json:"updatedBy,omitempty"`
}

// SyncMessage is the wire envelope for one mutation event on the realtime
// channel. Data carries the resource payload for update and publish messages;
// Metadata carries free-form context such as a human readable conflict
// message under the "message" key.
type SyncMessage struct {
	Type         MessageType    `json:"type" validate:"required,oneof=update delete publish conflict"`
	ResourceType ResourceType   `json:"resourceType" validate:"required,oneof=endpoint connection version"`
	ResourceID   string         `json:"resourceId"`
	VersionID    string         `json:"versionId"`
	Timestamp    time.Time      `json:"timestamp"`
	Data         map[string]any `json:"data,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ConflictMessage returns the human readable message attached to a conflict
// envelope, or the empty string if none was provided.
func (m *SyncMessage) ConflictMessage() string {
	if m.Metadata == nil {
		return ""
	}
	if s, ok := m.Metadata["message"].(string); ok {
		return s
	}
	return ""
}
