package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/apigrid/catalogsync/internal/common/httpclient"
)

// Catalog API collection paths.
const (
	collectionCatalog     = "api/v1/catalog"
	collectionEndpoints   = "api/v1/endpoints"
	collectionConnections = "api/v1/connections"
	collectionVersions    = "api/v1/versions"
)

// LocalRecorder receives locally-issued mutations after the server accepted
// them, so they can be reflected optimistically and tracked as pending
// until a sync message confirms or conflicts with them. The catalog store
// implements this.
type LocalRecorder interface {
	UpsertLocalEndpoint(ep Endpoint)
	DeleteLocalEndpoint(id string)
	UpsertLocalConnection(cn Connection)
	DeleteLocalConnection(id string)
}

// Client is the catalog API client. Reads serve the bulk refresh path;
// writes register accepted mutations with the recorder. The client never
// resolves sync outcomes itself; it only originates them.
type Client struct {
	http     httpclient.Interface
	recorder LocalRecorder
}

// NewClient creates a catalog API client. The recorder may be nil, in which
// case writes are not reflected locally and arrive only via sync messages.
func NewClient(httpClient httpclient.Interface, recorder LocalRecorder) *Client {
	return &Client{
		http:     httpClient,
		recorder: recorder,
	}
}

// FetchCatalog retrieves the full catalog with its current version. It
// serves the store's refresh path; cancellation follows the context.
func (c *Client) FetchCatalog(ctx context.Context) (Catalog, error) {
	body, err := c.http.ListResources(ctx, collectionCatalog, nil)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	var catalog Catalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return catalog, nil
}

// ListVersions retrieves the known catalog versions.
func (c *Client) ListVersions(ctx context.Context) ([]CatalogVersion, error) {
	body, err := c.http.ListResources(ctx, collectionVersions, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	var versions []CatalogVersion
	if err := json.Unmarshal(body, &versions); err != nil {
		return nil, fmt.Errorf("failed to decode versions: %w", err)
	}
	return versions, nil
}

// CreateEndpoint creates an endpoint. A missing id is assigned client-side
// so the pending ledger can track the resource before the server echoes it
// back. Returns the endpoint as accepted by the server.
func (c *Client) CreateEndpoint(ctx context.Context, ep Endpoint) (Endpoint, error) {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	data, err := json.Marshal(ep)
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to encode endpoint: %w", err)
	}
	body, _, err := c.http.CreateResource(ctx, collectionEndpoints, data)
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to create endpoint: %w", err)
	}
	accepted := ep
	if len(body) > 0 {
		if err := json.Unmarshal(body, &accepted); err != nil {
			accepted = ep
		}
	}
	if c.recorder != nil {
		c.recorder.UpsertLocalEndpoint(accepted)
	}
	return accepted, nil
}

// UpdateEndpoint updates an endpoint and reflects the accepted value
// optimistically.
func (c *Client) UpdateEndpoint(ctx context.Context, ep Endpoint) (Endpoint, error) {
	if ep.ID == "" {
		return Endpoint{}, fmt.Errorf("endpoint id is required")
	}
	data, err := json.Marshal(ep)
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to encode endpoint: %w", err)
	}
	body, err := c.http.UpdateResource(ctx, collectionEndpoints, data)
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to update endpoint: %w", err)
	}
	accepted := ep
	if len(body) > 0 {
		if err := json.Unmarshal(body, &accepted); err != nil {
			accepted = ep
		}
	}
	if c.recorder != nil {
		c.recorder.UpsertLocalEndpoint(accepted)
	}
	return accepted, nil
}

// DeleteEndpoint deletes an endpoint and reflects the removal
// optimistically.
func (c *Client) DeleteEndpoint(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("endpoint id is required")
	}
	if err := c.http.DeleteResource(ctx, collectionEndpoints, id); err != nil {
		return fmt.Errorf("failed to delete endpoint: %w", err)
	}
	if c.recorder != nil {
		c.recorder.DeleteLocalEndpoint(id)
	}
	return nil
}

// CreateConnection creates a connection, assigning an id when missing.
func (c *Client) CreateConnection(ctx context.Context, cn Connection) (Connection, error) {
	if cn.ID == "" {
		cn.ID = uuid.NewString()
	}
	data, err := json.Marshal(cn)
	if err != nil {
		return Connection{}, fmt.Errorf("failed to encode connection: %w", err)
	}
	body, _, err := c.http.CreateResource(ctx, collectionConnections, data)
	if err != nil {
		return Connection{}, fmt.Errorf("failed to create connection: %w", err)
	}
	accepted := cn
	if len(body) > 0 {
		if err := json.Unmarshal(body, &accepted); err != nil {
			accepted = cn
		}
	}
	if c.recorder != nil {
		c.recorder.UpsertLocalConnection(accepted)
	}
	return accepted, nil
}

// UpdateConnection updates a connection and reflects the accepted value
// optimistically.
func (c *Client) UpdateConnection(ctx context.Context, cn Connection) (Connection, error) {
	if cn.ID == "" {
		return Connection{}, fmt.Errorf("connection id is required")
	}
	data, err := json.Marshal(cn)
	if err != nil {
		return Connection{}, fmt.Errorf("failed to encode connection: %w", err)
	}
	body, err := c.http.UpdateResource(ctx, collectionConnections, data)
	if err != nil {
		return Connection{}, fmt.Errorf("failed to update connection: %w", err)
	}
	accepted := cn
	if len(body) > 0 {
		if err := json.Unmarshal(body, &accepted); err != nil {
			accepted = cn
		}
	}
	if c.recorder != nil {
		c.recorder.UpsertLocalConnection(accepted)
	}
	return accepted, nil
}

// DeleteConnection deletes a connection and reflects the removal
// optimistically.
func (c *Client) DeleteConnection(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("connection id is required")
	}
	if err := c.http.DeleteResource(ctx, collectionConnections, id); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	if c.recorder != nil {
		c.recorder.DeleteLocalConnection(id)
	}
	return nil
}

// PublishVersion asks the server to publish a version. The swap arrives as
// a publish sync message; nothing is reflected locally here.
func (c *Client) PublishVersion(ctx context.Context, versionID string) error {
	if versionID == "" {
		return fmt.Errorf("version id is required")
	}
	_, _, err := c.http.DoRequest(ctx, httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   collectionVersions + "/" + versionID + "/publish",
	})
	if err != nil {
		return fmt.Errorf("failed to publish version: %w", err)
	}
	return nil
}
