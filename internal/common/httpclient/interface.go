// Package httpclient provides a configurable HTTP client for the catalog
// REST API. It handles bearer authentication, request building, and error
// handling for server responses. Server location and credentials come from
// a Configurator implementation.
package httpclient

import "context"

// Interface is the contract for catalog API HTTP clients. A test client
// implementation exists alongside the real one so collaborators can be
// exercised without a server.
type Interface interface {
	// DoRequest makes an HTTP request with the given options.
	// Returns the response body, the Location header if present, and any
	// error that occurred.
	DoRequest(ctx context.Context, opts RequestOptions) ([]byte, string, error)

	// GetResource retrieves a resource by id under the given collection path.
	GetResource(ctx context.Context, collection string, id string) ([]byte, error)

	// ListResources lists the resources under the given collection path.
	ListResources(ctx context.Context, collection string, queryParams map[string]string) ([]byte, error)

	// CreateResource creates a resource from the given JSON document.
	// Returns the response body and the Location header.
	CreateResource(ctx context.Context, collection string, data []byte) ([]byte, string, error)

	// UpdateResource updates a resource. The document must carry an "id"
	// field, which selects the resource to update.
	UpdateResource(ctx context.Context, collection string, data []byte) ([]byte, error)

	// DeleteResource deletes a resource by id. Deleting an absent resource
	// is not an error at this layer; the server decides.
	DeleteResource(ctx context.Context, collection string, id string) error
}
