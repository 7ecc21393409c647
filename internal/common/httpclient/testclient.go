package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// TestClient is an in-memory Interface implementation for exercising
// collaborators without a catalog server. Responses are scripted per
// method and path; every request is recorded.
type TestClient struct {
	responses map[string][]byte
	failures  map[string]*HTTPError
	Requests  []RecordedRequest
}

// RecordedRequest captures one request made through the test client.
type RecordedRequest struct {
	Method string
	Path   string
	Body   []byte
}

var _ Interface = (*TestClient)(nil)

// NewTestClient creates an empty test client. Script it with Respond and
// Fail before use.
func NewTestClient() *TestClient {
	return &TestClient{
		responses: make(map[string][]byte),
		failures:  make(map[string]*HTTPError),
	}
}

func requestKey(method string, path string) string {
	return method + " " + strings.Trim(path, "/")
}

// Respond scripts a success response body for the given method and path.
func (c *TestClient) Respond(method string, path string, body []byte) {
	c.responses[requestKey(method, path)] = body
}

// Fail scripts an error response for the given method and path.
func (c *TestClient) Fail(method string, path string, status int, msg string) {
	c.failures[requestKey(method, path)] = &HTTPError{StatusCode: status, Message: msg}
}

// DoRequest returns the scripted response for the request, recording it.
// An unscripted request fails with a 404.
func (c *TestClient) DoRequest(_ context.Context, opts RequestOptions) ([]byte, string, error) {
	c.Requests = append(c.Requests, RecordedRequest{
		Method: opts.Method,
		Path:   opts.Path,
		Body:   opts.Body,
	})

	key := requestKey(opts.Method, opts.Path)
	if err, ok := c.failures[key]; ok {
		return nil, "", err
	}
	if body, ok := c.responses[key]; ok {
		return body, "", nil
	}
	return nil, "", &HTTPError{
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("no scripted response for %s", key),
	}
}

// GetResource retrieves a scripted resource by id.
func (c *TestClient) GetResource(ctx context.Context, collection string, id string) ([]byte, error) {
	body, _, err := c.DoRequest(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   joinPath(collection, id),
	})
	return body, err
}

// ListResources lists scripted resources under the collection path.
func (c *TestClient) ListResources(ctx context.Context, collection string, queryParams map[string]string) ([]byte, error) {
	body, _, err := c.DoRequest(ctx, RequestOptions{
		Method:      http.MethodGet,
		Path:        collection,
		QueryParams: queryParams,
	})
	return body, err
}

// CreateResource records the create and returns the scripted response.
func (c *TestClient) CreateResource(ctx context.Context, collection string, data []byte) ([]byte, string, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method: http.MethodPost,
		Path:   collection,
		Body:   data,
	})
}

// UpdateResource records the update and returns the scripted response.
func (c *TestClient) UpdateResource(ctx context.Context, collection string, data []byte) ([]byte, error) {
	id := gjson.GetBytes(data, "id").String()
	if id == "" {
		return nil, fmt.Errorf("id is required for update")
	}
	body, _, err := c.DoRequest(ctx, RequestOptions{
		Method: http.MethodPut,
		Path:   joinPath(collection, id),
		Body:   data,
	})
	return body, err
}

// DeleteResource records the delete.
func (c *TestClient) DeleteResource(ctx context.Context, collection string, id string) error {
	_, _, err := c.DoRequest(ctx, RequestOptions{
		Method: http.MethodDelete,
		Path:   joinPath(collection, id),
	})
	return err
}
