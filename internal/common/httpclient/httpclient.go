package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Configurator provides server location and authentication details.
type Configurator interface {
	GetServerURL() string
	GetToken() string
	GetTokenExpiry() time.Time
}

// ServerError is the error document returned by the catalog API.
type ServerError struct {
	Result int    `json:"result"` // result code from server
	Error  string `json:"error"`  // error message from server
}

// HTTPError represents an error response with its HTTP status code.
type HTTPError struct {
	StatusCode int    // HTTP status code of the error
	Message    string // error message or response body
}

// Error implements the error interface for HTTPError.
func (e *HTTPError) Error() string {
	return e.Message
}

// HTTPClient makes requests to the catalog REST API.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
}

var _ Interface = (*HTTPClient)(nil)

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	DisableCertValidation bool          // if true, skips TLS certificate validation
	Timeout               time.Duration // per-request timeout; zero means no timeout
}

// NewClient creates a new HTTP client using the provided configuration.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}

	httpClient := &http.Client{Timeout: clientOpts.Timeout}
	if clientOpts.DisableCertValidation {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}
	return &HTTPClient{
		config:     config,
		httpClient: httpClient,
	}
}

// RequestOptions contains options for making HTTP requests.
type RequestOptions struct {
	Method      string            // HTTP method (GET, POST, PUT, DELETE)
	Path        string            // API endpoint path
	QueryParams map[string]string // optional query parameters
	Body        []byte            // optional request body
}

// DoRequest makes an HTTP request with the given options. A bearer token is
// attached when one is configured and not expired.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, string, error) {
	u, err := url.Parse(c.config.GetServerURL())
	if err != nil {
		return nil, "", fmt.Errorf("invalid server URL: %v", err)
	}
	u.Path = path.Join(u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewBuffer(opts.Body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if token := c.config.GetToken(); token != "" {
		expiry := c.config.GetTokenExpiry()
		if expiry.IsZero() || time.Now().Before(expiry) {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode >= 400 {
		var serverErr ServerError
		if err := json.Unmarshal(body, &serverErr); err == nil && serverErr.Error != "" {
			return nil, "", &HTTPError{
				StatusCode: resp.StatusCode,
				Message:    serverErr.Error,
			}
		}
		return nil, "", &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	return body, resp.Header.Get("Location"), nil
}

// GetResource retrieves a resource by id under the given collection path.
func (c *HTTPClient) GetResource(ctx context.Context, collection string, id string) ([]byte, error) {
	body, _, err := c.DoRequest(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   joinPath(collection, id),
	})
	return body, err
}

// ListResources lists the resources under the given collection path.
func (c *HTTPClient) ListResources(ctx context.Context, collection string, queryParams map[string]string) ([]byte, error) {
	body, _, err := c.DoRequest(ctx, RequestOptions{
		Method:      http.MethodGet,
		Path:        collection,
		QueryParams: queryParams,
	})
	return body, err
}

// CreateResource creates a resource from the given JSON document.
func (c *HTTPClient) CreateResource(ctx context.Context, collection string, data []byte) ([]byte, string, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method: http.MethodPost,
		Path:   collection,
		Body:   data,
	})
}

// UpdateResource updates the resource selected by the document's id field.
func (c *HTTPClient) UpdateResource(ctx context.Context, collection string, data []byte) ([]byte, error) {
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

// DeleteResource deletes a resource by id.
func (c *HTTPClient) DeleteResource(ctx context.Context, collection string, id string) error {
	_, _, err := c.DoRequest(ctx, RequestOptions{
		Method: http.MethodDelete,
		Path:   joinPath(collection, id),
	})
	return err
}

func joinPath(collection string, id string) string {
	return strings.TrimSuffix(strings.Trim(collection, "/"), "/") + "/" + strings.Trim(id, "/")
}
