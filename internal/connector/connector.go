package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gi8lino/tasklens/internal/entity"
	"github.com/gi8lino/tasklens/internal/terms"
)

// Connector is the boundary to the remote API. Reads return the decoded JSON
// body whatever the HTTP status; only transport failures are errors.
type Connector interface {
	FetchCollection(ctx context.Context, kind entity.Kind) (any, error)
	FetchByID(ctx context.Context, kind entity.Kind, id int) (any, error)
	Create(ctx context.Context, kind entity.Kind, attrs map[string]any) (any, error)
	UpdateItem(ctx context.Context, id int, payload map[string]any) (any, error)
	Config() Identity
}

// Identity describes the configured user.
type Identity struct {
	Email string
	Name  string
}

// Options configures an HTTPConnector.
type Options struct {
	BaseURL       *url.URL
	Auth          AuthFunc
	SkipTLSVerify bool
	Timeout       time.Duration
	Terms         *terms.Dictionary
	Identity      Identity
	Logger        *slog.Logger
}

// HTTPConnector talks to the REST API over HTTP.
type HTTPConnector struct {
	APIURL *url.URL     // Base API URL, resources are resolved relative to it
	Client *http.Client // Underlying HTTP client

	auth     AuthFunc
	terms    *terms.Dictionary
	identity Identity
	logger   *slog.Logger
}

// New returns an HTTPConnector for opts.
func New(opts Options) (*HTTPConnector, error) {
	if opts.BaseURL == nil || opts.BaseURL.String() == "" {
		return nil, fmt.Errorf("connector: missing base URL")
	}
	base := *opts.BaseURL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/" // keep the last segment when resolving relative paths
	}
	auth := opts.Auth
	if auth == nil {
		auth = func(*http.Request) {}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPConnector{
		APIURL:   &base,
		Client:   newHTTPClient(opts.SkipTLSVerify, opts.Timeout),
		auth:     auth,
		terms:    opts.Terms,
		identity: opts.Identity,
		logger:   logger,
	}, nil
}

// Config returns the configured user identity.
func (c *HTTPConnector) Config() Identity { return c.identity }

// FetchCollection lists every resource of kind.
func (c *HTTPConnector) FetchCollection(ctx context.Context, kind entity.Kind) (any, error) {
	return c.doRequest(ctx, http.MethodGet, string(kind), nil)
}

// FetchByID fetches a single resource of kind.
func (c *HTTPConnector) FetchByID(ctx context.Context, kind entity.Kind, id int) (any, error) {
	return c.doRequest(ctx, http.MethodGet, string(kind)+"/"+strconv.Itoa(id), nil)
}

// Create posts a new resource. attrs use common names.
func (c *HTTPConnector) Create(ctx context.Context, kind entity.Kind, attrs map[string]any) (any, error) {
	if kind.UsesTerms() {
		attrs = c.terms.ToAPI(attrs)
	}
	return c.doRequest(ctx, http.MethodPost, string(kind), attrs)
}

// UpdateItem sends payload (common names) as the new attributes of item id.
func (c *HTTPConnector) UpdateItem(ctx context.Context, id int, payload map[string]any) (any, error) {
	return c.doRequest(ctx, http.MethodPut, string(entity.KindItems)+"/"+strconv.Itoa(id), c.terms.ToAPI(payload))
}

// doRequest performs an authenticated request and decodes the JSON response.
func (c *HTTPConnector) doRequest(ctx context.Context, method, path string, body any) (any, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	relURL, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}
	fullURL := c.APIURL.ResolveReference(relURL).String()

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.auth(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("api request",
		"method", method,
		"url", fullURL,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	v, err := decodeJSONUseNumber(raw)
	if err != nil {
		if resp.StatusCode >= 400 {
			// non-JSON failure bodies still have to look like an API error
			return errorObject(resp.StatusCode, raw), nil
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if resp.StatusCode >= 400 {
		if obj, ok := v.(map[string]any); ok {
			if _, has := obj["status"]; !has {
				obj["status"] = json.Number(strconv.Itoa(resp.StatusCode))
			}
			if _, has := obj["error"]; !has {
				obj["error"] = http.StatusText(resp.StatusCode)
			}
			return obj, nil
		}
		return errorObject(resp.StatusCode, raw), nil
	}
	return v, nil
}

// errorObject synthesizes an error-shaped object for a failed response.
func errorObject(status int, raw []byte) map[string]any {
	msg := strings.TrimSpace(string(trim(raw, 2048)))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return map[string]any{
		"status":  json.Number(strconv.Itoa(status)),
		"error":   http.StatusText(status),
		"message": msg,
	}
}

// decodeJSONUseNumber decodes JSON using UseNumber to preserve integer precision.
// An empty body decodes to an empty object.
func decodeJSONUseNumber(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// trim returns at most n bytes from b.
func trim(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
