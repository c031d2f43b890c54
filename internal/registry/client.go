package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"prewarm/internal/extract"
	"prewarm/pkg/types"
)

// maxResponseBytes bounds how much of a registry/listing body we will read.
const maxResponseBytes = 4 << 20

// Client talks to the managed service's model endpoints: the capability
// registry, the loaded-models listing and the per-model load trigger.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
	log    zerolog.Logger
}

// New builds a client for the service at base (e.g. "http://127.0.0.1:8000").
// apiKey may be empty; when set it is forwarded as a bearer credential on
// every request.
func New(base, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// SupportedModels asks which model ids the service can install for the given
// capability. The query is advisory: any transport error, non-2xx status or
// undecodable body degrades to an empty result with a logged warning, never an
// error, so registry noise cannot block provisioning.
func (c *Client) SupportedModels(ctx context.Context, capability types.Capability) []string {
	path := "/v1/registry?task=" + url.QueryEscape(capability.TaskLabel())
	req, err := c.newRequest(ctx, http.MethodGet, path)
	if err != nil {
		c.log.Warn().Err(err).Str("capability", string(capability)).Msg("registry query: bad request")
		return nil
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("capability", string(capability)).Msg("registry query failed")
		return nil
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.log.Warn().Err(err).Str("capability", string(capability)).Msg("registry query: read body")
		return nil
	}
	if resp.StatusCode/100 != 2 {
		c.log.Warn().Int("status", resp.StatusCode).Str("capability", string(capability)).Msg("registry query: non-2xx")
		return nil
	}
	ids := extract.ModelIDs(body)
	if len(ids) == 0 {
		c.log.Warn().Str("capability", string(capability)).Msg("registry query: no model ids recovered from response")
	}
	return ids
}

// LoadedModels returns the raw body of the loaded-models listing. A transport
// error or non-2xx status is treated as "nothing loaded" and returns an empty
// string.
func (c *Client) LoadedModels(ctx context.Context) string {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/models")
	if err != nil {
		return ""
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Msg("loaded-models query failed")
		return ""
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil || resp.StatusCode/100 != 2 {
		return ""
	}
	return string(body)
}

// TriggerLoad asks the service to download/load one model. The model id is
// percent-encoded as a single path segment so a '/' inside it is not taken as
// an extra path boundary. Returns the response status and body; a transport
// failure is reported through err with status 0.
func (c *Client) TriggerLoad(ctx context.Context, modelID string) (status int, body string, err error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/models/"+url.PathEscape(modelID))
	if err != nil {
		return 0, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("load trigger request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	return resp.StatusCode, string(b), nil
}

// Healthy reports whether GET /health returns 200.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := c.newRequest(ctx, http.MethodGet, "/health")
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	return resp.StatusCode == http.StatusOK
}
