// FILE: logtrace/src/internal/usage/client.go
package usage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"logtrace/src/internal/config"
	"logtrace/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

// Client fetches usage snapshots and credential metadata from the gateway
// management API.
type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	httpc    *fasthttp.Client
	logger   *log.Logger
}

// NewClient creates a gateway API client from configuration.
func NewClient(cfg *config.UsageConfig, logger *log.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("usage client options cannot be nil")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("usage client requires 'endpoint' option")
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		timeout:  timeout,
		httpc: &fasthttp.Client{
			MaxConnsPerHost: 4,
			ReadTimeout:     timeout,
			WriteTimeout:    timeout,
		},
		logger: logger,
	}, nil
}

// usageEnvelope mirrors the management API usage snapshot response.
type usageEnvelope struct {
	Details []usageRecord `json:"details"`
}

type usageRecord struct {
	TimestampMS int64  `json:"timestamp_ms"`
	Method      string `json:"endpoint_method"`
	Path        string `json:"endpoint_path"`
	Model       string `json:"model_name"`
	Source      string `json:"source"`
	// The gateway reports auth_index as a string or a number depending on
	// credential type.
	AuthIndex any  `json:"auth_index"`
	Failed    bool `json:"failed"`
}

// indexKey normalizes a string-or-number auth index to its map key form.
func indexKey(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// credentialEnvelope mirrors the management API auth-file listing.
type credentialEnvelope struct {
	Files []credentialRecord `json:"files"`
}

type credentialRecord struct {
	Index any    `json:"index"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// FetchUsage retrieves the current usage snapshot, normalized for the
// resolver.
func (c *Client) FetchUsage() ([]core.UsageDetail, error) {
	body, err := c.get(c.endpoint + "/v0/management/usage")
	if err != nil {
		return nil, err
	}

	var envelope usageEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode usage snapshot: %w", err)
	}

	details := make([]core.UsageDetail, 0, len(envelope.Details))
	for _, rec := range envelope.Details {
		details = append(details, core.UsageDetail{
			TimestampMS: rec.TimestampMS,
			Method:      rec.Method,
			Path:        rec.Path,
			Model:       rec.Model,
			Source:      rec.Source,
			AuthIndex:   indexKey(rec.AuthIndex),
			Failed:      rec.Failed,
		})
	}

	c.logger.Debug("msg", "Usage snapshot fetched",
		"component", "usage_client",
		"details", len(details))
	return details, nil
}

// FetchCredentials retrieves the credential display table keyed by
// normalized auth index.
func (c *Client) FetchCredentials() (map[string]core.CredentialInfo, error) {
	body, err := c.get(c.endpoint + "/v0/management/auth-files")
	if err != nil {
		return nil, err
	}

	var envelope credentialEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode credential listing: %w", err)
	}

	creds := make(map[string]core.CredentialInfo, len(envelope.Files))
	for _, rec := range envelope.Files {
		key := indexKey(rec.Index)
		if key == "" {
			continue
		}
		creds[key] = core.CredentialInfo{Name: rec.Name, Type: rec.Type}
	}

	c.logger.Debug("msg", "Credential listing fetched",
		"component", "usage_client",
		"credentials", len(creds))
	return creds, nil
}

func (c *Client) get(url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if err := c.httpc.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d for %s", resp.StatusCode(), url)
	}

	// Body is reused after release; copy out.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
