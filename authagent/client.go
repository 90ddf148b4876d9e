package authagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/mcp-authagent-go/internal/telemetry"
	"github.com/ggoodman/mcp-authagent-go/internal/wellknown"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnavailable indicates the authorization service could not be reached
// (dial, DNS, TLS, timeout or cancellation).
var ErrUnavailable = errors.New("authagent: authorization server unavailable")

// ErrMalformedResponse indicates a successful status with a body that could
// not be decoded.
var ErrMalformedResponse = errors.New("authagent: malformed response")

const maxResponseBytes = 1 << 20

var jsonMediaType = contenttype.NewMediaType("application/json")

// Client calls the auth-agent authorization service. It holds no mutable
// state and is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for outbound calls. When hc
// has no timeout the configured one is applied to a copy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		dup := *hc
		if dup.Timeout == 0 {
			dup.Timeout = c.timeout
		}
		c.httpClient = &dup
	}
}

// New creates a client for the authorization service described by cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:    cfg.GetBaseURL(),
		apiKey:     cfg.APIKey,
		timeout:    cfg.GetTimeout(),
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized authorization service URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Introspect resolves token into a TokenStatus. A non-200 response is
// reported as an inactive token, not as an error; only failures to reach the
// service (ErrUnavailable) or undecodable 200 bodies (ErrMalformedResponse)
// return an error.
func (c *Client) Introspect(ctx context.Context, token string) (*TokenStatus, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "authagent.introspect", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	resp, err := c.postJSON(ctx, "/introspect", introspectRequest{Token: token}, true)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		span.SetAttributes(attribute.Bool("authagent.token.active", false))
		return &TokenStatus{Active: false}, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		err = fmt.Errorf("%w: read introspection response: %w", ErrUnavailable, err)
		recordSpanError(span, err)
		return nil, err
	}
	var st TokenStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		err = fmt.Errorf("%w: introspection: %w", ErrMalformedResponse, err)
		recordSpanError(span, err)
		return nil, err
	}
	st.Raw = raw
	span.SetAttributes(attribute.Bool("authagent.token.active", st.Active))
	return &st, nil
}

// Revoke asks the authorization service to revoke token. clientID and
// clientSecret are optional. It reports whether the service answered 200.
func (c *Client) Revoke(ctx context.Context, token, clientID, clientSecret string) (bool, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "authagent.revoke", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	resp, err := c.postJSON(ctx, "/revoke", revokeRequest{Token: token, ClientID: clientID, ClientSecret: clientSecret}, false)
	if err != nil {
		recordSpanError(span, err)
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return resp.StatusCode == http.StatusOK, nil
}

// GetServerMetadata fetches the protected-resource metadata for serverID (or
// the service-wide document when serverID is empty). Unlike Introspect, every
// failure is returned to the caller.
func (c *Client) GetServerMetadata(ctx context.Context, serverID string) (*ResourceMetadata, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "authagent.metadata", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellknown.ProtectedResourceURL(c.baseURL, serverID), nil)
	if err != nil {
		return nil, fmt.Errorf("authagent: build metadata request: %w", err)
	}
	req.Header.Set("Accept", jsonMediaType.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: metadata: %w", ErrUnavailable, err)
		recordSpanError(span, err)
		return nil, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &StatusError{Endpoint: "metadata", StatusCode: resp.StatusCode}
		recordSpanError(span, err)
		return nil, err
	}
	if mt := contenttype.NewMediaType(resp.Header.Get("Content-Type")); !mt.Matches(jsonMediaType) {
		err := fmt.Errorf("%w: metadata content-type %q", ErrMalformedResponse, resp.Header.Get("Content-Type"))
		recordSpanError(span, err)
		return nil, err
	}

	var md ResourceMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&md); err != nil {
		err = fmt.Errorf("%w: metadata: %w", ErrMalformedResponse, err)
		recordSpanError(span, err)
		return nil, err
	}
	return &md, nil
}

// postJSON issues one POST to path. The returned response body must be
// closed by the caller. withAPIKey attaches the resource server credential.
func (c *Client) postJSON(ctx context.Context, path string, body any, withAPIKey bool) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("authagent: marshal request: %w", err)
	}

	// The deadline outlives this function; it is released when the caller
	// closes the body via cancelOnClose.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("authagent: build request: %w", err)
	}
	req.Header.Set("Content-Type", jsonMediaType.String())
	req.Header.Set("Accept", jsonMediaType.String())
	if withAPIKey && c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: POST %s: %w", ErrUnavailable, path, err)
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
