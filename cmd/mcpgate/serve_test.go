package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ggoodman/mcp-authagent-go/auth"
	"github.com/ggoodman/mcp-authagent-go/auth/authtest"
	"github.com/ggoodman/mcp-authagent-go/authagent"
	"github.com/ggoodman/mcp-authagent-go/authagent/authagenttest"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, cfg auth.Config, opts ...auth.GateOption) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	opts = append([]auth.GateOption{auth.WithLogger(logger), auth.WithMetrics(reg)}, opts...)
	gate, err := auth.NewGate(cfg, opts...)
	require.NoError(t, err)
	return newRouter(gate, reg, "test", logger)
}

func do(h http.Handler, method, path, token, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	intro := authtest.NewStaticIntrospector().
		Set("good", authagent.TokenStatus{Active: true, Subject: "a@b.com", ClientID: "c1", Scope: "files:read"}).
		Set("narrow", authagent.TokenStatus{Active: true, Subject: "a@b.com"})
	h := newTestRouter(t, auth.Config{ServerID: "srv1", RequiredScopes: []string{"files:read"}}, auth.WithIntrospector(intro))

	t.Run("health is public", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/health", "", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("root is public", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/", "", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"mcp":"/mcp"`)
	})

	t.Run("whoami requires a token", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/whoami", "", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `realm="srv1"`)
	})

	t.Run("whoami returns the identity", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/whoami", "good", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got whoamiResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, whoamiResponse{Subject: "a@b.com", ClientID: "c1", Scopes: []string{"files:read"}}, got)
	})

	t.Run("whoami without scope", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/whoami", "narrow", "", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("metrics are protected by default", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/metrics", "", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("mcp rejects non-json posts", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/mcp", "good", "text/plain", "hello")
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("mcp checks auth before content type", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/mcp", "", "text/plain", "hello")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRouter_PublicMetrics(t *testing.T) {
	intro := authtest.NewStaticIntrospector()
	h := newTestRouter(t, auth.Config{PublicPaths: []string{"/health", "/metrics"}}, auth.WithIntrospector(intro))

	do(h, http.MethodGet, "/whoami", "", "", "")
	do(h, http.MethodGet, "/health", "", "", "")

	rec := do(h, http.MethodGet, "/metrics", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `mcpgate_auth_decisions_total{outcome="unauthorized"} 1`)
	assert.Contains(t, body, `mcpgate_auth_decisions_total{outcome="public"} 2`)
	assert.Zero(t, intro.Calls())
}

// authRT injects an Authorization header for test requests.
type authRT struct {
	base  http.RoundTripper
	token string
}

func (t authRT) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(r)
}

func TestMCPEndToEnd(t *testing.T) {
	as := authagenttest.NewServer()
	defer as.Close()
	as.SetToken("good", authagent.TokenStatus{Active: true, Subject: "a@b.com", Scope: "mcp:use"})
	as.SetToken("narrow", authagent.TokenStatus{Active: true, Subject: "a@b.com"})

	h := newTestRouter(t, auth.Config{
		AuthServerURL:  as.URL,
		ServerID:       "srv1",
		APIKey:         "sk_test",
		RequiredScopes: []string{"mcp:use"},
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	connect := func(ctx context.Context, token string) (*sdk.ClientSession, error) {
		client := sdk.NewClient(&sdk.Implementation{Name: "e2e", Version: "0.0.0"}, &sdk.ClientOptions{})
		transport := &sdk.StreamableClientTransport{
			Endpoint:   srv.URL + "/mcp",
			HTTPClient: &http.Client{Transport: authRT{base: http.DefaultTransport, token: token}},
		}
		return client.Connect(ctx, transport, &sdk.ClientSessionOptions{})
	}

	t.Run("authorized session", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cs, err := connect(ctx, "good")
		require.NoError(t, err)
		defer cs.Close()

		assert.Positive(t, as.CallCount("/introspect"))
		for _, c := range as.Calls() {
			if c.Path == "/introspect" {
				assert.Equal(t, "Bearer sk_test", c.Authorization)
				assert.Equal(t, "good", c.Body["token"])
			}
		}
	})

	t.Run("rejected sessions", func(t *testing.T) {
		for _, token := range []string{"unknown", "narrow"} {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			cs, err := connect(ctx, token)
			cancel()
			if err == nil {
				cs.Close()
				t.Fatalf("token %q: expected connect to fail", token)
			}
		}
	})
}
