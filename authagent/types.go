package authagent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ggoodman/mcp-authagent-go/internal/wellknown"
)

// TokenStatus is the introspection record returned by the authorization
// service for a single bearer token (RFC 7662 response shape).
type TokenStatus struct {
	Active    bool   `json:"active"`
	Subject   string `json:"sub,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Audience  string `json:"aud,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`

	// Raw is the undecoded response body. Empty for synthesized inactive
	// results.
	Raw json.RawMessage `json:"-"`
}

// Scopes returns the whitespace-separated grants in Scope.
func (s *TokenStatus) Scopes() []string {
	return strings.Fields(s.Scope)
}

// ResourceMetadata is the protected-resource metadata document served by the
// authorization service.
type ResourceMetadata = wellknown.ProtectedResourceMetadata

type introspectRequest struct {
	Token string `json:"token"`
}

type revokeRequest struct {
	Token        string `json:"token"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// StatusError reports a non-success HTTP status from an endpoint whose
// failures are surfaced to the caller.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("authagent: %s returned HTTP %d", e.Endpoint, e.StatusCode)
}
