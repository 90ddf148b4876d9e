package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ggoodman/mcp-authagent-go/internal/wellknown"
)

// Machine-readable error codes carried in denial bodies.
const (
	ErrorCodeUnauthorized       = "unauthorized"
	ErrorCodeInsufficientScope  = "insufficient_scope"
	ErrorCodeServiceUnavailable = "service_unavailable"
)

// AuthenticationChallenge is a fully formed denial: HTTP status, optional
// WWW-Authenticate header value and JSON body.
type AuthenticationChallenge struct {
	Status          int
	WWWAuthenticate string
	Body            ChallengeBody
}

// ChallengeBody is the JSON body of a denial.
type ChallengeBody struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	RequiredScopes   []string `json:"required_scopes,omitempty"`
}

// NewUnauthorizedChallenge builds the 401 response for a missing, malformed
// or rejected credential.
func NewUnauthorizedChallenge(cfg Config) *AuthenticationChallenge {
	return &AuthenticationChallenge{
		Status:          http.StatusUnauthorized,
		WWWAuthenticate: buildBearerChallenge(cfg, nil),
		Body:            ChallengeBody{Error: ErrorCodeUnauthorized},
	}
}

// NewInsufficientScopeChallenge builds the 403 response for a valid token
// lacking scope. It always carries the full required scope list, not only
// the missing subset.
func NewInsufficientScopeChallenge(cfg Config) *AuthenticationChallenge {
	required := append([]string(nil), cfg.RequiredScopes...)
	return &AuthenticationChallenge{
		Status: http.StatusForbidden,
		WWWAuthenticate: buildBearerChallenge(cfg, [][2]string{
			{"error", ErrorCodeInsufficientScope},
			{"scope", strings.Join(required, " ")},
		}),
		Body: ChallengeBody{Error: ErrorCodeInsufficientScope, RequiredScopes: required},
	}
}

// NewServiceUnavailableChallenge builds the 503 response used when the
// authorization service could not be reached. It carries no Bearer
// challenge: the client's credential was never judged.
func NewServiceUnavailableChallenge() *AuthenticationChallenge {
	return &AuthenticationChallenge{
		Status: http.StatusServiceUnavailable,
		Body: ChallengeBody{
			Error:            ErrorCodeServiceUnavailable,
			ErrorDescription: "authorization server unavailable",
		},
	}
}

// Write emits the challenge. Safe to call only before the status is written.
func (c *AuthenticationChallenge) Write(w http.ResponseWriter) {
	h := w.Header()
	if c.WWWAuthenticate != "" {
		h.Set(wwwAuthenticateHeader, c.WWWAuthenticate)
	}
	h.Set("Content-Type", jsonMediaType.String())
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(c.Status)
	_ = json.NewEncoder(w).Encode(c.Body)
}

// buildBearerChallenge builds a Bearer challenge header value:
//
//	Bearer realm="<realm>"[, error="...", scope="..."][, resource_metadata="..."]
//
// params are emitted in the given order between realm and resource_metadata.
func buildBearerChallenge(cfg Config, params [][2]string) string {
	esc := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace
	pieces := make([]string, 0, 2+len(params))
	pieces = append(pieces, fmt.Sprintf(`realm="%s"`, esc(cfg.Realm())))
	for _, p := range params {
		pieces = append(pieces, fmt.Sprintf(`%s="%s"`, p[0], esc(p[1])))
	}
	if cfg.ServerID != "" {
		pieces = append(pieces, fmt.Sprintf(`resource_metadata="%s"`, esc(wellknown.ProtectedResourceURL(cfg.AuthServerURL, cfg.ServerID))))
	}
	return "Bearer " + strings.Join(pieces, ", ")
}
