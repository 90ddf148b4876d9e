package wellknown

import "strings"

// ProtectedResourcePath is the RFC 9728 well-known path prefix under which the
// authorization service publishes per-resource metadata.
const ProtectedResourcePath = "/.well-known/oauth-protected-resource"

// ProtectedResourceURL returns the metadata document URL for serverID on the
// authorization service rooted at base. An empty serverID yields the
// service-wide document.
func ProtectedResourceURL(base string, serverID string) string {
	u := strings.TrimRight(base, "/") + ProtectedResourcePath
	if serverID != "" {
		u += "/" + serverID
	}
	return u
}

// ProtectedResourceMetadata is the RFC 9728 document returned by the
// authorization service for a protected MCP server.
type ProtectedResourceMetadata struct {
	Resource                              string   `json:"resource"`
	AuthorizationServers                  []string `json:"authorization_servers,omitempty"`
	JwksURI                               string   `json:"jwks_uri,omitempty"`
	ScopesSupported                       []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported                []string `json:"bearer_methods_supported,omitempty"`
	ResourceSigningAlgValuesSupported     []string `json:"resource_signing_alg_values_supported,omitempty"`
	ResourceName                          string   `json:"resource_name,omitempty"`
	ResourceDocumentation                 string   `json:"resource_documentation,omitempty"`
	ResourcePolicyURI                     string   `json:"resource_policy_uri,omitempty"`
	ResourceTosURI                        string   `json:"resource_tos_uri,omitempty"`
	TLSClientCertificateBoundAccessTokens bool     `json:"tls_client_certificate_bound_access_tokens,omitempty"`
	DpopBoundAccessTokensRequired         bool     `json:"dpop_bound_access_tokens_required,omitempty"`
}
