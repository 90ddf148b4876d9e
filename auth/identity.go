package auth

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/ggoodman/mcp-authagent-go/authagent"
)

var _ UserInfo = (*Identity)(nil)

// Identity is the caller identity attached to an authenticated request. It
// lives only as long as the request context.
type Identity struct {
	Subject  string
	Scopes   []string
	ClientID string
	Audience string

	raw json.RawMessage
}

func newIdentity(st *authagent.TokenStatus) *Identity {
	return &Identity{
		Subject:  st.Subject,
		Scopes:   st.Scopes(),
		ClientID: st.ClientID,
		Audience: st.Audience,
		raw:      st.Raw,
	}
}

func (id *Identity) UserID() string { return id.Subject }

// Claims decodes the full introspection response into ref.
func (id *Identity) Claims(ref any) error {
	if len(id.raw) == 0 {
		return nil
	}
	return json.Unmarshal(id.raw, ref)
}

// HasScope reports whether scope was granted.
func (id *Identity) HasScope(scope string) bool {
	return slices.Contains(id.Scopes, scope)
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity injected by the gate.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
