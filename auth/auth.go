package auth

import (
	"context"
	"errors"

	"github.com/ggoodman/mcp-authagent-go/authagent"
)

// ErrUnauthorized indicates authentication failed or no valid credentials were supplied.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInsufficientScope indicates the caller authenticated but lacks required scope.
var ErrInsufficientScope = errors.New("insufficient scope")

// ErrServiceUnavailable indicates the authorization service could not be
// consulted, so no decision about the credential was possible.
var ErrServiceUnavailable = errors.New("authorization service unavailable")

// UserInfo represents an authenticated principal.
// Implementations should be lightweight and safe for concurrent use.
type UserInfo interface {
	// UserID returns the unique identifier for the user.
	UserID() string
	// Claims unmarshalls the user's claims into the provided struct reference.
	Claims(ref any) error
}

// Authenticator validates bearer tokens and returns associated user info.
// It should return ErrUnauthorized for invalid credentials,
// ErrInsufficientScope for valid credentials lacking required scopes and
// ErrServiceUnavailable when the validity could not be determined.
type Authenticator interface {
	CheckAuthentication(ctx context.Context, tok string) (UserInfo, error)
}

// Introspector resolves a bearer token through a remote authorization
// service. *authagent.Client implements it.
//
// A returned error means the service could not be consulted; a token the
// service rejects is reported as an inactive status with a nil error.
type Introspector interface {
	Introspect(ctx context.Context, token string) (*authagent.TokenStatus, error)
}

var _ Introspector = (*authagent.Client)(nil)
