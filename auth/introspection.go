package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var _ Authenticator = (*IntrospectionAuthenticator)(nil)

// IntrospectionAuthenticator validates bearer tokens by asking a remote
// authorization service, then enforces that every required scope is granted.
type IntrospectionAuthenticator struct {
	introspector Introspector
	required     []string
}

// NewIntrospectionAuthenticator returns an Authenticator backed by i.
func NewIntrospectionAuthenticator(i Introspector, requiredScopes ...string) *IntrospectionAuthenticator {
	return &IntrospectionAuthenticator{
		introspector: i,
		required:     append([]string(nil), requiredScopes...),
	}
}

func (a *IntrospectionAuthenticator) CheckAuthentication(ctx context.Context, tok string) (UserInfo, error) {
	id, err := a.Authenticate(ctx, tok)
	if err != nil {
		return nil, err
	}
	return id, nil
}

// Authenticate is CheckAuthentication returning the concrete Identity.
func (a *IntrospectionAuthenticator) Authenticate(ctx context.Context, tok string) (*Identity, error) {
	if tok == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnauthorized)
	}

	st, err := a.introspector.Introspect(ctx, tok)
	if err != nil {
		return nil, errors.Join(ErrServiceUnavailable, err)
	}
	if st == nil || !st.Active {
		return nil, fmt.Errorf("%w: token inactive", ErrUnauthorized)
	}

	if missing := missingScopes(a.required, st.Scopes()); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInsufficientScope, strings.Join(missing, " "))
	}

	return newIdentity(st), nil
}

// missingScopes returns the entries of required absent from granted, in
// required order.
func missingScopes(required, granted []string) []string {
	if len(required) == 0 {
		return nil
	}
	have := make(map[string]bool, len(granted))
	for _, s := range granted {
		have[s] = true
	}
	var missing []string
	for _, want := range required {
		if !have[want] {
			missing = append(missing, want)
		}
	}
	return missing
}
