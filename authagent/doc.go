// Package authagent is a client for the auth-agent authorization service
// used by MCP resource servers that delegate token validation.
//
// The client performs exactly one outbound call per operation and never
// caches or retries:
//
//	c, err := authagent.New(authagent.Config{APIKey: os.Getenv("AUTH_AGENT_API_KEY")})
//	if err != nil { log.Fatal(err) }
//
//	st, err := c.Introspect(ctx, bearerToken)
//	if errors.Is(err, authagent.ErrUnavailable) { /* could not check */ }
//	if err == nil && st.Active { fmt.Println(st.Subject, st.Scopes()) }
//
// # Failure policy
//
// Introspect folds any non-200 answer into an inactive TokenStatus: the
// service rejecting the call is treated as the service rejecting the token.
// Only an unreachable service (ErrUnavailable) or an undecodable 200 body
// (ErrMalformedResponse) returns an error, which callers should surface as
// "unable to check" rather than "not allowed".
//
// Revoke reports whether the service answered 200. GetServerMetadata is not on
// the request path and returns every failure, including non-2xx statuses as
// *StatusError.
package authagent
