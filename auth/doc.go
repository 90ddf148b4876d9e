// Package auth gates MCP HTTP endpoints behind bearer tokens validated by a
// remote authorization service through token introspection.
//
// The Gate runs a fixed pipeline per request:
//
//  1. Requests whose path exactly matches a public path are forwarded
//     without reading any credential.
//  2. The Authorization header must carry "Bearer <token>".
//  3. The token is introspected (one remote call, no cache, no retry).
//  4. Every required scope must appear in the token's space-delimited scope.
//  5. The caller's Identity is attached to the request context and the next
//     handler runs.
//
// Example:
//
//	cfg, err := auth.FromEnv()
//	if err != nil { log.Fatal(err) }
//	gate, err := auth.NewGate(cfg, auth.WithLogger(logger))
//	if err != nil { log.Fatal(err) }
//
//	mux := http.NewServeMux()
//	mux.Handle("/mcp", mcpHandler)
//	http.ListenAndServe(":8080", gate.Middleware(mux))
//
// Inside a protected handler:
//
//	id, _ := auth.IdentityFromContext(r.Context())
//	fmt.Println(id.Subject, id.Scopes)
//
// # Errors
//
// The pipeline distinguishes "you are not allowed" from "we could not
// check". A missing, malformed or inactive credential yields 401 with
// ErrUnauthorized; a valid token lacking scope yields 403 with
// ErrInsufficientScope and the full required list; an unreachable
// authorization service yields 503 with ErrServiceUnavailable. 401 and 403
// responses carry a WWW-Authenticate Bearer challenge (realm, and when a
// server ID is configured, resource_metadata) so compliant clients can
// re-authenticate or request broader scope.
package auth
