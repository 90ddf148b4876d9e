package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/mcp-authagent-go/authagent"
	"github.com/ggoodman/mcp-authagent-go/internal/logctx"
	"github.com/ggoodman/mcp-authagent-go/internal/telemetry"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	authorizationHeader   = "Authorization"
	wwwAuthenticateHeader = "WWW-Authenticate"
	bearerPrefix          = "Bearer "
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// Interceptor runs before an application handler. It either calls next with
// a (possibly enriched) request or writes a response itself.
type Interceptor interface {
	Handle(w http.ResponseWriter, r *http.Request, next http.Handler)
}

var _ Interceptor = (*Gate)(nil)

// GateOption configures a Gate.
type GateOption func(*gateConfig)

type gateConfig struct {
	logger       *slog.Logger
	introspector Introspector
	registerer   prometheus.Registerer
}

// WithLogger sets the logger used by the gate. Defaults to slog.Default().
func WithLogger(l *slog.Logger) GateOption {
	return func(c *gateConfig) { c.logger = l }
}

// WithIntrospector replaces the authagent.Client the gate would otherwise
// build from its Config.
func WithIntrospector(i Introspector) GateOption {
	return func(c *gateConfig) { c.introspector = i }
}

// WithMetrics registers decision and introspection collectors on reg.
func WithMetrics(reg prometheus.Registerer) GateOption {
	return func(c *gateConfig) { c.registerer = reg }
}

// Gate is the authentication decision pipeline for an MCP HTTP server. It
// holds no mutable state; one Gate serves any number of concurrent requests.
type Gate struct {
	cfg     Config
	public  map[string]struct{}
	authn   *IntrospectionAuthenticator
	log     *slog.Logger
	metrics *telemetry.Metrics

	unauthorized      *AuthenticationChallenge
	insufficientScope *AuthenticationChallenge
	unavailable       *AuthenticationChallenge
}

// NewGate builds a Gate from cfg. The config is copied and normalized; later
// changes to cfg have no effect on the gate.
func NewGate(cfg Config, opts ...GateOption) (*Gate, error) {
	cfg = cfg.Copy()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gc := &gateConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(gc)
	}

	if gc.introspector == nil {
		client, err := authagent.New(authagent.Config{
			BaseURL: cfg.AuthServerURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.IntrospectionTimeout,
		})
		if err != nil {
			return nil, err
		}
		gc.introspector = client
	}

	var metrics *telemetry.Metrics
	if gc.registerer != nil {
		m, err := telemetry.NewMetrics(gc.registerer)
		if err != nil {
			return nil, err
		}
		metrics = m
	}

	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}

	return &Gate{
		cfg:               cfg,
		public:            public,
		authn:             NewIntrospectionAuthenticator(timedIntrospector{next: gc.introspector, metrics: metrics}, cfg.RequiredScopes...),
		log:               slog.New(logctx.Handler{Handler: gc.logger.Handler()}),
		metrics:           metrics,
		unauthorized:      NewUnauthorizedChallenge(cfg),
		insufficientScope: NewInsufficientScopeChallenge(cfg),
		unavailable:       NewServiceUnavailableChallenge(),
	}, nil
}

// Config returns a copy of the normalized configuration in effect.
func (g *Gate) Config() Config { return g.cfg.Copy() }

// Middleware adapts the gate to the func(http.Handler) http.Handler shape
// used by most routers.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.Handle(w, r, next)
	})
}

// Handle runs the decision pipeline for one request. Public paths are
// forwarded untouched. Otherwise the bearer token is introspected and, when
// it is active and carries every required scope, next is called with the
// caller's Identity in the request context. Any other outcome is answered
// with a 401, 403 or 503 challenge and next is not called.
func (g *Gate) Handle(w http.ResponseWriter, r *http.Request, next http.Handler) {
	start := time.Now()
	ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})

	if _, ok := g.public[r.URL.Path]; ok {
		g.log.DebugContext(ctx, "auth.public")
		g.metrics.Decision(telemetry.OutcomePublic)
		next.ServeHTTP(w, r)
		return
	}

	tok, ok := bearerToken(r)
	if !ok {
		g.log.InfoContext(ctx, "auth.check.missing", slog.String("err", "missing or malformed bearer authorization header"))
		g.deny(w, g.unauthorized, telemetry.OutcomeUnauthorized)
		return
	}

	id, err := g.authn.Authenticate(ctx, tok)
	if err != nil {
		switch {
		case errors.Is(err, ErrServiceUnavailable):
			g.log.WarnContext(ctx, "auth.check.unavailable", slog.String("err", err.Error()), slog.Duration("dur", time.Since(start)))
			g.deny(w, g.unavailable, telemetry.OutcomeServiceUnavailable)
		case errors.Is(err, ErrInsufficientScope):
			g.log.InfoContext(ctx, "auth.check.scope", slog.String("err", err.Error()))
			g.deny(w, g.insufficientScope, telemetry.OutcomeForbidden)
		default:
			g.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
			g.deny(w, g.unauthorized, telemetry.OutcomeUnauthorized)
		}
		return
	}

	ctx = logctx.WithIdentityData(ctx, &logctx.IdentityData{Subject: id.Subject, ClientID: id.ClientID})
	ctx = WithIdentity(ctx, id)
	g.log.InfoContext(ctx, "auth.ok", slog.Duration("dur", time.Since(start)))
	g.metrics.Decision(telemetry.OutcomeForwarded)
	next.ServeHTTP(w, r.WithContext(ctx))
}

func (g *Gate) deny(w http.ResponseWriter, c *AuthenticationChallenge, outcome string) {
	g.metrics.Decision(outcome)
	c.Write(w)
}

// bearerToken extracts the credential following the literal "Bearer " prefix.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(authorizationHeader)
	if !strings.HasPrefix(h, bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(bearerPrefix):])
	return tok, tok != ""
}

// timedIntrospector observes introspection latency and result.
type timedIntrospector struct {
	next    Introspector
	metrics *telemetry.Metrics
}

func (t timedIntrospector) Introspect(ctx context.Context, token string) (*authagent.TokenStatus, error) {
	start := time.Now()
	st, err := t.next.Introspect(ctx, token)
	switch {
	case err != nil:
		t.metrics.Introspection(telemetry.ResultError, time.Since(start))
	case st != nil && st.Active:
		t.metrics.Introspection(telemetry.ResultActive, time.Since(start))
	default:
		t.metrics.Introspection(telemetry.ResultInactive, time.Since(start))
	}
	return st, err
}
