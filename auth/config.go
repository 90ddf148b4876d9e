package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ggoodman/mcp-authagent-go/authagent"
	"github.com/joeshaw/envdecode"
)

// DefaultRealm is advertised in challenges when no ServerID is configured.
const DefaultRealm = "mcp-server"

// Config describes how the gate authenticates requests. Defaults can be
// loaded via envdecode (see FromEnv). The gate keeps its own copy, so a
// Config may be reused or mutated by the caller after NewGate returns.
type Config struct {
	// AuthServerURL of the authorization service. ENV: AUTH_AGENT_SERVER
	AuthServerURL string `env:"AUTH_AGENT_SERVER,default=https://mcp.auth-agent.com"`
	// ServerID identifies this MCP server to the authorization service. It is
	// used as the challenge realm and to build the resource_metadata URL.
	// ENV: AUTH_AGENT_SERVER_ID
	ServerID string `env:"AUTH_AGENT_SERVER_ID"`
	// APIKey authenticates this server on introspection calls.
	// ENV: AUTH_AGENT_API_KEY
	APIKey string `env:"AUTH_AGENT_API_KEY"`
	// RequiredScopes must all be granted to the token.
	// ENV: AUTH_AGENT_REQUIRED_SCOPES (semicolon separated)
	RequiredScopes []string `env:"AUTH_AGENT_REQUIRED_SCOPES"`
	// PublicPaths bypass authentication on exact path match. Empty means
	// DefaultPublicPaths. ENV: AUTH_AGENT_PUBLIC_PATHS (semicolon separated)
	PublicPaths []string `env:"AUTH_AGENT_PUBLIC_PATHS,default=/health;/"`
	// IntrospectionTimeout bounds each introspection call. ENV: AUTH_AGENT_TIMEOUT
	IntrospectionTimeout time.Duration `env:"AUTH_AGENT_TIMEOUT,default=5s"`
}

// DefaultPublicPaths returns a fresh copy of the paths served without
// authentication when none are configured.
func DefaultPublicPaths() []string {
	return []string{"/health", "/"}
}

// FromEnv builds a Config from the environment using envdecode.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("auth: decode environment: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize fills defaults in place.
func (c *Config) Normalize() {
	c.AuthServerURL = strings.TrimRight(strings.TrimSpace(c.AuthServerURL), "/")
	if c.AuthServerURL == "" {
		c.AuthServerURL = authagent.DefaultBaseURL
	}
	c.ServerID = strings.TrimSpace(c.ServerID)
	c.RequiredScopes = nonEmpty(c.RequiredScopes)
	c.PublicPaths = nonEmpty(c.PublicPaths)
	if len(c.PublicPaths) == 0 {
		c.PublicPaths = DefaultPublicPaths()
	}
	if c.IntrospectionTimeout == 0 {
		c.IntrospectionTimeout = authagent.DefaultTimeout
	}
}

// Validate returns an error if required invariants are not met.
func (c Config) Validate() error {
	u, err := url.Parse(c.AuthServerURL)
	if err != nil {
		return fmt.Errorf("auth: invalid auth server URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("auth: auth server URL must be an absolute http(s) URL, got %q", c.AuthServerURL)
	}
	if c.IntrospectionTimeout < 0 {
		return errors.New("auth: introspection timeout must not be negative")
	}
	for _, s := range c.RequiredScopes {
		if strings.ContainsAny(s, " \t\n\"") {
			return fmt.Errorf("auth: invalid required scope %q", s)
		}
	}
	return nil
}

// Copy returns a deep copy safe for mutation by the caller.
func (c Config) Copy() Config {
	dup := c
	dup.RequiredScopes = append([]string(nil), c.RequiredScopes...)
	dup.PublicPaths = append([]string(nil), c.PublicPaths...)
	return dup
}

// Realm returns the realm advertised in WWW-Authenticate challenges.
func (c Config) Realm() string {
	if c.ServerID != "" {
		return c.ServerID
	}
	return DefaultRealm
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
