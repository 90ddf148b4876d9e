package authagent

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the hosted auth-agent authorization service.
	DefaultBaseURL = "https://mcp.auth-agent.com"
	// DefaultTimeout bounds every outbound call.
	DefaultTimeout = 5 * time.Second
)

// Config for the authorization service client.
type Config struct {
	// BaseURL of the authorization service. Default: DefaultBaseURL.
	BaseURL string
	// APIKey identifies this resource server to the authorization service.
	// It is sent as the bearer credential on introspection calls.
	APIKey string
	// Timeout for each call. Default: DefaultTimeout.
	Timeout time.Duration
}

// Validate checks that the base URL is absolute.
func (c Config) Validate() error {
	u, err := url.Parse(c.GetBaseURL())
	if err != nil {
		return fmt.Errorf("authagent: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("authagent: base URL must be http or https")
	}
	if u.Host == "" {
		return errors.New("authagent: base URL must include a host")
	}
	if c.Timeout < 0 {
		return errors.New("authagent: timeout must not be negative")
	}
	return nil
}

// GetBaseURL returns the base URL without a trailing slash.
func (c Config) GetBaseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

// GetTimeout returns the per-call timeout.
func (c Config) GetTimeout() time.Duration {
	if c.Timeout == 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
