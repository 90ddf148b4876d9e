package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ggoodman/mcp-authagent-go/auth"
	"github.com/ggoodman/mcp-authagent-go/authagent"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeUnavailable indicates the authorization service could not be reached.
	ExitCodeUnavailable = 3
)

// globalFlags override values loaded from the environment.
type globalFlags struct {
	envFile  string
	server   string
	serverID string
	apiKey   string
	timeout  time.Duration
}

func newRootCmd(version string) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "mcpgate",
		Short: "Protect MCP servers with auth-agent token introspection",
		Long: `mcpgate authenticates MCP requests by introspecting their bearer token
with the auth-agent authorization service and enforcing required scopes.

Configuration is read from AUTH_AGENT_* environment variables, optionally
loaded from a .env file, and may be overridden with flags.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "mcpgate version %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&g.envFile, "env-file", ".env", "Load environment variables from this file if it exists")
	pf.StringVar(&g.server, "server", "", "Authorization service URL (AUTH_AGENT_SERVER)")
	pf.StringVar(&g.serverID, "server-id", "", "Server ID registered with the authorization service (AUTH_AGENT_SERVER_ID)")
	pf.StringVar(&g.apiKey, "api-key", "", "API key used for introspection (AUTH_AGENT_API_KEY)")
	pf.DurationVar(&g.timeout, "timeout", 0, "Timeout for each authorization service call (AUTH_AGENT_TIMEOUT)")

	root.AddCommand(
		newServeCmd(g, version),
		newIntrospectCmd(g),
		newRevokeCmd(g),
		newMetadataCmd(g),
	)
	return root
}

// execute runs root with args and maps the outcome to an exit code.
func execute(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return exitCode(err)
	}
	return ExitCodeSuccess
}

func exitCode(err error) int {
	if errors.Is(err, authagent.ErrUnavailable) {
		return ExitCodeUnavailable
	}
	return ExitCodeError
}

// loadConfig reads the env file, decodes the environment and applies any
// flags the user set explicitly.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (auth.Config, error) {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return auth.Config{}, fmt.Errorf("load %s: %w", g.envFile, err)
		}
	}
	cfg, err := auth.FromEnv()
	if err != nil {
		return auth.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.AuthServerURL = g.server
	}
	if flags.Changed("server-id") {
		cfg.ServerID = g.serverID
	}
	if flags.Changed("api-key") {
		cfg.APIKey = g.apiKey
	}
	if flags.Changed("timeout") {
		cfg.IntrospectionTimeout = g.timeout
	}
	cfg.Normalize()
	return cfg, cfg.Validate()
}

func (g *globalFlags) client(cmd *cobra.Command) (*authagent.Client, auth.Config, error) {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return nil, auth.Config{}, err
	}
	c, err := authagent.New(authagent.Config{
		BaseURL: cfg.AuthServerURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.IntrospectionTimeout,
	})
	return c, cfg, err
}
