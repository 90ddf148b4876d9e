package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/mcp-authagent-go/auth"
	"github.com/go-chi/chi/v5"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const (
	defaultAddr     = ":8080"
	shutdownTimeout = 10 * time.Second
)

var jsonMediaType = contenttype.NewMediaType("application/json")

type serveFlags struct {
	addr   string
	scopes []string
	public []string
	debug  bool
}

func newServeCmd(g *globalFlags, version string) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an MCP endpoint behind the authentication gate",
		Long: `Starts an HTTP server exposing:

  /health, /     public liveness and service description
  /mcp           MCP streamable HTTP endpoint (authenticated)
  /whoami        identity of the authenticated caller
  /metrics       Prometheus metrics (public only if listed in public paths)

Every non-public request must carry an active bearer token holding all
required scopes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("scopes") {
				cfg.RequiredScopes = f.scopes
			}
			if cmd.Flags().Changed("public-paths") {
				cfg.PublicPaths = f.public
			}
			addr := f.addr
			if !cmd.Flags().Changed("addr") {
				if env := os.Getenv("MCPGATE_ADDR"); env != "" {
					addr = env
				}
			}

			level := slog.LevelInfo
			if f.debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, addr, cfg, version, logger)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", defaultAddr, "Listen address (MCPGATE_ADDR)")
	cmd.Flags().StringSliceVar(&f.scopes, "scopes", nil, "Required scopes (AUTH_AGENT_REQUIRED_SCOPES)")
	cmd.Flags().StringSliceVar(&f.public, "public-paths", nil, "Paths served without authentication (AUTH_AGENT_PUBLIC_PATHS)")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "Enable debug logging")
	return cmd
}

func runServe(ctx context.Context, addr string, cfg auth.Config, version string, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gate, err := auth.NewGate(cfg, auth.WithLogger(logger), auth.WithMetrics(reg))
	if err != nil {
		return fmt.Errorf("failed to initialize gate: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(gate, reg, version, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "http.listen", slog.String("addr", addr), slog.String("auth_server", gate.Config().AuthServerURL))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("http.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter wires the public, MCP and diagnostic routes behind gate.
func newRouter(gate *auth.Gate, gatherer prometheus.Gatherer, version string, logger *slog.Logger) http.Handler {
	mcpServer := sdk.NewServer(&sdk.Implementation{Name: "mcpgate", Version: version}, nil)
	mcpHandler := sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server { return mcpServer }, nil)

	r := chi.NewRouter()
	r.Use(gate.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"name":    "mcpgate",
			"version": version,
			"mcp":     "/mcp",
		})
	})
	r.Get("/whoami", handleWhoami)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Handle("/mcp", requireJSONPost(mcpHandler, logger))
	return r
}

type whoamiResponse struct {
	Subject  string   `json:"sub"`
	ClientID string   `json:"client_id,omitempty"`
	Audience string   `json:"aud,omitempty"`
	Scopes   []string `json:"scopes"`
}

func handleWhoami(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrorCodeUnauthorized})
		return
	}
	scopes := id.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	writeJSON(w, http.StatusOK, whoamiResponse{
		Subject:  id.Subject,
		ClientID: id.ClientID,
		Audience: id.Audience,
		Scopes:   scopes,
	})
}

// requireJSONPost rejects POST bodies that are not application/json before
// they reach the MCP transport.
func requireJSONPost(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			ctype, err := contenttype.GetMediaType(r)
			if err != nil || !ctype.Matches(jsonMediaType) {
				logger.WarnContext(r.Context(), "content_type.unsupported", slog.String("content_type", r.Header.Get("Content-Type")))
				writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "content-type must be application/json"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
