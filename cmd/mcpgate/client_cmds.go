package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newIntrospectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "introspect <token>",
		Short: "Introspect a bearer token and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.client(cmd)
			if err != nil {
				return err
			}
			st, err := c.Introspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(st.Raw) > 0 {
				return printJSON(cmd.OutOrStdout(), st.Raw)
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

func newRevokeCmd(g *globalFlags) *cobra.Command {
	var clientID, clientSecret string
	cmd := &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.client(cmd)
			if err != nil {
				return err
			}
			ok, err := c.Revoke(cmd.Context(), args[0], clientID, clientSecret)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), map[string]bool{"revoked": ok}); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("token was not revoked")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client ID")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth client secret")
	return cmd
}

func newMetadataCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata [server-id]",
		Short: "Fetch protected resource metadata from the authorization service",
		Long: `Fetch the protected resource metadata document. Without an argument the
configured server ID is used; if none is configured the service-wide document
is returned.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := g.client(cmd)
			if err != nil {
				return err
			}
			serverID := cfg.ServerID
			if len(args) == 1 {
				serverID = args[0]
			}
			md, err := c.GetServerMetadata(cmd.Context(), serverID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), md)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
