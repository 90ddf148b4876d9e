package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ggoodman/mcp-authagent-go/authagent"
	"github.com/ggoodman/mcp-authagent-go/authagent/authagenttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with args and returns stdout and the exit code.
func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	root := newRootCmd("1.2.3-test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	code := execute(root, append([]string{"--env-file="}, args...))
	if errOut.Len() > 0 {
		t.Log(errOut.String())
	}
	return out.String(), code
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd("dev")

	assert.Equal(t, "mcpgate", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)
	assert.True(t, root.SilenceUsage)

	found := map[string]bool{}
	for _, c := range root.Commands() {
		found[c.Name()] = true
	}
	for _, want := range []string{"serve", "introspect", "revoke", "metadata"} {
		assert.True(t, found[want], "missing subcommand %q", want)
	}
}

func TestVersion(t *testing.T) {
	out, code := run(t, "--version")
	require.Equal(t, ExitCodeSuccess, code)
	assert.Equal(t, "mcpgate version 1.2.3-test\n", out)
}

func TestIntrospectCommand(t *testing.T) {
	srv := authagenttest.NewServer()
	defer srv.Close()
	srv.SetToken("tok", authagent.TokenStatus{Active: true, Subject: "a@b.com", Scope: "files:read"})

	out, code := run(t, "introspect", "tok", "--server", srv.URL, "--api-key", "sk_cli")
	require.Equal(t, ExitCodeSuccess, code)

	var st authagent.TokenStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.Active)
	assert.Equal(t, "a@b.com", st.Subject)
	assert.Equal(t, "files:read", st.Scope)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer sk_cli", calls[0].Authorization)
}

func TestIntrospectCommand_RequiresToken(t *testing.T) {
	_, code := run(t, "introspect")
	assert.Equal(t, ExitCodeError, code)
}

func TestRevokeCommand(t *testing.T) {
	srv := authagenttest.NewServer()
	defer srv.Close()
	srv.SetToken("tok", authagent.TokenStatus{Active: true})

	out, code := run(t, "revoke", "tok", "--server", srv.URL, "--client-id", "cid", "--client-secret", "cs")
	require.Equal(t, ExitCodeSuccess, code)
	assert.JSONEq(t, `{"revoked":true}`, out)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "cid", calls[0].Body["client_id"])
	assert.Equal(t, "cs", calls[0].Body["client_secret"])

	out, code = run(t, "introspect", "tok", "--server", srv.URL)
	require.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, out, `"active": false`)
}

func TestRevokeCommand_Rejected(t *testing.T) {
	srv := authagenttest.NewServer()
	defer srv.Close()
	srv.SetRevokeStatus(http.StatusBadRequest)

	out, code := run(t, "revoke", "tok", "--server", srv.URL)
	assert.Equal(t, ExitCodeError, code)
	assert.JSONEq(t, `{"revoked":false}`, out)
}

func TestMetadataCommand(t *testing.T) {
	srv := authagenttest.NewServer()
	defer srv.Close()
	srv.SetMetadata("srv1", authagent.ResourceMetadata{
		Resource:             "https://files.example/mcp",
		AuthorizationServers: []string{srv.URL},
		ScopesSupported:      []string{"files:read"},
	})

	t.Run("argument", func(t *testing.T) {
		out, code := run(t, "metadata", "srv1", "--server", srv.URL)
		require.Equal(t, ExitCodeSuccess, code)
		var md authagent.ResourceMetadata
		require.NoError(t, json.Unmarshal([]byte(out), &md))
		assert.Equal(t, "https://files.example/mcp", md.Resource)
		assert.Equal(t, []string{"files:read"}, md.ScopesSupported)
	})

	t.Run("configured server id", func(t *testing.T) {
		out, code := run(t, "metadata", "--server", srv.URL, "--server-id", "srv1")
		require.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, out, "https://files.example/mcp")
	})

	t.Run("not found", func(t *testing.T) {
		_, code := run(t, "metadata", "missing", "--server", srv.URL)
		assert.Equal(t, ExitCodeError, code)
	})
}

func TestUnavailableExitCode(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	_, code := run(t, "introspect", "tok", "--server", dead.URL)
	assert.Equal(t, ExitCodeUnavailable, code)
}

func TestLoadConfig_EnvFileAndFlags(t *testing.T) {
	srv := authagenttest.NewServer()
	defer srv.Close()
	srv.SetToken("tok", authagent.TokenStatus{Active: true})

	for _, k := range []string{"AUTH_AGENT_SERVER", "AUTH_AGENT_API_KEY"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("AUTH_AGENT_SERVER="+srv.URL+"\nAUTH_AGENT_API_KEY=sk_env\n"), 0o600))

	root := newRootCmd("dev")
	root.SetOut(&bytes.Buffer{})
	code := execute(root, []string{"--env-file", envFile, "introspect", "tok"})
	require.Equal(t, ExitCodeSuccess, code)

	root = newRootCmd("dev")
	root.SetOut(&bytes.Buffer{})
	code = execute(root, []string{"--env-file", envFile, "--api-key", "sk_flag", "introspect", "tok"})
	require.Equal(t, ExitCodeSuccess, code)

	calls := srv.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Bearer sk_env", calls[0].Authorization)
	assert.Equal(t, "Bearer sk_flag", calls[1].Authorization)
}

func TestLoadConfig_InvalidServer(t *testing.T) {
	_, code := run(t, "introspect", "tok", "--server", "not-a-url")
	assert.Equal(t, ExitCodeError, code)
}
