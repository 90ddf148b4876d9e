package logctx

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerAddsGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(Handler{Handler: slog.NewTextHandler(&buf, nil)})

	ctx := WithRequestData(context.Background(), &RequestData{RequestID: "r-1", Method: "POST", Path: "/mcp"})
	ctx = WithIdentityData(ctx, &IdentityData{Subject: "a@b.com", ClientID: "cli"})
	log.InfoContext(ctx, "auth.ok")

	out := buf.String()
	for _, want := range []string{"req.id=r-1", "req.method=POST", "req.path=/mcp", "auth.sub=a@b.com", "auth.client_id=cli"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestHandlerWithoutContextData(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(Handler{Handler: slog.NewTextHandler(&buf, nil)}).With(slog.String("component", "gate"))
	log.InfoContext(context.Background(), "auth.public")

	out := buf.String()
	if strings.Contains(out, "req.") || strings.Contains(out, "auth.sub") {
		t.Fatalf("unexpected groups in %q", out)
	}
	if !strings.Contains(out, "component=gate") {
		t.Fatalf("WithAttrs lost: %q", out)
	}
}
