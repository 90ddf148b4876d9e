package logctx

import (
	"context"
	"log/slog"
)

// Handler decorates an slog.Handler with request and identity groups pulled
// from the record's context.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("user_agent", rd.UserAgent),
			slog.String("remote_addr", rd.RemoteAddr),
			slog.String("path", rd.Path),
		))
	}

	if id, ok := ctx.Value(identityDataKey{}).(*IdentityData); ok {
		r.AddAttrs(slog.Group("auth",
			slog.String("sub", id.Subject),
			slog.String("client_id", id.ClientID),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type requestDataKey struct{}

type RequestData struct {
	RequestID  string
	Method     string
	UserAgent  string
	RemoteAddr string
	Path       string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

type identityDataKey struct{}

type IdentityData struct {
	Subject  string
	ClientID string
}

func WithIdentityData(ctx context.Context, data *IdentityData) context.Context {
	return context.WithValue(ctx, identityDataKey{}, data)
}
