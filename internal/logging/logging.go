package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Field keys shared across components so cmake, work queue and dist logs
// line up when filtered.
const (
	KeyComponent  = "component"
	KeyExtension  = "extension"
	KeyTool       = "tool"
	KeyDurationMs = "durationMs"
	KeyError      = "error"
)

type ctxKey struct{}

// root is the installed handler. Component loggers exist before flags and
// config are parsed, so records resolve the handler at log time instead of
// binding one at logger creation. Stored through a pointer: atomic.Value
// would panic when Init swaps the boot text handler for a json one.
var root atomic.Pointer[slog.Handler]

func storeRoot(h slog.Handler) {
	root.Store(&h)
}

// rootHandler defers to whatever handler Init installed, replaying the
// WithAttrs and WithGroup calls made against it in call order.
type rootHandler struct {
	wrap func(slog.Handler) slog.Handler
}

func (h rootHandler) resolve() slog.Handler {
	base := *root.Load()
	if h.wrap == nil {
		return base
	}
	return h.wrap(base)
}

func (h rootHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.resolve().Enabled(ctx, level)
}

func (h rootHandler) Handle(ctx context.Context, rec slog.Record) error {
	return h.resolve().Handle(ctx, rec)
}

func (h rootHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.chain(func(base slog.Handler) slog.Handler { return base.WithAttrs(attrs) })
}

func (h rootHandler) WithGroup(name string) slog.Handler {
	return h.chain(func(base slog.Handler) slog.Handler { return base.WithGroup(name) })
}

func (h rootHandler) chain(next func(slog.Handler) slog.Handler) slog.Handler {
	prev := h.wrap
	if prev == nil {
		return rootHandler{wrap: next}
	}
	return rootHandler{wrap: func(base slog.Handler) slog.Handler { return next(prev(base)) }}
}

// Logs go to stderr so stdout stays machine readable for locate paths and
// JSON reports.
var defaultLogger = slog.New(rootHandler{})

func init() {
	storeRoot(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(defaultLogger)
}

// Init installs the configured handler. Call once after config is loaded;
// loggers handed out before that pick it up automatically.
// format: "json" or "text" (default "text")
// level: "debug", "info", "warn", "error" (default "info")
// output: writer to log to (nil = os.Stderr)
func Init(format, level string, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		storeRoot(slog.NewJSONHandler(output, opts))
	} else {
		storeRoot(slog.NewTextHandler(output, opts))
	}
	slog.SetDefault(defaultLogger)
}

// L returns a logger tagged with the given component name.
func L(component string) *slog.Logger {
	return defaultLogger.With(slog.String(KeyComponent, component))
}

// WithExtension attaches the extension name, correlating the configure,
// build and stage steps of one extension.
func WithExtension(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(slog.String(KeyExtension, name))
}

// NewContext returns a context carrying the given logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts the logger from ctx, falling back to the default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
