package http

import (
	"cmp"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/court-rotation/internal/logging"
)

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request logger if one was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	return cmp.Or(logger, slog.Default())
}

// handlerLogger tags the request logger, or fallback when the request has
// none, with the handler and operation names.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := cmp.Or(LoggerFromContext(ctx), fallback, slog.Default()).With("handler", handlerName)
	if operation != "" {
		logger = logger.With("operation", operation)
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}

// pathID returns the trimmed path variable name, or false when it is blank.
func pathID(r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)[name])
	return id, id != ""
}

// pathIndex parses a non-negative integer path variable.
func pathIndex(r *http.Request, name string) (int, bool) {
	index, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// RouteTemplate returns the matched mux route template, or the raw path when
// no route matched.
func RouteTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
