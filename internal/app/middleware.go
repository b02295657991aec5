package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const (
	userIdContextKey = contextKey("userId")
	loggerContextKey = contextKey("logger")
)

// UserIdHeader carries the authenticated user's id, set by the upstream
// gateway. Identity provisioning itself is out of scope for this service.
const UserIdHeader = "X-User-Id"

func (app *Application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")

				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *Application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := app.logger.With("request_id", middleware.GetReqID(r.Context()))

		ctx := context.WithValue(r.Context(), loggerContextKey, logger)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *Application) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userId := r.Header.Get(UserIdHeader)
		if userId == "" {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userIdContextKey, userId)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *Application) contextGetUserId(r *http.Request) string {
	userId, _ := r.Context().Value(userIdContextKey).(string)
	return userId
}

func (app *Application) contextGetLogger(r *http.Request) *slog.Logger {
	if logger, ok := r.Context().Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}

	return app.logger
}
