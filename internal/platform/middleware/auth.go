package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "lendo/pkg/domain-errors"
	"lendo/pkg/platform/httputil"
	"lendo/pkg/requestcontext"
)

// TokenValidator validates reviewer bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (subject string, err error)
}

// RequireReviewer guards the review surface. Requests without a valid Bearer
// token never reach the handlers.
func RequireReviewer(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			subject, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "reviewer auth rejected",
					"path", r.URL.Path,
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
				return
			}

			ctx := requestcontext.WithReviewerID(r.Context(), subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
