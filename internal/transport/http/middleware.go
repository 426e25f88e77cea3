package httptransport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"ustbills/internal/domain"
	"ustbills/pkg/requestcontext"
)

// RequestID assigns every request a uuid and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestTime pins one "now" for the whole request so every timestamp a
// single operation writes agrees.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity extracts the caller principal from a JWT bearer token (HS256, sub
// claim). A missing or invalid token yields the anonymous principal rather
// than a rejection; the guard decides what anonymity may do.
func Identity(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := domain.Anonymous

			header := r.Header.Get("Authorization")
			if raw, ok := strings.CutPrefix(header, "Bearer "); ok {
				token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, jwt.ErrSignatureInvalid
					}
					return signingKey, nil
				})
				if err == nil && token.Valid {
					if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
						principal = domain.Principal(sub)
					}
				} else {
					logger.WarnContext(r.Context(), "invalid bearer token, treating caller as anonymous",
						"error", err, "request_id", requestcontext.RequestID(r.Context()))
				}
			}

			ctx := requestcontext.WithCaller(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientInfo logs browser and OS per request for the KYC audit trail.
func ClientInfo(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua := useragent.New(r.Header.Get("User-Agent"))
			browser, version := ua.Browser()
			logger.DebugContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", requestcontext.RequestID(r.Context()),
				"os", ua.OS(),
				"browser", browser,
				"browser_version", version,
				"mobile", ua.Mobile(),
				"bot", ua.Bot(),
			)
			next.ServeHTTP(w, r)
		})
	}
}
