package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Middleware resolves a bearer credential into a wallet address on the
// request context. Requests without a resolvable address continue as
// anonymous; endpoints that require identity reject them with 401 at the
// handler, not here.
func Middleware(validator *JWTValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			if !validator.IsConfigured() {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			address, err := validator.ResolveAddress(token)
			if err != nil {
				// Invalid credential degrades to anonymous; the login prompt
				// is the product's recovery path, not a 500.
				logger.Debug("Failed to resolve bearer credential", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if address != "" {
				r = r.WithContext(WithWalletAddress(r.Context(), address))
			}
			next.ServeHTTP(w, r)
		})
	}
}
