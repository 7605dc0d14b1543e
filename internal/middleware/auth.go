package middleware

import (
	"net/http"
	"strings"

	"yoco/stocksync/internal/auth"
	"yoco/stocksync/internal/common"
	"yoco/stocksync/internal/constants"
)

// AuthMiddleware requires a valid bearer token signed by signer
func AuthMiddleware(signer *common.TokenSigner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "Unauthorized. Missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := signer.Validate(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
			if err != nil {
				http.Error(w, "Unauthorized. Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := auth.SetClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose token role does not allow min
func RequireRole(min constants.APIRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.GetClaims(r.Context())
			if claims == nil || !claims.Role.Allows(min) {
				http.Error(w, "Forbidden. Need "+min.String()+" role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
