package auth

import (
	"context"

	"yoco/stocksync/internal/common"
)

type contextKey string

var adminClaimsKey contextKey = "admin_claims"
var requestIDKey contextKey = "request_id"

func SetClaims(ctx context.Context, claims *common.AdminClaims) context.Context {
	return context.WithValue(ctx, adminClaimsKey, claims)
}

// GetClaims returns the validated token claims, or nil for anonymous requests
func GetClaims(ctx context.Context) *common.AdminClaims {
	if claims, ok := ctx.Value(adminClaimsKey).(*common.AdminClaims); ok {
		return claims
	}
	return nil
}

func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Subject names the caller for logs; "anonymous" without claims
func Subject(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.Subject
	}
	return "anonymous"
}
