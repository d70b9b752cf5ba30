// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/internal/platform/ctxutil"
	"github.com/taibuivan/truyen/internal/platform/respond"
	"github.com/taibuivan/truyen/internal/platform/sec"
)

// TokenVerifier verifies bearer tokens. [*sec.TokenService] implements it.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

var (
	errAuthRequired     = apperr.Unauthorized("Authentication required")
	errAuthFormat       = apperr.Unauthorized("Invalid authorization format")
	errTokenRejected    = apperr.Unauthorized("Invalid or expired token")
	errRoleInsufficient = apperr.Forbidden("Insufficient permissions")
)

/*
Authenticate verifies an optional bearer token.

Requests without an Authorization header continue as anonymous. A header that
is present but malformed or carries a rejected token ends the request with 401,
so a client never silently loses its identity.

Parameters:
  - verifier: TokenVerifier
*/
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// 1. Scheme
			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
				respond.Error(writer, request, errAuthFormat)
				return
			}

			// 2. Signature, issuer and expiry
			claims, err := verifier.VerifyToken(token)
			if err != nil {
				respond.Error(writer, request, errTokenRejected.WithCause(err))
				return
			}

			// 3. Expose the caller to handlers and to the access log
			if meta := metaFrom(request.Context()); meta != nil {
				meta.userID = claims.UserID
			}
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithAuthUser(request.Context(), claims)))
		})
	}
}

// RequireAuth rejects anonymous requests. Register it after [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return RequireRole(sec.RoleMember)(next)
}

// RequireRole rejects anonymous requests with 401 and callers ranked below
// role with 403. Register it after [Authenticate].
func RequireRole(role sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := GetUser(request.Context())
			switch {
			case claims == nil:
				respond.Error(writer, request, errAuthRequired)
			case !sec.UserRole(claims.Role).AtLeast(role):
				respond.Error(writer, request, errRoleInsufficient)
			default:
				next.ServeHTTP(writer, request)
			}
		})
	}
}

// GetUser returns the caller's claims, or nil for anonymous requests.
func GetUser(ctx context.Context) *sec.AuthClaims {
	return ctxutil.GetAuthUser(ctx)
}
