package auth

import (
	"net/http"
	"strings"

	"github.com/abgdnv/supermarket/internal/model"
	"github.com/google/uuid"
)

// Headers set by a trusted gateway in front of the service.
const (
	XUserId    = "X-User-Id"
	XUserEmail = "X-User-Email"
	XUserRole  = "X-User-Role"
)

// BearerMiddleware verifies the bearer token in the Authorization header and stores the
// caller identity in the request context. Invalid or missing tokens get a 401.
func BearerMiddleware(verifier Verifier, adminRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Bearer token is required", http.StatusUnauthorized)
				return
			}

			token, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			identity, err := IdentityFromToken(token, adminRole)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// HeaderMiddleware trusts the identity headers of an upstream gateway.
func HeaderMiddleware(adminRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(XUserId)
			if userID == "" {
				http.Error(w, "Unauthorized: Missing X-User-Id header", http.StatusUnauthorized)
				return
			}
			id, err := uuid.Parse(userID)
			if err != nil {
				http.Error(w, "Unauthorized: Invalid X-User-Id header", http.StatusUnauthorized)
				return
			}
			identity := model.Identity{
				ID:    id,
				Email: r.Header.Get(XUserEmail),
				Role:  ParseRole(r.Header.Get(XUserRole), adminRole),
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
