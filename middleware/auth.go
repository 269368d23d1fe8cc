package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/nufflezone/tournament-registry/models"
)

type contextKey string

const identityContextKey contextKey = "identity"

const (
	jwtClaimUserID = "user_id"
	jwtClaimEmail  = "email"
)

// AuthMiddleware validates bearer tokens and places the caller's identity in
// the request context.
type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// Authenticate rejects requests without a valid bearer token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.identityFromRequest(r)
		if err != nil || identity == nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthenticateOptional attaches an identity when a valid token is present and
// lets anonymous requests through. An invalid token is still rejected so a
// client never silently loses its identity.
func (m *AuthMiddleware) AuthenticateOptional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.identityFromRequest(r)
		if err != nil || identity == nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) identityFromRequest(r *http.Request) (*models.Identity, error) {
	header := r.Header.Get("Authorization")
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	rawID, ok := claims[jwtClaimUserID].(string)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, jwt.ErrTokenInvalidClaims
	}

	email, _ := claims[jwtClaimEmail].(string)

	return &models.Identity{UserID: userID, Email: email}, nil
}

// GetIdentity returns the authenticated caller, or nil for anonymous requests.
func GetIdentity(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(identityContextKey).(*models.Identity)
	return identity
}

// WithIdentity is used by tests to simulate an authenticated request.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
