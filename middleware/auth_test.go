package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/nufflezone/tournament-registry/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims(userID uuid.UUID) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": userID.String(),
		"email":   "coach@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
}

func identityEcho(captured **models.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_ValidToken(t *testing.T) {
	mw := NewAuthMiddleware(testSecret)
	userID := uuid.New()

	var identity *models.Identity
	handler := mw.Authenticate(identityEcho(&identity))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(userID)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if identity == nil {
		t.Fatal("identity not set in context")
	}
	if identity.UserID != userID {
		t.Errorf("user id = %s, want %s", identity.UserID, userID)
	}
	if identity.Email != "coach@example.com" {
		t.Errorf("email = %q", identity.Email)
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	mw := NewAuthMiddleware(testSecret)
	userID := uuid.New()

	expired := validClaims(userID)
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	badID := validClaims(userID)
	badID["user_id"] = "not-a-uuid"

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer garbage"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", validClaims(userID))},
		{"expired", "Bearer " + signToken(t, testSecret, expired)},
		{"bad user id claim", "Bearer " + signToken(t, testSecret, badID)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var identity *models.Identity
			handler := mw.Authenticate(identityEcho(&identity))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if identity != nil {
				t.Error("handler should not run with an identity")
			}
		})
	}
}

func TestAuthenticateOptional(t *testing.T) {
	mw := NewAuthMiddleware(testSecret)
	userID := uuid.New()

	t.Run("anonymous passes through", func(t *testing.T) {
		var identity *models.Identity
		handler := mw.AuthenticateOptional(identityEcho(&identity))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if identity != nil {
			t.Error("anonymous request should have no identity")
		}
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		var identity *models.Identity
		handler := mw.AuthenticateOptional(identityEcho(&identity))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(userID)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if identity == nil || identity.UserID != userID {
			t.Error("identity not attached for valid token")
		}
	})

	t.Run("invalid token still rejected", func(t *testing.T) {
		var identity *models.Identity
		handler := mw.AuthenticateOptional(identityEcho(&identity))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestGetIdentity_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetIdentity(req.Context()) != nil {
		t.Error("fresh context should have no identity")
	}
}
