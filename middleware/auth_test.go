package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler(t *testing.T, wantPrincipal bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantPrincipal {
			assert.NotNil(t, GetPrincipalFromContext(r.Context()))
		}
		w.WriteHeader(http.StatusOK)
	})
}

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims, method jwt.SigningMethod) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestNewAuthenticator(t *testing.T) {
	assert.Nil(t, NewAuthenticator("", "", ""))
	assert.IsType(t, &APIKeyAuthenticator{}, NewAuthenticator("k", "s", ""))
	assert.IsType(t, &JWTAuthenticator{}, NewAuthenticator("", "s", "iss"))
}

func TestRequireAuth_APIKey(t *testing.T) {
	mw := NewAuthMiddleware(NewAPIKeyAuthenticator("s3cret"), zap.NewNop())

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid key", header: "s3cret", wantStatus: http.StatusOK},
		{name: "missing key", header: "", wantStatus: http.StatusUnauthorized, wantBody: `{"error":"Authentication required"}`},
		{name: "wrong key", header: "guess", wantStatus: http.StatusUnauthorized, wantBody: `{"error":"Invalid credentials"}`},
		{name: "prefix of key", header: "s3c", wantStatus: http.StatusUnauthorized, wantBody: `{"error":"Invalid credentials"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			w := httptest.NewRecorder()

			mw.RequireAuth(okHandler(t, true)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestRequireAuth_JWT(t *testing.T) {
	const secret = "jwt-secret"
	mw := NewAuthMiddleware(NewJWTAuthenticator([]byte(secret), "campaign-insights"), zap.NewNop())

	valid := jwt.RegisteredClaims{
		Subject:   "analyst-7",
		Issuer:    "campaign-insights",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	tests := []struct {
		name       string
		auth       string
		wantStatus int
	}{
		{name: "valid token", auth: "Bearer " + signToken(t, secret, valid, jwt.SigningMethodHS256), wantStatus: http.StatusOK},
		{name: "lowercase scheme", auth: "bearer " + signToken(t, secret, valid, jwt.SigningMethodHS256), wantStatus: http.StatusOK},
		{name: "missing header", auth: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", auth: "Bearer " + signToken(t, "other", valid, jwt.SigningMethodHS256), wantStatus: http.StatusUnauthorized},
		{name: "wrong algorithm", auth: "Bearer " + signToken(t, secret, valid, jwt.SigningMethodHS512), wantStatus: http.StatusUnauthorized},
		{
			name: "expired",
			auth: "Bearer " + signToken(t, secret, jwt.RegisteredClaims{
				Subject: "a", Issuer: "campaign-insights",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			}, jwt.SigningMethodHS256),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "no expiry",
			auth: "Bearer " + signToken(t, secret, jwt.RegisteredClaims{
				Subject: "a", Issuer: "campaign-insights",
			}, jwt.SigningMethodHS256),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong issuer",
			auth: "Bearer " + signToken(t, secret, jwt.RegisteredClaims{
				Subject: "a", Issuer: "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}, jwt.SigningMethodHS256),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()

			mw.RequireAuth(okHandler(t, true)).ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestJWTAuthenticator_Principal(t *testing.T) {
	auth := NewJWTAuthenticator([]byte("k"), "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "k", jwt.RegisteredClaims{
		Subject:   "analyst-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, jwt.SigningMethodHS256))

	p, err := auth.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, &Principal{Subject: "analyst-7", Method: "jwt"}, p)
}

func TestRequireAuth_Open(t *testing.T) {
	mw := NewAuthMiddleware(nil, zap.NewNop())

	w := httptest.NewRecorder()
	mw.RequireAuth(okHandler(t, false)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
