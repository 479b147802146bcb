package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/dupatihari/azure-rag-demo/services"
	"github.com/dupatihari/azure-rag-demo/utils"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// APIKeyHeader carries the shared secret
const APIKeyHeader = "x-api-key"

// Authenticator identifies the caller of a request
type Authenticator interface {
	Authenticate(r *http.Request) (*Principal, error)
}

// NewAuthenticator picks an authenticator from the configured secrets.
// The API key wins when both are set. It returns nil when neither is set.
func NewAuthenticator(apiKey, jwtSecret, jwtIssuer string) Authenticator {
	switch {
	case apiKey != "":
		return NewAPIKeyAuthenticator(apiKey)
	case jwtSecret != "":
		return NewJWTAuthenticator([]byte(jwtSecret), jwtIssuer)
	default:
		return nil
	}
}

// APIKeyAuthenticator compares the x-api-key header against one secret
type APIKeyAuthenticator struct {
	key []byte
}

// NewAPIKeyAuthenticator creates an authenticator for key
func NewAPIKeyAuthenticator(key string) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{key: []byte(key)}
}

// Authenticate checks the header in constant time
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	got := r.Header.Get(APIKeyHeader)
	if got == "" {
		return nil, services.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(got), a.key) != 1 {
		return nil, services.ErrInvalidAPIKey
	}
	return &Principal{Subject: "api-key", Method: "api_key"}, nil
}

// JWTAuthenticator accepts HS256 bearer tokens signed with a shared secret
type JWTAuthenticator struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewJWTAuthenticator creates an authenticator. An empty issuer is not checked.
func NewJWTAuthenticator(secret []byte, issuer string) *JWTAuthenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTAuthenticator{
		secret: secret,
		issuer: issuer,
		parser: jwt.NewParser(opts...),
	}
}

// Authenticate validates the Authorization bearer token
func (a *JWTAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, services.ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	_, err := a.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrInvalidToken, err)
	}

	return &Principal{Subject: claims.Subject, Method: "jwt"}, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// AuthMiddleware rejects requests the Authenticator does not accept
type AuthMiddleware struct {
	auth   Authenticator
	logger *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. A nil Authenticator lets every request through.
func NewAuthMiddleware(auth Authenticator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		auth:   auth,
		logger: logger,
	}
}

// RequireAuth authenticates the request and stores the Principal in its context
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	if m.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		principal, err := m.auth.Authenticate(r)
		if err != nil {
			m.logger.Warn("authentication failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			msg := "Invalid credentials"
			if err == services.ErrUnauthorized {
				msg = "Authentication required"
			}
			_ = utils.WriteUnauthorized(w, msg)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("subject", principal.Subject),
			zap.String("method", principal.Method))

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}
