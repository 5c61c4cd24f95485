package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("auth")

// AuthService issues and validates editor tokens (HS256).
type AuthService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewAuthService(secret, issuer string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

type EditorClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type AuthResult struct {
	EditorID string
	Role     string
}

// IssueToken mints a token for an editor identity.
func (s *AuthService) IssueToken(editorID, role string) (string, error) {
	now := time.Now()
	claims := EditorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   editorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// AuthToken validates a bearer token and returns the editor identity.
func (s *AuthService) AuthToken(ctx context.Context, token string) (*AuthResult, error) {
	_, span := tracer.Start(ctx, "Auth.Service.AuthToken")
	defer span.End()

	var claims EditorClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		span.RecordError(errors.Wrap(err, "token validation failed"))
		return nil, err
	}
	if !parsed.Valid {
		err := fmt.Errorf("invalid token")
		span.RecordError(err)
		return nil, err
	}
	if claims.Subject == "" {
		err := fmt.Errorf("token has no subject")
		span.RecordError(err)
		return nil, err
	}

	return &AuthResult{EditorID: claims.Subject, Role: claims.Role}, nil
}
