package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/palimpsest-cms/palimpsest/internal/domain"
	"github.com/palimpsest-cms/palimpsest/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// IdentifyEditor annotates the request context with the editor identity when
// a valid bearer token is present. It never rejects: routes that need an
// identity enforce it with RequireEditor.
func (s *AuthMiddleware) IdentifyEditor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyEditor")
		defer span.End()

		authHeader := c.Request().Header.Get("authorization")

		if authHeader != "" {
			split := strings.Split(authHeader, " ")
			if len(split) != 2 {
				span.RecordError(fmt.Errorf("invalid authentication header"))
				goto skipCheckAuthorization
			}

			{
				authType, token := split[0], split[1]
				if authType != "Bearer" {
					span.RecordError(fmt.Errorf("only Bearer is acceptable"))
					goto skipCheckAuthorization
				}

				result, err := s.auth.AuthToken(ctx, token)
				if err != nil {
					span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyEditor: token validation failed"))
					goto skipCheckAuthorization
				}

				ctx = context.WithValue(ctx, domain.EditorIDCtxKey, result.EditorID)
				ctx = context.WithValue(ctx, domain.EditorRoleCtxKey, result.Role)
				span.SetAttributes(attribute.String("EditorId", result.EditorID))
			}
		}

	skipCheckAuthorization:
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireEditor rejects requests that carry no verified editor identity.
func (s *AuthMiddleware) RequireEditor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if EditorID(c) == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		return next(c)
	}
}

// EditorID extracts the verified editor identity from the request context.
func EditorID(c echo.Context) string {
	id, _ := c.Request().Context().Value(domain.EditorIDCtxKey).(string)
	return id
}
