package middleware

import (
	"net/http"
	"strings"

	"github.com/Eursukkul/booking-microservice/reservation-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

// Claims carried by identity-provider tokens. Subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth verifies an HS256 bearer token and puts the caller's
// models.Principal on the context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims := &Claims{}
			tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}
			role := models.Role(claims.Role)
			switch role {
			case models.RoleAdmin, models.RoleUser:
			case "":
				role = models.RoleUser
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown role")
			}

			c.Set(principalKey, models.Principal{ID: claims.Subject, Role: role})
			return next(c)
		}
	}
}

// PrincipalFrom returns the authenticated caller, or the zero Principal
// (which every capability check rejects).
func PrincipalFrom(c echo.Context) models.Principal {
	p, _ := c.Get(principalKey).(models.Principal)
	return p
}

// SetPrincipal is used by tests and internal callers that authenticate
// by other means.
func SetPrincipal(c echo.Context, p models.Principal) {
	c.Set(principalKey, p)
}
