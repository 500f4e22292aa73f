package middleware

import (
	"errors"
	"strings"

	"stationery-storefront/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// AuthMiddleware reads an optional bearer token (HS256, subject = buyer uid).
// Requests without a token pass through anonymous; a bad token is rejected.
// With an empty secret every request is anonymous.
func AuthMiddleware(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if secret == "" || header == "" {
				return next(c)
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return apperr.Unauthorized("invalid authorization header")
			}
			sub, err := parseSubject(raw, key)
			if err != nil {
				return apperr.Unauthorized("invalid or expired token")
			}

			c.Set(userIDKey, sub)
			return next(c)
		}
	}
}

// RequireUser rejects anonymous requests. It must run after AuthMiddleware.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserID(c) == "" {
				return apperr.Unauthorized("sign in required")
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated buyer id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

func parseSubject(raw string, key []byte) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}
