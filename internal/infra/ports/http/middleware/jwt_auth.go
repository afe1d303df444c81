package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/infra/appctx"
)

// JWTAuthMiddleware принимает токен из заголовка Authorization, параметра token
// (браузерный WebSocket не умеет слать заголовки) или cookie jwt
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return unauthorized(c, "missing or malformed jwt")
			}

			token, err := jwt.ParseWithClaims(
				raw,
				&jwt.RegisteredClaims{},
				func(token *jwt.Token) (any, error) {
					return []byte(secret), nil
				},
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			)
			if err != nil {
				return unauthorized(c, "invalid or expired jwt")
			}

			claims, ok := token.Claims.(*jwt.RegisteredClaims)
			if !ok || !token.Valid {
				return unauthorized(c, "invalid or expired jwt")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil || userID == uuid.Nil {
				return unauthorized(c, "invalid subject")
			}

			c.SetRequest(
				c.Request().WithContext(
					appctx.WithIdentity(c.Request().Context(), appctx.Identity{UserID: userID}),
				),
			)

			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}

		return ""
	}

	if token := c.QueryParam("token"); token != "" {
		return token
	}

	if cookie, err := c.Cookie("jwt"); err == nil {
		return cookie.Value
	}

	return ""
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error": msg,
		"code":  domain.ErrUnauthorized.Code,
	})
}
