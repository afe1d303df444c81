package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/qrave1/RoomMeet/internal/application/constant"
	"github.com/qrave1/RoomMeet/internal/application/metric"
	"github.com/qrave1/RoomMeet/internal/infra/appctx"
)

// RateRule - не больше Limit запросов действия Action за Window на пользователя
type RateRule struct {
	Action string
	Limit  int
	Window time.Duration
}

// RateLimitStoreFactory создает хранилище счетчиков под правило
type RateLimitStoreFactory func(rule RateRule) middleware.RateLimiterStore

// MemoryRateLimitStore - хранилище в памяти процесса: корзина на Limit запросов,
// пополняемая равномерно за Window
func MemoryRateLimitStore(rule RateRule) middleware.RateLimiterStore {
	return middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(rule.Limit) / rule.Window.Seconds()),
			Burst:     rule.Limit,
			ExpiresIn: rule.Window,
		},
	)
}

// RateLimit ограничивает частоту действия для аутентифицированного пользователя.
// Ставится после JWTAuthMiddleware.
func RateLimit(rule RateRule, store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: failOpenStore{store: store, action: rule.Action},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if userID, ok := appctx.UserID(c.Request().Context()); ok {
				return userID.String(), nil
			}

			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "could not identify client"})
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			metric.IncRateLimited(rule.Action)

			c.Response().Header().Set("Retry-After", retryAfter(rule.Window))

			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "too many requests",
				"code":  "RATE_LIMITED",
			})
		},
	})
}

func retryAfter(window time.Duration) string {
	return strconv.Itoa(int(window.Seconds()))
}

// failOpenStore пропускает запрос, если хранилище счетчиков недоступно
type failOpenStore struct {
	store  middleware.RateLimiterStore
	action string
}

func (s failOpenStore) Allow(identifier string) (bool, error) {
	allowed, err := s.store.Allow(identifier)
	if err != nil {
		slog.Error(
			"rate limiter store failed",
			slog.Any(constant.Error, err),
			slog.String(constant.Action, s.action),
		)

		return true, nil
	}

	return allowed, nil
}
