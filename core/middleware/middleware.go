package middleware

import (
	stderrors "errors"
	"strings"
	"time"

	"group-scheduler/core/constants"
	"group-scheduler/core/controller"
	"group-scheduler/core/errors"
	"group-scheduler/core/logger"
	"group-scheduler/core/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type Middleware struct {
	controller.BaseController
	jwtSecret string
}

func NewMiddleware(jwtSecret string) *Middleware {
	return &Middleware{
		BaseController: controller.NewBaseController(),
		jwtSecret:      jwtSecret,
	}
}

// AuthMiddleware validates the Bearer token and stores its claims under
// constants.ContextTokenData.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return m.Unauthorized(errors.ErrMissingAuthorizationHeader, "Missing authorization header")
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return m.Unauthorized(errors.ErrInvalidTokenFormat, "Invalid authorization header format")
			}

			claims, err := utils.ParseToken(m.jwtSecret, strings.TrimSpace(raw))
			if err != nil {
				if stderrors.Is(err, jwt.ErrTokenExpired) {
					return m.Unauthorized(errors.ErrTokenExpired, "Token has expired")
				}
				logger.Warn("Middleware:AuthMiddleware", "error", err)
				return m.Unauthorized(errors.ErrUnauthorized, "Invalid token")
			}

			c.Set(constants.ContextTokenData, claims)
			return next(c)
		}
	}
}

// RequestID reuses the caller's X-Request-ID or assigns a new one.
func (m *Middleware) RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(constants.HeaderRequestID)
			if id == "" {
				id = utils.GenerateID()
			}
			c.Response().Header().Set(constants.HeaderRequestID, id)
			return next(c)
		}
	}
}

func (m *Middleware) RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info("HTTP",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(constants.HeaderRequestID),
			)
			return nil
		}
	}
}
