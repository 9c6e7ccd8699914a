package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// actorMiddleware rejects tokens that do not identify an actor.
func actorMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := getContextActor(ctx); err != nil {
				return errors.Wrap(err, "getting context actor")
			}
			return next(ctx)
		}
	}
}
