package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/attendance"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
)

func fieldErrorsMap(flds []core.FieldError) map[string]string {
	m := make(map[string]string, len(flds))
	for _, fErr := range flds {
		m[fErr.Field] = fErr.Error
	}
	return m
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		// an invalid record rejects the whole batch
		var batchErr *attendance.BatchError
		var vErr *core.ValidationError
		if errors.As(err, &batchErr) && errors.As(batchErr.Err, &vErr) {
			respond(ctx, http.StatusBadRequest, echo.Map{
				"error":  "nothing was written",
				"index":  batchErr.Index,
				"key":    batchErr.Key.String(),
				"fields": fieldErrorsMap(vErr.Fields),
			})
			return
		}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *core.ValidationError:
			if origErr.Fields != nil {
				message = fieldErrorsMap(origErr.Fields)
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.ArgumentError:
			code = http.StatusBadRequest
			message = origErr.Error()
		default:
			if origErr == attendance.ErrNotFound {
				code = errHttpNotFound.Code
				message = errHttpNotFound.Message
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			actor, _ := getContextActor(ctx)
			logger.Error(msg, errors.Wrap(err, msg), actor)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}
		respond(ctx, code, message)
	}
}

func respond(ctx echo.Context, code int, message interface{}) {
	if ctx.Response().Committed {
		return
	}
	var err error
	if ctx.Request().Method == http.MethodHead { // Issue #608
		err = ctx.NoContent(code)
	} else {
		err = ctx.JSON(code, message)
	}
	if err != nil {
		ctx.Echo().Logger.Error(err)
	}
}
