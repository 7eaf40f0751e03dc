package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/classroom"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// notFoundErrors are the sentinels answered with a 404 carrying their own message.
var notFoundErrors = []error{
	classroom.ErrNotFound,
	classroom.ErrSessionNotFound,
	timetable.ErrNotFound,
	notification.ErrNotFound,
	notification.ErrRuleNotFound,
	core.ErrSettingNotFound,
}

func isNotFound(err error) bool {
	cause := errors.Cause(err)
	for _, nf := range notFoundErrors {
		if cause == nf {
			return true
		}
	}
	return false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		if fields, ok := core.TranslateValidationErrors(err, translator); ok {
			code = http.StatusBadRequest
			message = fields
		} else {
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
				code = http.StatusBadRequest
				message = origErr.Error()
			default:
				switch {
				case isNotFound(err):
					code = http.StatusNotFound
					message = errors.Cause(err).Error()
				case errors.Cause(err) == timetable.ErrNegativeLookahead:
					code = http.StatusBadRequest
					message = origErr.Error()
				default: // any other error is a server error
					code = http.StatusInternalServerError
					msg := http.StatusText(http.StatusInternalServerError)
					message = msg

					var actor core.Actor
					if claims, cErr := getContextClaims(ctx); cErr == nil {
						actor.ID = claims.Subject
						actor.Username = claims.Username
					}
					logger.Error(msg, errors.Wrap(err, msg), actor)

					// shutting down...
					if core.IsShutdown(err) {
						signalShutdown()
					}
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
