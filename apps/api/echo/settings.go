package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
)

// settingCheckers validate the raw value of each runtime setting staff may change.
var settingCheckers = map[string]func(string) string{
	core.SettingLookaheadDays: func(v string) string {
		if n, err := strconv.Atoi(v); err != nil || n < 0 {
			return "must be a non-negative number of days"
		}
		return ""
	},
	core.SettingTimezone: func(v string) string {
		if _, err := time.LoadLocation(v); err != nil {
			return "unknown timezone"
		}
		return ""
	},
}

type settingsApi struct {
	settings core.SettingsProvider
	validate *validator.Validate
}

func registerSettingsAPI(g *echo.Group, settings core.SettingsProvider, validate *validator.Validate) {
	api := settingsApi{settings: settings, validate: validate}

	sg := g.Group("/settings/:key", knownSettingMiddleware)
	sg.GET("", api.retrieve)
	sg.PUT("", api.update, staffMiddleware(RoleAdmin))
	sg.DELETE("", api.invalidate, staffMiddleware(RoleAdmin))
}

func knownSettingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, ok := settingCheckers[ctx.Param("key")]; !ok {
			return errHttpNotFound
		}
		return next(ctx)
	}
}

type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value" validate:"required,notblank"`
}

// Handlers

func (api *settingsApi) retrieve(ctx echo.Context) error {
	key := ctx.Param("key")
	val, err := api.settings.Get(ctx.Request().Context(), key)
	if err != nil {
		return errors.Wrap(err, "getting setting")
	}
	return ctx.JSON(http.StatusOK, Setting{Key: key, Value: val})
}

func (api *settingsApi) update(ctx echo.Context) error {
	var data Setting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Setting")
	}
	data.Key = ctx.Param("key")
	data.Value = core.CleanString(data.Value)
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if msg := settingCheckers[data.Key](data.Value); msg != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "value", Error: msg})
	}

	if err := api.settings.Set(ctx.Request().Context(), data.Key, data.Value); err != nil {
		return errors.Wrap(err, "setting value")
	}
	return ctx.JSON(http.StatusOK, data)
}

// invalidate drops the cached value so that the next read hits the store.
func (api *settingsApi) invalidate(ctx echo.Context) error {
	if err := api.settings.Invalidate(ctx.Request().Context(), ctx.Param("key")); err != nil {
		return errors.Wrap(err, "invalidating setting")
	}
	return ctx.NoContent(http.StatusNoContent)
}
