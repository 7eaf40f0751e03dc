package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
)

type ruleApi struct {
	svc      *notification.Service
	validate *validator.Validate
}

func registerRuleAPI(g *echo.Group, svc *notification.Service, validate *validator.Validate) {
	api := ruleApi{svc: svc, validate: validate}

	g.GET("/classes/:id/rules", api.query)
	g.POST("/classes/:id/rules", api.create)
	g.PATCH("/rules/:id", api.setEnabled)
}

// Handlers

func (api *ruleApi) create(ctx echo.Context) error {
	var data notification.NewRule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRule")
	}
	rule, err := api.svc.CreateRule(ctx.Request().Context(), api.validate, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating rule")
	}
	return ctx.JSON(http.StatusCreated, rule)
}

func (api *ruleApi) query(ctx echo.Context) error {
	rules, err := api.svc.QueryRules(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying rules")
	}
	if rules == nil {
		rules = []notification.Rule{}
	}
	return ctx.JSON(http.StatusOK, rules)
}

func (api *ruleApi) setEnabled(ctx echo.Context) error {
	var data SetRuleEnabledRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetRuleEnabledRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	rule, err := api.svc.SetRuleEnabled(ctx.Request().Context(), ctx.Param("id"), *data.IsEnabled)
	if err != nil {
		return errors.Wrap(err, "updating rule")
	}
	return ctx.JSON(http.StatusOK, rule)
}

type SetRuleEnabledRequest struct {
	IsEnabled *bool `json:"is_enabled" validate:"required"`
}
