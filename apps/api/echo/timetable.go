package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
)

type timetableApi struct {
	svc      *timetable.Service
	mat      *notification.Materializer
	validate *validator.Validate
}

func registerTimetableAPI(g *echo.Group, svc *timetable.Service, mat *notification.Materializer, validate *validator.Validate) {
	api := timetableApi{svc: svc, mat: mat, validate: validate}

	cg := g.Group("/classes/:id")
	cg.GET("/timetable", api.retrieve)
	cg.PUT("/timetable", api.save)
	cg.GET("/timetable/occurrences", api.occurrences)
	cg.POST("/schedule", api.schedule)
}

// Handlers

func (api *timetableApi) retrieve(ctx echo.Context) error {
	tt, err := api.svc.GetByClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting timetable")
	}
	return ctx.JSON(http.StatusOK, tt)
}

func (api *timetableApi) save(ctx echo.Context) error {
	var data timetable.NewTimetable
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTimetable")
	}
	tt, err := api.svc.Save(ctx.Request().Context(), api.validate, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "saving timetable")
	}
	return ctx.JSON(http.StatusOK, tt)
}

func (api *timetableApi) occurrences(ctx echo.Context) error {
	days, ok, err := bindLookahead(ctx)
	if err != nil {
		return err
	}
	if !ok {
		days = -1 // configured default
	} else if days < 0 {
		return timetable.ErrNegativeLookahead
	}

	slots, err := api.svc.Occurrences(ctx.Request().Context(), ctx.Param("id"), days)
	if err != nil {
		return errors.Wrap(err, "generating occurrences")
	}
	if slots == nil {
		slots = []timetable.Slot{}
	}
	return ctx.JSON(http.StatusOK, slots)
}

// schedule runs a timetable pass for the class; reminders only.
func (api *timetableApi) schedule(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	days, ok, err := bindLookahead(ctx)
	if err != nil {
		return err
	}

	var created []notification.ScheduledNotification
	if ok {
		tt, err := api.svc.GetByClass(reqCtx, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "getting timetable")
		}
		created, err = api.mat.ScheduleTimetable(reqCtx, tt, days)
		if err != nil {
			return errors.Wrap(err, "scheduling timetable")
		}
	} else {
		created, err = api.mat.ScheduleClass(reqCtx, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "scheduling class")
		}
	}
	return ctx.JSON(http.StatusOK, newScheduleResponse(created))
}
