package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
)

type notificationApi struct {
	svc *notification.Service
	mat *notification.Materializer
}

func registerNotificationAPI(g *echo.Group, svc *notification.Service, mat *notification.Materializer) {
	api := notificationApi{svc: svc, mat: mat}

	sg := g.Group("/sessions/:id")
	sg.POST("/schedule", api.scheduleSession)
	sg.DELETE("/notifications", api.cancelSession)

	ng := g.Group("/notifications")
	ng.GET("", api.query)
	ng.GET("/:id", api.retrieve)
	ng.GET("/:id/preview", api.preview)
}

type (
	ScheduleResponse struct {
		Created       int                                  `json:"created"`
		Notifications []notification.ScheduledNotification `json:"notifications"`
	}

	CancelResponse struct {
		Cancelled int64 `json:"cancelled"`
	}
)

func newScheduleResponse(created []notification.ScheduledNotification) ScheduleResponse {
	if created == nil {
		created = []notification.ScheduledNotification{}
	}
	return ScheduleResponse{Created: len(created), Notifications: created}
}

// Handlers

func (api *notificationApi) scheduleSession(ctx echo.Context) error {
	created, err := api.mat.ScheduleSessionByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "scheduling session")
	}
	return ctx.JSON(http.StatusOK, newScheduleResponse(created))
}

func (api *notificationApi) cancelSession(ctx echo.Context) error {
	n, err := api.mat.CancelSession(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cancelling session")
	}
	return ctx.JSON(http.StatusOK, CancelResponse{Cancelled: n})
}

func (api *notificationApi) query(ctx echo.Context) error {
	filter := new(notification.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []notification.ScheduledNotification{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	rows, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying scheduled notifications")
	}
	if rows == nil {
		rows = []notification.ScheduledNotification{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *notificationApi) retrieve(ctx echo.Context) error {
	sn, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting scheduled notification")
	}
	return ctx.JSON(http.StatusOK, sn)
}

// preview renders the message for the "student" query param, or a placeholder name.
func (api *notificationApi) preview(ctx echo.Context) error {
	name := strings.TrimSpace(ctx.QueryParam("student"))
	if name == "" {
		name = "Student"
	}
	p, err := api.svc.Preview(ctx.Request().Context(), ctx.Param("id"), name)
	if err != nil {
		return errors.Wrap(err, "previewing notification")
	}
	return ctx.JSON(http.StatusOK, p)
}
