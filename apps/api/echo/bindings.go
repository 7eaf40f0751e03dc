package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
)

var (
	orderingParam  = "ordering"
	lookaheadParam = "lookahead"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindLookahead reads the lookahead query param; ok is false when it is absent.
// Negative values are passed on so that the scheduler can reject them.
func bindLookahead(ctx echo.Context) (days int, ok bool, err error) {
	val := strings.TrimSpace(ctx.QueryParam(lookaheadParam))
	if val == "" {
		return 0, false, nil
	}
	days, err = strconv.Atoi(val)
	if err != nil {
		return 0, false, echo.NewHTTPError(http.StatusBadRequest, "lookahead must be an integer")
	}
	return days, true, nil
}
