package sqlxrepos

import (
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/aminpamelo/mudeerbedaie-sub010/core"
)

func TestWrapErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		shutdown bool
	}{
		{name: "missing table", err: &pq.Error{Code: undefinedTable, Message: `relation "scheduled_notification" does not exist`}, shutdown: true},
		{name: "missing column", err: &pq.Error{Code: undefinedColumn, Message: `column "occurrence_time" does not exist`}, shutdown: true},
		{name: "wrapped missing table", err: errors.Wrap(&pq.Error{Code: undefinedTable}, "querying"), shutdown: true},
		{name: "unique violation", err: &pq.Error{Code: uniqueViolation}},
		{name: "other", err: errors.New("connection reset")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := wrapErr(tc.err, "inserting notification")
			assert.Equal(t, tc.shutdown, core.IsShutdown(err))
			assert.Contains(t, err.Error(), "inserting notification")
			if !tc.shutdown {
				assert.Equal(t, tc.err, errors.Cause(err))
			}
		})
	}
}
