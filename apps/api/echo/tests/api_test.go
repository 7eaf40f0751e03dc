package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/aminpamelo/mudeerbedaie-sub010/apps/api/echo"
	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/classroom"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
	testutil "github.com/aminpamelo/mudeerbedaie-sub010/tests"
)

func Test_auth(t *testing.T) {
	e := setup(t)

	runHTTPTests(t, e.app, []httpTest{
		{name: "home is public", path: "/", wantCode: http.StatusOK},
		{name: "token required", path: "/v1/notifications", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "bad signature", path: "/v1/notifications", token: getToken(t, &core.Config{SecretKey: "lol"}),
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "staff role required", path: "/v1/notifications", token: getToken(t, e.conf, "teacher"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "staff", path: "/v1/notifications", token: getToken(t, e.conf), wantData: []byte(`[]`)},
		{name: "admin", path: "/v1/notifications", token: getToken(t, e.conf, echoapi.RoleAdmin), wantData: []byte(`[]`)},
	})
}

func Test_timetableApi(t *testing.T) {
	e := setup(t)
	token := getToken(t, e.conf)
	cls := testutil.CreateClass(t, e.db, "alpha", nil, testutil.Student("ali"))
	testutil.CreateRule(t, e.db, cls.ID, notification.RuleReminder, 60, true, false)
	path := "/v1/classes/" + cls.ID

	runHTTPTests(t, e.app, []httpTest{
		{
			name: "no timetable yet", path: path + "/timetable", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "timetable not found"}),
		},
		{
			name: "invalid recurrence", method: http.MethodPut, path: path + "/timetable", token: token,
			body:     []byte(`{"recurrence": "daily", "schedule": {"monday": ["09:00"]}}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"recurrence": "recurrence must be one of: weekly, bi_weekly, monthly"}`),
		},
		{
			name: "weekday keys on a monthly timetable", method: http.MethodPut, path: path + "/timetable", token: token,
			body:     []byte(`{"recurrence": "monthly", "schedule": {"monday": ["09:00"]}}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"schedule": "schedule keys must be weekday names (weekly, bi_weekly) or week_1..week_5 (monthly)"}`),
		},
		{
			name: "save", method: http.MethodPut, path: path + "/timetable", token: token,
			body: []byte(`{"recurrence": "Weekly", "schedule": {"monday": ["09:00"], "thursday": ["20:30"]}}`),
		},
		{
			name: "negative lookahead", path: path + "/timetable/occurrences?lookahead=-1", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "lookahead days must not be negative"}),
		},
		{
			name: "malformed lookahead", path: path + "/timetable/occurrences?lookahead=lol", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "lookahead must be an integer"}),
		},
		{
			name: "schedule with negative lookahead", method: http.MethodPost, path: path + "/schedule?lookahead=-2", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "lookahead days must not be negative"}),
		},
		{
			name: "schedule unknown class", method: http.MethodPost, path: "/v1/classes/lol/schedule", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "timetable not found"}),
		},
	})

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"/timetable", token)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var tt timetable.Timetable
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tt))
		assert.Equal(t, cls.ID, tt.ClassID)
		assert.Equal(t, timetable.Weekly, tt.Recurrence)
		assert.True(t, tt.IsActive)
		assert.Equal(t, []string{"09:00"}, tt.Schedule.Weekly[timetable.Monday])
	})

	t.Run("occurrences", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"/timetable/occurrences?lookahead=14", token)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var slots []timetable.Slot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
		// Thu 6, Mon 10, Thu 13, Mon 17
		assert.Len(t, slots, 4)
	})

	t.Run("plain dates", func(t *testing.T) {
		beta := testutil.CreateClass(t, e.db, "beta", nil, testutil.Student("eve"))
		betaPath := "/v1/classes/" + beta.ID + "/timetable"
		runHTTPTests(t, e.app, []httpTest{
			{
				name: "malformed date", method: http.MethodPut, path: betaPath, token: token,
				body:     []byte(`{"recurrence": "weekly", "schedule": {"monday": ["09:00"]}, "start_date": "10/03/2025"}`),
				wantCode: http.StatusBadRequest,
			},
			{
				name: "end before start", method: http.MethodPut, path: betaPath, token: token,
				body:     []byte(`{"recurrence": "weekly", "schedule": {"monday": ["09:00"]}, "start_date": "2025-03-10", "end_date": "2025-03-09"}`),
				wantCode: http.StatusBadRequest,
				wantData: []byte(`{"end_date": "end_date cannot be before start_date"}`),
			},
			{
				name: "save", method: http.MethodPut, path: betaPath, token: token,
				body: []byte(`{"recurrence": "weekly", "schedule": {"monday": ["09:00"]}, "start_date": "2025-03-10", "end_date": "2025-03-16"}`),
			},
		})

		req, rec := newAuthRequest(http.MethodGet, betaPath+"/occurrences?lookahead=30", token)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var slots []timetable.Slot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
		// only Mon 10 is inside the bounds
		assert.Len(t, slots, 1)
	})

	t.Run("schedule", func(t *testing.T) {
		for _, want := range []int{2, 0} { // setting lookahead is 7 days
			req, rec := newAuthRequest(http.MethodPost, path+"/schedule", token)
			e.app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)

			var res echoapi.ScheduleResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.Equal(t, want, res.Created)
			assert.Len(t, res.Notifications, want)
		}
	})
}

func Test_ruleApi(t *testing.T) {
	e := setup(t)
	token := getToken(t, e.conf)
	cls := testutil.CreateClass(t, e.db, "alpha", nil)
	path := "/v1/classes/" + cls.ID + "/rules"

	runHTTPTests(t, e.app, []httpTest{
		{name: "no rules", path: path, token: token, wantData: []byte(`[]`)},
		{
			name: "invalid", method: http.MethodPost, path: path, token: token,
			body:     []byte(`{"name": " ", "type": "digest"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"name": "this field is required",
				"type": "type must be one of: reminder, followup",
				"send_to_students": "at least one of send_to_students or send_to_teacher is required"
			}`),
		},
		{
			name: "followup with minutes_before", method: http.MethodPost, path: path, token: token,
			body:     []byte(`{"name": "Thanks", "type": "followup", "minutes_before": 10, "minutes_after": 10, "send_to_teacher": true}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"minutes_after": "followups need a non-negative minutes_after and no minutes_before"}`),
		},
		{
			name: "unknown placeholder", method: http.MethodPost, path: path, token: token,
			body:     []byte(`{"name": "Hi", "type": "reminder", "minutes_before": 10, "send_to_students": true, "template": "{{nickname}}"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"template": "template: check:1: function \"nickname\" not defined"}`),
		},
		{
			name: "unknown class", method: http.MethodPost, path: "/v1/classes/lol/rules", token: token,
			body:     []byte(`{"name": "Hi", "type": "reminder", "minutes_before": 10, "send_to_students": true}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "class not found"}),
		},
		{
			name: "enable unknown rule", method: http.MethodPatch, path: "/v1/rules/lol", token: token,
			body:     []byte(`{"is_enabled": true}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "notification rule not found"}),
		},
	})

	// create
	req, rec := newAuthRequest(http.MethodPost, path, token,
		[]byte(`{"name": "Day before", "type": "reminder", "minutes_before": 1440, "send_to_students": true}`))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var rule notification.Rule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rule))
	assert.Equal(t, "Day before", rule.Name)
	assert.True(t, rule.IsEnabled)
	assert.Equal(t, 1440, rule.MinutesBefore.Int)

	// disable
	rulePath := "/v1/rules/" + rule.ID
	runHTTPTests(t, e.app, []httpTest{
		{
			name: "missing is_enabled", method: http.MethodPatch, path: rulePath, token: token, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"is_enabled": "this field is required"}`),
		},
		{name: "disable", method: http.MethodPatch, path: rulePath, token: token, body: []byte(`{"is_enabled": false}`)},
	})

	req, rec = newAuthRequest(http.MethodGet, path, token)
	e.app.ServeHTTP(rec, req)
	var rules []notification.Rule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	require.Len(t, rules, 1)
	assert.False(t, rules[0].IsEnabled)
}

func Test_notificationApi(t *testing.T) {
	e := setup(t)
	token := getToken(t, e.conf)
	cls := testutil.CreateClass(t, e.db, "alpha", &classroom.Teacher{Name: "Ustaz Amin", Email: "amin@example.com"},
		testutil.Student("ali"), testutil.Student("bala"))
	testutil.CreateRule(t, e.db, cls.ID, notification.RuleReminder, 1440, true, true,
		"Salam {{student_name}}, {{class_name}} is on {{session_date}} at {{session_time}}.")
	sess := testutil.CreateSession(t, e.db, cls.ID, "2025-03-10", "09:00", classroom.SessionScheduled)

	runHTTPTests(t, e.app, []httpTest{
		{
			name: "schedule unknown session", method: http.MethodPost, path: "/v1/sessions/lol/schedule", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "session not found"}),
		},
		{
			name: "unknown notification", path: "/v1/notifications/lol", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "scheduled notification not found"}),
		},
	})

	// schedule
	req, rec := newAuthRequest(http.MethodPost, "/v1/sessions/"+sess.ID+"/schedule", token)
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var res echoapi.ScheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 1, res.Created)
	sn := res.Notifications[0]
	assert.Equal(t, notification.StatusPending, sn.Status)
	assert.Equal(t, 3, sn.RecipientCount)
	assert.Equal(t, "2025-03-09T09:00:00Z", sn.ScheduledAt.Format("2006-01-02T15:04:05Z07:00"))

	runHTTPTests(t, e.app, []httpTest{
		{name: "retrieve", path: "/v1/notifications/" + sn.ID, token: token, wantData: marchallObj(t, sn)},
		{name: "query by session", path: "/v1/notifications?session_id=" + sess.ID, token: token, wantData: marchallObj(t, []interface{}{sn})},
		{name: "query by status", path: "/v1/notifications?status=sent&status=cancelled", token: token, wantData: []byte(`[]`)},
		{
			name: "query by range", path: "/v1/notifications?scheduled_from=2025-03-09T10:00:00Z", token: token,
			wantData: []byte(`[]`),
		},
	})

	t.Run("preview", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications/"+sn.ID+"/preview?student=Ali", token)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var p notification.Preview
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, "Salam Ali, alpha is on March 10, 2025 at 9:00 am.", p.Message)
		assert.Equal(t, sn.ID, p.Notification.ID)
	})

	runHTTPTests(t, e.app, []httpTest{
		{
			name: "cancel", method: http.MethodDelete, path: "/v1/sessions/" + sess.ID + "/notifications", token: token,
			wantData: []byte(`{"cancelled": 1}`),
		},
		{
			name: "cancel again", method: http.MethodDelete, path: "/v1/sessions/" + sess.ID + "/notifications", token: token,
			wantData: []byte(`{"cancelled": 0}`),
		},
	})

	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications?status=cancelled", token)
	e.app.ServeHTTP(rec, req)
	var rows []notification.ScheduledNotification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, sn.ID, rows[0].ID)
}

func Test_settingsApi(t *testing.T) {
	e := setup(t)
	staff := getToken(t, e.conf)
	admin := getToken(t, e.conf, echoapi.RoleStaff, echoapi.RoleAdmin)
	tzPath := "/v1/settings/" + core.SettingTimezone
	lookaheadPath := "/v1/settings/" + core.SettingLookaheadDays

	runHTTPTests(t, e.app, []httpTest{
		{
			name: "unknown key", path: "/v1/settings/lol", token: staff,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "get", path: tzPath, token: staff, wantData: []byte(`{"key": "app.timezone", "value": "UTC"}`)},
		{
			name: "set requires admin", method: http.MethodPut, path: tzPath, token: staff,
			body:     []byte(`{"value": "Asia/Kuala_Lumpur"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "blank value", method: http.MethodPut, path: tzPath, token: admin, body: []byte(`{"value": "  "}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"value": "this field is required"}`),
		},
		{
			name: "unknown timezone", method: http.MethodPut, path: tzPath, token: admin, body: []byte(`{"value": "Mars/Olympus"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"value": "unknown timezone"}`),
		},
		{
			name: "negative lookahead", method: http.MethodPut, path: lookaheadPath, token: admin, body: []byte(`{"value": "-3"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"value": "must be a non-negative number of days"}`),
		},
		{
			name: "set", method: http.MethodPut, path: tzPath, token: admin, body: []byte(`{"value": "Asia/Kuala_Lumpur"}`),
			wantData: []byte(`{"key": "app.timezone", "value": "Asia/Kuala_Lumpur"}`),
		},
		{name: "get after set", path: tzPath, token: staff, wantData: []byte(`{"key": "app.timezone", "value": "Asia/Kuala_Lumpur"}`)},
		{name: "invalidate", method: http.MethodDelete, path: tzPath, token: admin, wantCode: http.StatusNoContent},
	})
}
