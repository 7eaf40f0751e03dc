package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/aminpamelo/mudeerbedaie-sub010/apps/api/echo"
	"github.com/aminpamelo/mudeerbedaie-sub010/core"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
	"github.com/aminpamelo/mudeerbedaie-sub010/core/timetable"
	logsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/logger"
	settingsvc "github.com/aminpamelo/mudeerbedaie-sub010/services/settings"
	inmemdb "github.com/aminpamelo/mudeerbedaie-sub010/storage/database/inmem"
	testutil "github.com/aminpamelo/mudeerbedaie-sub010/tests"
)

var (
	wednesday = time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC)

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

type env struct {
	db       *inmemdb.DB
	conf     *core.Config
	settings *settingsvc.MemoryProvider
	app      *echoapi.Server
}

func setup(t *testing.T) *env {
	testutil.MockNow(t, wednesday)

	conf := &core.Config{AppName: "test", TestMode: true, SecretKey: "secret"}
	conf.Server.JWTExpirationDelta = time.Hour

	db := inmemdb.Open()
	settings := settingsvc.NewMemoryProvider(map[string]string{core.SettingTimezone: "UTC", core.SettingLookaheadDays: "7"})
	notifRepo := inmemdb.NewNotificationRepository(db)
	ruleRepo := inmemdb.NewRuleRepository(db)
	ttRepo := inmemdb.NewTimetableRepository(db)
	classRepo := inmemdb.NewClassroomRepository(db)
	logger := logsvc.NewNopLogger()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	timetable.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		TimetableSvc: timetable.NewService(ttRepo, settings),
		NotificationSvc: notification.NewService(
			notifRepo, ruleRepo, classRepo, settings, notification.NewRenderer(en.New()),
		),
		Materializer: notification.NewMaterializer(notification.MaterializerDeps{
			Repo:       notifRepo,
			Rules:      ruleRepo,
			Classes:    classRepo,
			Timetables: ttRepo,
			Settings:   settings,
			Logger:     logger,
		}),
		Settings:   settings,
		Validate:   validate,
		Translator: translator,
	})
	return &env{db: db, conf: conf, settings: settings, app: app}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, roles ...string) string {
	token, err := echoapi.GenerateToken(conf, echoapi.NewStaffClaims(conf, "42", "aisyah", roles...))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func runHTTPTests(t *testing.T, app http.Handler, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code)
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
