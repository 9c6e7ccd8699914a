package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	echoapi "github.com/trezcool/masomo-ledger/apps/api/echo"
	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/attendance"
	"github.com/trezcool/masomo-ledger/core/notification"
	inmemdb "github.com/trezcool/masomo-ledger/storage/database/inmem"
	"github.com/trezcool/masomo-ledger/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errNotFound     = httpErr{Error: "not found"}

	teacher = core.Actor{ID: testutil.TeacherID, Username: "mwalimu", Email: "mwalimu@example.com"}
)

type env struct {
	conf      *core.Config
	app       *echoapi.Server
	svc       attendance.Service
	guardians notification.GuardianRepository
	intents   notification.Repository
	token     string
}

func setup(t *testing.T) env {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()
	validate, translator := testutil.NewValidator()

	e := env{
		conf:      conf,
		guardians: inmemdb.NewGuardianRepository(db),
		intents:   inmemdb.NewNotificationRepository(db),
	}
	e.svc = attendance.NewService(attendance.ServiceDeps{
		Conf:       conf,
		Logger:     logger,
		Tx:         inmemdb.NewTransactor(db),
		Repo:       inmemdb.NewAttendanceRepository(db),
		Guardians:  e.guardians,
		Intents:    e.intents,
		Validate:   validate,
		Translator: translator,
	})
	e.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		AttendanceSvc:  e.svc,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = e.app.Close() })
	e.token = getToken(t, conf, teacher)
	return e
}

func (e env) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
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

func getToken(t *testing.T, conf *core.Config, actor core.Actor) string {
	token, err := echoapi.GenerateToken(conf, echoapi.NewActorClaims(conf, actor))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshall(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
