package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/wordwise/backend/apps/api/echo"
	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
	"github.com/wordwise/backend/services/email"
	"github.com/wordwise/backend/services/events"
	"github.com/wordwise/backend/services/logger"
	"github.com/wordwise/backend/storage/database/inmem"
	"github.com/wordwise/backend/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	conf    *core.Config
	app     Server
	accRepo account.Repository
	prgRepo progress.Repository
	mailSvc *emailsvc.ConsoleService
	events  *eventsvc.Recorder
}

// setup returns a server backed by a fresh in-memory store.
func setup(t *testing.T, configure ...func(conf *core.Config)) *testEnv {
	t.Helper()
	return setupWithAccounts(t, nil, configure...)
}

// setupWithAccounts is setup with the account repository seen by the services replaced by wrap(repo).
func setupWithAccounts(t *testing.T, wrap func(account.Repository) account.Repository, configure ...func(conf *core.Config)) *testEnv {
	t.Helper()

	conf := core.NewTestConfig()
	for _, fn := range configure {
		fn(conf)
	}
	logger := logsvc.NewTestLogger()

	// set up DB & repos
	db := inmemdb.Open()
	accRepo := inmemdb.NewAccountRepository(db)
	prgRepo := inmemdb.NewProgressRepository(db)
	svcRepo := accRepo
	if wrap != nil {
		svcRepo = wrap(accRepo)
	}

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	recorder := eventsvc.NewRecorder()
	accSvc := account.NewService(svcRepo)
	followMgr := account.NewFollowManager(svcRepo, mailSvc, recorder, logger)
	prgSvc := progress.NewService(prgRepo, svcRepo, logger, progress.WithEmail(mailSvc), progress.WithEvents(recorder))

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	// set up server
	app := NewServer(&Options{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		AccountSvc:     accSvc,
		FollowMgr:      followMgr,
		ProgressSvc:    prgSvc,
		Validate:       validate,
		Translator:     translator,
	})

	return &testEnv{
		conf:    conf,
		app:     app,
		accRepo: accRepo,
		prgRepo: prgRepo,
		mailSvc: mailSvc,
		events:  recorder,
	}
}

func (env *testEnv) student(t *testing.T, first, last, email string) *account.Student {
	return testutil.CreateStudent(t, env.accRepo, first, last, email, "")
}

func (env *testEnv) teacher(t *testing.T, first, last, email string) *account.Teacher {
	return testutil.CreateTeacher(t, env.accRepo, first, last, email, "")
}

func (env *testEnv) reload(t *testing.T, acc account.Account) account.Account {
	return testutil.Reload(t, env.accRepo, acc)
}

func (env *testEnv) do(req *http.Request, rec *httptest.ResponseRecorder) {
	env.app.ServeHTTP(rec, req)
}

func (env *testEnv) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			env.do(req, rec)
			if tt.wantCode == 0 {
				tt.wantCode = http.StatusOK
			}
			checkCodeAndData(t, tt, rec)
		})
	}
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, acc account.Account) string {
	token, err := GenerateToken(conf, GetAccountClaims(conf, acc))
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

func unmarchallObj(t *testing.T, data []byte, obj interface{}) {
	if err := json.Unmarshal(data, obj); err != nil {
		t.Fatalf("unmarchallObj() failed: %v; data: %s", err, data)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
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
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
