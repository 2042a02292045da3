package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/tests"
)

const strongPwd = "Str0ng!Passw0rd#"

func Test_accountApi_register(t *testing.T) {
	env := setup(t)
	testutil.CreateTeacher(t, env.accRepo, "Taken", "Teacher", "taken@test.local", "")

	path := "/api/auth/register"
	newAcc := func(email, pwd, role string) []byte {
		return marchallObj(t, account.NewAccount{
			Email:           email,
			FirstName:       "Alice",
			LastName:        "Smith",
			Password:        pwd,
			PasswordConfirm: pwd,
			Role:            account.Role(role),
		})
	}

	env.run(t, []httpTest{
		{
			name: "all fields required", method: http.MethodPost, path: path, body: []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":           "this field is required",
				"firstName":       "this field is required",
				"lastName":        "this field is required",
				"password":        "this field is required",
				"passwordConfirm": "this field is required",
				"role":            "this field is required",
			}),
		},
		{
			name: "unknown role", method: http.MethodPost, path: path, body: newAcc("alice@test.local", strongPwd, "admin"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": `role must be one of "user" or "teacher"`}),
		},
		{
			name: "email taken", method: http.MethodPost, path: path, body: newAcc(" TAKEN@test.local ", strongPwd, "user"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": account.ErrEmailExists.Error()}),
		},
	})

	weakPwds := []string{"Sh0rt!", "no spaces 1A!", "1234567890", "alllowercase1!", "P@ssw0rd", "Smith!12A"}
	for _, pwd := range weakPwds {
		t.Run("weak password "+pwd, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path, newAcc("alice@test.local", pwd, "user"))
			env.do(req, rec)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var fldErrs map[string]string
			unmarchallObj(t, rec.Body.Bytes(), &fldErrs)
			assert.Contains(t, fldErrs, "password")
		})
	}

	t.Run("student", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path, newAcc(" Alice@Test.local", strongPwd, "user"))
		env.do(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp struct {
			Token   string                 `json:"token"`
			Account map[string]interface{} `json:"account"`
		}
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "alice@test.local", resp.Account["email"])
		assert.Equal(t, "user", resp.Account["role"])
		assert.Equal(t, "beginner", resp.Account["userLevel"])
		assert.Equal(t, false, resp.Account["evaluate"])
		assert.Equal(t, []interface{}{}, resp.Account["Followers"])
		assert.Equal(t, []interface{}{}, resp.Account["Following"])
		assert.NotContains(t, resp.Account, "PasswordHash")
	})

	t.Run("teacher", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path, newAcc("bob@test.local", strongPwd, "teacher"))
		env.do(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp struct {
			Account map[string]interface{} `json:"account"`
		}
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "teacher", resp.Account["role"])
		assert.NotContains(t, resp.Account, "userLevel")
	})

	t.Run("email unique across roles", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path, newAcc("bob@test.local", strongPwd, "user"))
		env.do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_accountApi_login(t *testing.T) {
	env := setup(t)
	stdt := testutil.CreateStudent(t, env.accRepo, "Alice", "Smith", "alice@test.local", strongPwd)

	path := "/api/auth/login"
	login := func(email, pwd string) []byte {
		return marchallObj(t, map[string]string{"email": email, "password": pwd})
	}
	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	env.run(t, []httpTest{
		{
			name: "fields required", method: http.MethodPost, path: path, body: []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{name: "unknown email", method: http.MethodPost, path: path, body: login("bob@test.local", strongPwd), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "wrong password", method: http.MethodPost, path: path, body: login("alice@test.local", "nope"), wantCode: http.StatusBadRequest, wantData: authFailed},
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path, login(" ALICE@test.local", strongPwd))
		env.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Token string `json:"token"`
		}
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		require.NotEmpty(t, resp.Token)

		fresh := env.reload(t, stdt)
		assert.False(t, fresh.Base().LastLogin.IsZero())

		// the token authenticates
		req, rec = newAuthRequest(http.MethodGet, "/api/auth/me", resp.Token)
		env.do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_accountApi_me(t *testing.T) {
	env := setup(t)
	stdt := env.student(t, "Alice", "Smith", "alice@test.local")
	tchr := env.teacher(t, "Bob", "Brown", "bob@test.local")

	env.run(t, []httpTest{
		{name: "auth required", path: "/api/auth/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "student", path: "/api/auth/me", token: getToken(t, env.conf, stdt), wantData: marchallObj(t, stdt)},
		{name: "teacher", path: "/api/auth/me", token: getToken(t, env.conf, tchr), wantData: marchallObj(t, tchr)},
	})
}

func Test_accountApi_refreshToken(t *testing.T) {
	env := setup(t)
	stdt := env.student(t, "Alice", "Smith", "alice@test.local")

	req, rec := newAuthRequest(http.MethodPost, "/api/auth/token-refresh", getToken(t, env.conf, stdt))
	env.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	unmarchallObj(t, rec.Body.Bytes(), &resp)
	assert.NotEmpty(t, resp.Token)
}

func Test_accountApi_unknownWords(t *testing.T) {
	env := setup(t)
	stdt := env.student(t, "Alice", "Smith", "alice@test.local")
	tchr := env.teacher(t, "Bob", "Brown", "bob@test.local")
	token := getToken(t, env.conf, stdt)

	word := account.UnknownWord{Word: "serendipity", Definition: "a happy accident"}

	env.run(t, []httpTest{
		{
			name: "students only", path: "/api/users/unknown-words", token: getToken(t, env.conf, tchr),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "empty", path: "/api/users/unknown-words", token: token,
			wantData: []byte(`{"unknownWords": []}`),
		},
		{
			name: "blank word", method: http.MethodPost, path: "/api/users/unknown-words", token: token,
			body: []byte(`{"word": "   "}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"word": "this field cannot be blank"}),
		},
		{
			name: "add", method: http.MethodPost, path: "/api/users/unknown-words", token: token,
			body: marchallObj(t, word), wantCode: http.StatusCreated,
			wantData: marchallObj(t, map[string]string{"message": "Word saved"}),
		},
		{
			name: "list", path: "/api/users/unknown-words", token: token,
			wantData: marchallObj(t, map[string]interface{}{"unknownWords": []account.UnknownWord{word}}),
		},
	})
}

func Test_accountApi_skipEvaluation(t *testing.T) {
	env := setup(t)
	stdt := env.student(t, "Alice", "Smith", "alice@test.local")
	require.False(t, stdt.Evaluated)

	req, rec := newAuthRequest(http.MethodPost, "/api/users/skip-evaluation", getToken(t, env.conf, stdt))
	env.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fresh := env.reload(t, stdt).(*account.Student)
	assert.True(t, fresh.Evaluated)
	assert.Equal(t, account.LevelBeginner, fresh.Level)
}
