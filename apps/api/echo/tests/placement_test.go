package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
)

func Test_placementApi_updateLevel(t *testing.T) {
	env := setup(t)
	stdt := env.student(t, "Alice", "Smith", "alice@test.local")
	other := env.student(t, "Carol", "Jones", "carol@test.local")
	tchr := env.teacher(t, "Bob", "Brown", "bob@test.local")
	token := getToken(t, env.conf, stdt)

	path := "/userLevel-update"
	placement := func(user string, score float64) []byte {
		return marchallObj(t, map[string]interface{}{"user": user, "score": score})
	}

	env.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: path, body: placement("", 5), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "students only", method: http.MethodPost, path: path, token: getToken(t, env.conf, tchr),
			body: placement("", 5), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "score required", method: http.MethodPost, path: path, token: token, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"score": "this field is required"}),
		},
		{name: "score out of range", method: http.MethodPost, path: path, token: token, body: placement("", 11), wantCode: http.StatusBadRequest},
		{
			name: "other user", method: http.MethodPost, path: path, token: token, body: placement(other.ID, 5),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "score=2", method: http.MethodPost, path: path, token: token, body: placement("", 2),
			wantData: marchallObj(t, map[string]string{"message": "User level updated", "userLevel": "beginner"}),
		},
		{
			name: "score=0 is valid", method: http.MethodPost, path: path, token: token, body: placement(stdt.ID, 0),
			wantData: marchallObj(t, map[string]string{"message": "User level updated", "userLevel": "beginner"}),
		},
		{
			name: "score=4", method: http.MethodPost, path: path, token: token, body: placement(stdt.ID, 4),
			wantData: marchallObj(t, map[string]string{"message": "User level updated", "userLevel": "intermediate"}),
		},
		{
			name: "score=8", method: http.MethodPost, path: path, token: token, body: placement(stdt.ID, 8),
			wantData: marchallObj(t, map[string]string{"message": "User level updated", "userLevel": "advanced"}),
		},
	})

	fresh := env.reload(t, stdt).(*account.Student)
	assert.Equal(t, account.LevelAdvanced, fresh.Level)
	assert.True(t, fresh.Evaluated)

	// beginner -> intermediate -> advanced
	evts := env.events.Events(core.EventLevelChanged)
	require.Len(t, evts, 2)
	for _, evt := range evts {
		assert.Equal(t, progress.SourcePlacement, evt.Payload["source"])
	}
}

func Test_placementApi_overridesProgress(t *testing.T) {
	env := setup(t)
	stdt := env.student(t, "Alice", "Smith", "alice@test.local")
	token := getToken(t, env.conf, stdt)

	for i := 0; i < 10; i++ {
		env.post(t, token, "/api/progress/writing/wordPractice", progress.WordPracticeResult{TotalWords: 10, CorrectWords: 1})
	}

	req, rec := newAuthRequest(http.MethodPost, "/userLevel-update", token, []byte(`{"score": 8}`))
	env.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	snap := env.snapshot(t, token, "/api/progress")
	assert.Equal(t, "advanced", snap.UserLevel)
	assert.Equal(t, int64(10), snap.Progress.TotalGames())

	fresh := env.reload(t, stdt).(*account.Student)
	assert.True(t, fresh.Evaluated)
}
