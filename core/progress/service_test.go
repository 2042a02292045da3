package progress_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
	"github.com/wordwise/backend/services/events"
	"github.com/wordwise/backend/services/logger"
	"github.com/wordwise/backend/storage/database/inmem"
	"github.com/wordwise/backend/tests"
)

type fixture struct {
	svc      *progress.Service
	accRepo  account.Repository
	prgRepo  progress.Repository
	recorder *eventsvc.Recorder
}

func setup(t *testing.T) fixture {
	db := inmemdb.Open()
	accRepo := inmemdb.NewAccountRepository(db)
	prgRepo := inmemdb.NewProgressRepository(db)
	recorder := eventsvc.NewRecorder()
	svc := progress.NewService(prgRepo, accRepo, logsvc.NewTestLogger(), progress.WithEvents(recorder))
	return fixture{svc: svc, accRepo: accRepo, prgRepo: prgRepo, recorder: recorder}
}

func (f fixture) level(t *testing.T, stdt *account.Student) account.Level {
	return testutil.Reload(t, f.accRepo, stdt).(*account.Student).Level
}

func TestService_Record(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	stdt := testutil.CreateStudent(t, f.accRepo, "Alice", "Smith", "alice@test.local", "")

	t.Run("unknown category", func(t *testing.T) {
		_, err := f.svc.Record(ctx, stdt.ID, progress.Delta{Category: "writing.poems", Total: 1})
		assert.Error(t, err)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := f.svc.RecordWordWriting(ctx, "nope", progress.WordPracticeResult{TotalWords: 1})
		assert.Equal(t, account.ErrNotFound, errors.Cause(err))
	})

	t.Run("oversize submissions cannot wrap the counters", func(t *testing.T) {
		huge, err := f.svc.RecordWordWriting(ctx, stdt.ID, progress.WordPracticeResult{TotalWords: math.MaxInt64, CorrectWords: 1, Score: math.MaxFloat64})
		require.NoError(t, err)
		assert.Equal(t, int64(progress.MaxItemsPerGame), huge.Writing.WordPractice.TotalItems)
		assert.Equal(t, progress.MaxScore, huge.Writing.WordPractice.HighScore)

		next, err := f.svc.RecordWordWriting(ctx, stdt.ID, progress.WordPracticeResult{TotalWords: 10, CorrectWords: 1})
		require.NoError(t, err)
		assert.Equal(t, huge.Writing.WordPractice.TotalItems+10, next.Writing.WordPractice.TotalItems)
		assert.Equal(t, int64(2), next.Writing.WordPractice.CorrectItems)
	})

	t.Run("concurrent writes are not lost", func(t *testing.T) {
		const n = 50
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				_, err := f.svc.RecordSentenceReading(ctx, stdt.ID, progress.SentenceReadingResult{TotalSentences: 2, CorrectPronunciations: 1})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		snap, err := f.svc.GetProgress(ctx, stdt.ID)
		require.NoError(t, err)
		assert.Equal(t, progress.ReadingStats{TotalItems: 2 * n, CorrectPronunciations: n, GamesPlayed: n}, snap.Progress.Reading.SentenceReading)
	})
}

func TestService_EvaluateLevel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	stdt := testutil.CreateStudent(t, f.accRepo, "Alice", "Smith", "alice@test.local", "")
	tchr := testutil.CreateTeacher(t, f.accRepo, "Bob", "Brown", "bob@test.local", "")

	ready := progress.New(stdt.ID)
	ready.Writing.WordPractice = progress.WritingStats{GamesPlayed: 5, TotalItems: 10, CorrectItems: 10}
	ready.Reading.WordReading = progress.ReadingStats{GamesPlayed: 5, TotalItems: 10, CorrectPronunciations: 10}

	level, changed := f.svc.EvaluateLevel(ctx, tchr.ID, ready)
	assert.False(t, changed)
	assert.Empty(t, level)

	level, changed = f.svc.EvaluateLevel(ctx, "nope", ready)
	assert.False(t, changed)
	assert.Empty(t, level)

	level, changed = f.svc.EvaluateLevel(ctx, stdt.ID, ready)
	assert.True(t, changed)
	assert.Equal(t, account.LevelIntermediate, level)
	assert.Equal(t, account.LevelIntermediate, f.level(t, stdt))

	// same progress again: no further change
	level, changed = f.svc.EvaluateLevel(ctx, stdt.ID, ready)
	assert.False(t, changed)
	assert.Equal(t, account.LevelIntermediate, level)

	evts := f.recorder.Events(core.EventLevelChanged)
	require.Len(t, evts, 1)
	assert.Equal(t, stdt.ID, evts[0].AccountID)
	assert.Equal(t, account.LevelBeginner, evts[0].Payload["from"])
}

func TestService_ApplyPlacement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	stdt := testutil.CreateStudent(t, f.accRepo, "Alice", "Smith", "alice@test.local", "")
	tchr := testutil.CreateTeacher(t, f.accRepo, "Bob", "Brown", "bob@test.local", "")

	_, err := f.svc.ApplyPlacement(ctx, tchr, 8)
	assert.Equal(t, progress.ErrNotStudent, err)

	level, err := f.svc.ApplyPlacement(ctx, stdt, 8)
	require.NoError(t, err)
	assert.Equal(t, account.LevelAdvanced, level)

	fresh := testutil.Reload(t, f.accRepo, stdt).(*account.Student)
	assert.Equal(t, account.LevelAdvanced, fresh.Level)
	assert.True(t, fresh.Evaluated)

	// placement may lower the level; it is authoritative
	level, err = f.svc.ApplyPlacement(ctx, fresh, 1)
	require.NoError(t, err)
	assert.Equal(t, account.LevelBeginner, level)
	assert.Len(t, f.recorder.Events(core.EventLevelChanged), 2)
}

func TestService_SweepLevels(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ready := testutil.CreateStudent(t, f.accRepo, "Alice", "Smith", "alice@test.local", "")
	idle := testutil.CreateStudent(t, f.accRepo, "Carol", "Jones", "carol@test.local", "")
	testutil.CreateTeacher(t, f.accRepo, "Bob", "Brown", "bob@test.local", "")

	// written straight to the store, so no evaluation ran yet
	for i := 0; i < 5; i++ {
		for _, d := range []progress.Delta{
			{Category: progress.WordWriting, Total: 2, Correct: 2},
			{Category: progress.WordReading, Total: 2, Correct: 2},
		} {
			_, err := f.prgRepo.Increment(ctx, ready.ID, d, progress.NowFunc())
			require.NoError(t, err)
		}
	}
	assert.Equal(t, account.LevelBeginner, f.level(t, ready))

	promoted, err := f.svc.SweepLevels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)
	assert.Equal(t, account.LevelIntermediate, f.level(t, ready))
	assert.Equal(t, account.LevelBeginner, f.level(t, idle))

	promoted, err = f.svc.SweepLevels(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted)
}

func TestService_ConnectedStudents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := testutil.CreateStudent(t, f.accRepo, "Alice", "Smith", "alice@test.local", "")
	carol := testutil.CreateStudent(t, f.accRepo, "Carol", "Adams", "carol@test.local", "")
	testutil.CreateStudent(t, f.accRepo, "Eve", "Stranger", "eve@test.local", "")
	tchr := testutil.CreateTeacher(t, f.accRepo, "Bob", "Brown", "bob@test.local", "")

	_, err := f.svc.ConnectedStudents(ctx, alice)
	assert.Equal(t, account.ErrWrongRole, err)

	rows, err := f.svc.ConnectedStudents(ctx, tchr)
	require.NoError(t, err)
	assert.Empty(t, rows)

	follow := func(follower, followee account.Account) {
		_, err := f.accRepo.AddFollowEdge(ctx, account.Edge{
			FollowerID: follower.Base().ID, FollowerRole: follower.Role(),
			FolloweeID: followee.Base().ID, FolloweeRole: followee.Role(),
		})
		require.NoError(t, err)
	}
	follow(alice, tchr)
	follow(tchr, alice)
	follow(tchr, carol)

	_, err = f.svc.RecordWordWriting(ctx, carol.ID, progress.WordPracticeResult{TotalWords: 4, CorrectWords: 3, Score: 75})
	require.NoError(t, err)

	rows, err = f.svc.ConnectedStudents(ctx, testutil.Reload(t, f.accRepo, tchr))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, carol.ID, rows[0].Student.ID)
	assert.Equal(t, int64(1), rows[0].Writing.WordPractice.GamesPlayed)
	assert.Equal(t, account.LevelBeginner, rows[0].Level)
	assert.Equal(t, alice.ID, rows[1].Student.ID)
	assert.Zero(t, rows[1].TotalGames())
}
