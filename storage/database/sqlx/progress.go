package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
)

const progressColumns = `user_id,
	word_practice_total, word_practice_correct, word_practice_games, word_practice_high_score,
	sentence_practice_total, sentence_practice_correct, sentence_practice_games, sentence_practice_high_score,
	word_reading_total, word_reading_correct, word_reading_games,
	sentence_reading_total, sentence_reading_correct, sentence_reading_games,
	last_updated`

// column prefix of each category
var categoryColumns = map[progress.Category]string{
	progress.WordWriting:     "word_practice",
	progress.SentenceWriting: "sentence_practice",
	progress.WordReading:     "word_reading",
	progress.SentenceReading: "sentence_reading",
}

type progressRow struct {
	UserID                    string    `db:"user_id"`
	WordPracticeTotal         int64     `db:"word_practice_total"`
	WordPracticeCorrect       int64     `db:"word_practice_correct"`
	WordPracticeGames         int64     `db:"word_practice_games"`
	WordPracticeHighScore     float64   `db:"word_practice_high_score"`
	SentencePracticeTotal     int64     `db:"sentence_practice_total"`
	SentencePracticeCorrect   int64     `db:"sentence_practice_correct"`
	SentencePracticeGames     int64     `db:"sentence_practice_games"`
	SentencePracticeHighScore float64   `db:"sentence_practice_high_score"`
	WordReadingTotal          int64     `db:"word_reading_total"`
	WordReadingCorrect        int64     `db:"word_reading_correct"`
	WordReadingGames          int64     `db:"word_reading_games"`
	SentenceReadingTotal      int64     `db:"sentence_reading_total"`
	SentenceReadingCorrect    int64     `db:"sentence_reading_correct"`
	SentenceReadingGames      int64     `db:"sentence_reading_games"`
	LastUpdated               time.Time `db:"last_updated"`
}

func (row progressRow) toProgress() progress.Progress {
	return progress.Progress{
		UserID: row.UserID,
		Writing: progress.Writing{
			WordPractice: progress.WritingStats{
				TotalItems:   row.WordPracticeTotal,
				CorrectItems: row.WordPracticeCorrect,
				GamesPlayed:  row.WordPracticeGames,
				HighScore:    row.WordPracticeHighScore,
			},
			SentencePractice: progress.WritingStats{
				TotalItems:   row.SentencePracticeTotal,
				CorrectItems: row.SentencePracticeCorrect,
				GamesPlayed:  row.SentencePracticeGames,
				HighScore:    row.SentencePracticeHighScore,
			},
		},
		Reading: progress.Reading{
			WordReading: progress.ReadingStats{
				TotalItems:            row.WordReadingTotal,
				CorrectPronunciations: row.WordReadingCorrect,
				GamesPlayed:           row.WordReadingGames,
			},
			SentenceReading: progress.ReadingStats{
				TotalItems:            row.SentenceReadingTotal,
				CorrectPronunciations: row.SentenceReadingCorrect,
				GamesPlayed:           row.SentenceReadingGames,
			},
		},
		LastUpdated: row.LastUpdated.UTC(),
	}
}

type progressRepository struct {
	db core.DB
}

func NewProgressRepository(db core.DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) GetOrCreate(ctx context.Context, userID string) (progress.Progress, error) {
	if !validUUID(userID) {
		return progress.Progress{}, account.ErrNotFound
	}

	var row progressRow
	err := core.InTx(ctx, repo.db, func(tx core.DBExecutor) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO progress (user_id, last_updated) VALUES ($1, $2)
			ON CONFLICT (user_id) DO NOTHING`, userID, progress.NowFunc()); err != nil {
			return err
		}
		return tx.GetContext(ctx, &row, "SELECT "+progressColumns+" FROM progress WHERE user_id = $1", userID)
	})
	if err != nil {
		if isPQError(err, pqForeignKeyViolation) || errors.Cause(err) == sql.ErrNoRows {
			return progress.Progress{}, account.ErrNotFound
		}
		return progress.Progress{}, errors.Wrap(err, "getting progress")
	}
	return row.toProgress(), nil
}

// Increment applies d in a single upsert so that concurrent submissions never lose counts.
func (repo *progressRepository) Increment(ctx context.Context, userID string, d progress.Delta, at time.Time) (progress.Progress, error) {
	col, ok := categoryColumns[d.Category]
	if !ok {
		return progress.Progress{}, errors.Errorf("unknown progress category %q", d.Category)
	}
	if !validUUID(userID) {
		return progress.Progress{}, account.ErrNotFound
	}

	args := []interface{}{userID, d.Total, d.Correct, at}
	if d.Category.IsWriting() {
		args = append(args, d.Score)
	}

	var row progressRow
	if err := repo.db.GetContext(ctx, &row, incrementQuery(col, d.Category.IsWriting()), args...); err != nil {
		if isPQError(err, pqForeignKeyViolation) {
			return progress.Progress{}, account.ErrNotFound
		}
		return progress.Progress{}, errors.Wrap(err, "incrementing progress")
	}
	return row.toProgress(), nil
}

func incrementQuery(col string, withScore bool) string {
	var insCols, insVals, setScore string
	if withScore {
		insCols = fmt.Sprintf(", %s_high_score", col)
		insVals = ", $5"
		setScore = fmt.Sprintf(",\n\t\t\t%[1]s_high_score = GREATEST(progress.%[1]s_high_score, EXCLUDED.%[1]s_high_score)", col)
	}

	return fmt.Sprintf(`
		INSERT INTO progress (user_id, %[1]s_total, %[1]s_correct, %[1]s_games, last_updated%[2]s)
		VALUES ($1, $2, $3, 1, $4%[3]s)
		ON CONFLICT (user_id) DO UPDATE SET
			%[1]s_total = progress.%[1]s_total + EXCLUDED.%[1]s_total,
			%[1]s_correct = progress.%[1]s_correct + EXCLUDED.%[1]s_correct,
			%[1]s_games = progress.%[1]s_games + 1,
			last_updated = GREATEST(progress.last_updated, EXCLUDED.last_updated)%[4]s
		RETURNING `, col, insCols, insVals, setScore) + progressColumns
}
