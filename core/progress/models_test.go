package progress

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelta_Clamp(t *testing.T) {
	tests := []struct {
		name string
		d    Delta
		want Delta
	}{
		{name: "valid", d: Delta{Category: WordWriting, Total: 10, Correct: 8, Score: 80}, want: Delta{Category: WordWriting, Total: 10, Correct: 8, Score: 80}},
		{name: "negatives", d: Delta{Category: WordWriting, Total: -1, Correct: -3, Score: -5}, want: Delta{Category: WordWriting}},
		{name: "correct over total", d: Delta{Category: SentenceWriting, Total: 4, Correct: 9}, want: Delta{Category: SentenceWriting, Total: 4, Correct: 4}},
		{name: "oversize", d: Delta{Category: WordWriting, Total: math.MaxInt64, Correct: math.MaxInt64, Score: math.MaxFloat64}, want: Delta{Category: WordWriting, Total: MaxItemsPerGame, Correct: MaxItemsPerGame, Score: MaxScore}},
		{name: "reading has no score", d: Delta{Category: WordReading, Total: 3, Correct: 2, Score: 99}, want: Delta{Category: WordReading, Total: 3, Correct: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Clamp())
		})
	}
}

func TestProgress_Apply(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := New("id")

	p.Apply(Delta{Category: WordWriting, Total: 10, Correct: 7, Score: 70}, at)
	p.Apply(Delta{Category: WordWriting, Total: 10, Correct: 9, Score: 60}, at)
	p.Apply(Delta{Category: SentenceReading, Total: 5, Correct: 5}, at)
	p.Apply(Delta{Category: "unknown", Total: 100}, at.Add(time.Hour))

	assert.Equal(t, WritingStats{TotalItems: 20, CorrectItems: 16, GamesPlayed: 2, HighScore: 70}, p.Writing.WordPractice)
	assert.Equal(t, ReadingStats{TotalItems: 5, CorrectPronunciations: 5, GamesPlayed: 1}, p.Reading.SentenceReading)
	assert.Equal(t, int64(3), p.TotalGames())
	assert.Equal(t, 80.0, p.WritingAccuracy())
	assert.Equal(t, 100.0, p.ReadingAccuracy())
	assert.Equal(t, at, p.LastUpdated)

	// a write stamped by a lagging clock still counts but keeps the newer timestamp
	p.Apply(Delta{Category: WordReading, Total: 1, Correct: 1}, at.Add(-time.Minute))
	assert.Equal(t, int64(1), p.Reading.WordReading.GamesPlayed)
	assert.Equal(t, at, p.LastUpdated)
}

func TestResults_Delta(t *testing.T) {
	assert.Equal(t, Delta{Category: WordWriting, Total: 10, Correct: 8, Score: 80},
		WordPracticeResult{TotalWords: 10, CorrectWords: 8, Score: 80}.Delta())
	assert.Equal(t, Delta{Category: SentenceWriting, Total: 5, Correct: 4, Score: 90},
		SentencePracticeResult{TotalSentences: 5, CorrectSentences: 4, Score: 90}.Delta())
	assert.Equal(t, Delta{Category: WordReading, Total: 6, Correct: 3},
		WordReadingResult{TotalWords: 6, CorrectPronunciations: 3}.Delta())
	assert.Equal(t, Delta{Category: SentenceReading, Total: 2, Correct: 1},
		SentenceReadingResult{TotalSentences: 2, CorrectPronunciations: 1}.Delta())
}
