package progress

import (
	"time"

	"github.com/wordwise/backend/core/account"
)

// Category identifies one of the four practice counters.
type Category string

const (
	WordWriting     Category = "writing.wordPractice"
	SentenceWriting Category = "writing.sentencePractice"
	WordReading     Category = "reading.wordReading"
	SentenceReading Category = "reading.sentenceReading"
)

var Categories = []Category{WordWriting, SentenceWriting, WordReading, SentenceReading}

func (c Category) Valid() bool {
	switch c {
	case WordWriting, SentenceWriting, WordReading, SentenceReading:
		return true
	}
	return false
}

func (c Category) IsWriting() bool { return c == WordWriting || c == SentenceWriting }

type (
	WritingStats struct {
		TotalItems   int64   `json:"totalItems"`
		CorrectItems int64   `json:"correctItems"`
		GamesPlayed  int64   `json:"gamesPlayed"`
		HighScore    float64 `json:"highScore"`
	}

	ReadingStats struct {
		TotalItems            int64 `json:"totalItems"`
		CorrectPronunciations int64 `json:"correctPronunciations"`
		GamesPlayed           int64 `json:"gamesPlayed"`
	}

	Writing struct {
		WordPractice     WritingStats `json:"wordPractice"`
		SentencePractice WritingStats `json:"sentencePractice"`
	}

	Reading struct {
		WordReading     ReadingStats `json:"wordReading"`
		SentenceReading ReadingStats `json:"sentenceReading"`
	}

	// Progress holds the cumulative counters of one account. Counters never decrease.
	Progress struct {
		UserID      string    `json:"userId"`
		Writing     Writing   `json:"writing"`
		Reading     Reading   `json:"reading"`
		LastUpdated time.Time `json:"lastUpdated"` // UTC
	}

	// Snapshot is what the query surface returns. UserLevel is empty for teachers.
	Snapshot struct {
		UserLevel account.Level `json:"userLevel"`
		Progress  Progress      `json:"progress"`
	}

	// StudentProgress is one row of a teacher report.
	StudentProgress struct {
		Student account.Summary
		Level   account.Level
		Progress
	}
)

func New(userID string) Progress {
	return Progress{UserID: userID}
}

// WritingAccuracy is the percentage of correct items over both writing categories, 0 without items.
func (p Progress) WritingAccuracy() float64 {
	w := p.Writing
	return percent(w.WordPractice.CorrectItems+w.SentencePractice.CorrectItems,
		w.WordPractice.TotalItems+w.SentencePractice.TotalItems)
}

// ReadingAccuracy is the percentage of correct pronunciations over both reading categories, 0 without items.
func (p Progress) ReadingAccuracy() float64 {
	r := p.Reading
	return percent(r.WordReading.CorrectPronunciations+r.SentenceReading.CorrectPronunciations,
		r.WordReading.TotalItems+r.SentenceReading.TotalItems)
}

func (p Progress) TotalGames() int64 {
	return p.Writing.WordPractice.GamesPlayed + p.Writing.SentencePractice.GamesPlayed +
		p.Reading.WordReading.GamesPlayed + p.Reading.SentenceReading.GamesPlayed
}

func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Delta is the result of one finished game in one category.
type Delta struct {
	Category Category
	Total    int64
	Correct  int64
	Score    float64 // writing only
}

// Per-game caps on submitted values. They keep the cumulative counters far from int64 overflow.
const (
	MaxItemsPerGame = 10000
	MaxScore        = 10000.0
)

// Clamp bounds Total to [0, MaxItemsPerGame] and Score to [0, MaxScore], caps Correct to Total
// and drops Score for reading categories.
func (d Delta) Clamp() Delta {
	if d.Total < 0 {
		d.Total = 0
	}
	if d.Total > MaxItemsPerGame {
		d.Total = MaxItemsPerGame
	}
	if d.Correct < 0 {
		d.Correct = 0
	}
	if d.Correct > d.Total {
		d.Correct = d.Total
	}
	if d.Score < 0 || !d.Category.IsWriting() {
		d.Score = 0
	}
	if d.Score > MaxScore {
		d.Score = MaxScore
	}
	return d
}

// Apply folds d into p. LastUpdated never moves backwards. Repositories that cannot increment atomically apply it under their own lock.
func (p *Progress) Apply(d Delta, at time.Time) {
	switch d.Category {
	case WordWriting:
		applyWriting(&p.Writing.WordPractice, d)
	case SentenceWriting:
		applyWriting(&p.Writing.SentencePractice, d)
	case WordReading:
		applyReading(&p.Reading.WordReading, d)
	case SentenceReading:
		applyReading(&p.Reading.SentenceReading, d)
	default:
		return
	}
	if at.After(p.LastUpdated) {
		p.LastUpdated = at
	}
}

func applyWriting(s *WritingStats, d Delta) {
	s.GamesPlayed++
	s.TotalItems += d.Total
	s.CorrectItems += d.Correct
	if d.Score > s.HighScore {
		s.HighScore = d.Score
	}
}

func applyReading(s *ReadingStats, d Delta) {
	s.GamesPlayed++
	s.TotalItems += d.Total
	s.CorrectPronunciations += d.Correct
}

// Game results as posted by the client. Missing counts decode as zero.
type (
	WordPracticeResult struct {
		TotalWords   int64   `json:"totalWords"`
		CorrectWords int64   `json:"correctWords"`
		Score        float64 `json:"score"`
	}

	SentencePracticeResult struct {
		TotalSentences   int64   `json:"totalSentences"`
		CorrectSentences int64   `json:"correctSentences"`
		Score            float64 `json:"score"`
	}

	WordReadingResult struct {
		TotalWords            int64 `json:"totalWords"`
		CorrectPronunciations int64 `json:"correctPronunciations"`
	}

	SentenceReadingResult struct {
		TotalSentences        int64 `json:"totalSentences"`
		CorrectPronunciations int64 `json:"correctPronunciations"`
	}
)

func (r WordPracticeResult) Delta() Delta {
	return Delta{Category: WordWriting, Total: r.TotalWords, Correct: r.CorrectWords, Score: r.Score}
}

func (r SentencePracticeResult) Delta() Delta {
	return Delta{Category: SentenceWriting, Total: r.TotalSentences, Correct: r.CorrectSentences, Score: r.Score}
}

func (r WordReadingResult) Delta() Delta {
	return Delta{Category: WordReading, Total: r.TotalWords, Correct: r.CorrectPronunciations}
}

func (r SentenceReadingResult) Delta() Delta {
	return Delta{Category: SentenceReading, Total: r.TotalSentences, Correct: r.CorrectPronunciations}
}
