package rediscache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wordwise/backend/core/progress"
)

func Test_newer(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := func(games int64, updated time.Time) progress.Progress {
		p := progress.New("id")
		p.Writing.WordPractice.GamesPlayed = games
		p.LastUpdated = updated
		return p
	}

	tests := []struct {
		name string
		a, b progress.Progress
		want bool
	}{
		{name: "more games", a: snap(3, at), b: snap(2, at), want: true},
		{name: "more games despite a lagging clock", a: snap(3, at.Add(-time.Minute)), b: snap(2, at), want: true},
		{name: "fewer games despite a leading clock", a: snap(2, at.Add(time.Minute)), b: snap(3, at), want: false},
		{name: "same games, later", a: snap(2, at.Add(time.Second)), b: snap(2, at), want: true},
		{name: "identical", a: snap(2, at), b: snap(2, at), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newer(tt.a, tt.b))
		})
	}
}
