package progress

import "github.com/wordwise/backend/core/account"

// promotion thresholds
const (
	intermediateMinGames    = 10
	intermediateMinAccuracy = 70.0
	advancedMinGames        = 25
	advancedMinAccuracy     = 80.0

	placementAdvancedScore     = 7.0
	placementIntermediateScore = 4.0
)

// NextLevel returns the level a student at `current` reaches with progress p.
// It moves at most one step and never returns a lower level.
func NextLevel(current account.Level, p Progress) account.Level {
	games := p.TotalGames()
	wAcc, rAcc := p.WritingAccuracy(), p.ReadingAccuracy()

	switch current {
	case account.LevelBeginner:
		if games >= intermediateMinGames && wAcc >= intermediateMinAccuracy && rAcc >= intermediateMinAccuracy {
			return account.LevelIntermediate
		}
	case account.LevelIntermediate:
		if games >= advancedMinGames && wAcc >= advancedMinAccuracy && rAcc >= advancedMinAccuracy {
			return account.LevelAdvanced
		}
	}
	return current
}

// PlacementLevel maps an average assessment score (0-10) to a level.
func PlacementLevel(score float64) account.Level {
	switch {
	case score >= placementAdvancedScore:
		return account.LevelAdvanced
	case score >= placementIntermediateScore:
		return account.LevelIntermediate
	default:
		return account.LevelBeginner
	}
}

// PlacementRequest is the body of the placement assessment endpoint.
// User defaults to the caller and must match it.
type PlacementRequest struct {
	User  string   `json:"user"`
	Score *float64 `json:"score" validate:"required,min=0,max=10"`
}
