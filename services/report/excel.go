package reportsvc

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/wordwise/backend/core/progress"
)

const (
	sheetName = "Progress"
	// ContentType of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var header = []interface{}{
	"First name", "Last name", "Email", "Level", "Games played",
	"Writing accuracy (%)", "Reading accuracy (%)",
	"Word practice games", "Word practice high score",
	"Sentence practice games", "Sentence practice high score",
	"Word reading games", "Sentence reading games",
	"Last updated (UTC)",
}

// ProgressWorkbook renders one row per student into an xlsx workbook.
func ProgressWorkbook(rows []progress.StudentProgress) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err = f.SetCellStyle(sheetName, "A1", lastCol+"1", bold); err != nil {
		return nil, errors.Wrap(err, "styling header")
	}
	if err = f.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
		return nil, errors.Wrap(err, "sizing columns")
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		var updated interface{}
		if !r.LastUpdated.IsZero() {
			updated = r.LastUpdated.Format("2006-01-02 15:04")
		}
		values := []interface{}{
			r.Student.FirstName, r.Student.LastName, r.Student.Email, string(r.Level), r.TotalGames(),
			round(r.WritingAccuracy()), round(r.ReadingAccuracy()),
			r.Writing.WordPractice.GamesPlayed, r.Writing.WordPractice.HighScore,
			r.Writing.SentencePractice.GamesPlayed, r.Writing.SentencePractice.HighScore,
			r.Reading.WordReading.GamesPlayed, r.Reading.SentenceReading.GamesPlayed,
			updated,
		}
		if err = f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("writing row %d", i+2))
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf, nil
}

func round(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
