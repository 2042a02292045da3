package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
	reportsvc "github.com/wordwise/backend/services/report"
)

type progressApi struct {
	auth *jwtAuth
	svc  *account.Service
	prg  *progress.Service
	conf core.ProgressConfig
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *account.Service, prg *progress.Service, conf core.ProgressConfig) {
	api := progressApi{auth: auth, svc: svc, prg: prg, conf: conf}

	pg := g.Group("/progress", jwt)
	pg.GET("", api.get)
	pg.GET("/report", api.report, teacherOnly)
	pg.GET("/:studentId", api.getStudent, teacherOnly)
	pg.POST("/writing/wordPractice", api.wordPractice)
	pg.POST("/writing/sentencePractice", api.sentencePractice)
	pg.POST("/reading/wordReading", api.wordReading)
	pg.POST("/reading/sentenceReading", api.sentenceReading)
}

// Handlers

func (api *progressApi) get(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	snap, err := api.prg.GetProgress(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return errUnauthorized
		}
		return errors.Wrap(err, "getting progress")
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *progressApi) getStudent(ctx echo.Context) error {
	studentID := ctx.Param("studentId")
	if api.conf.RestrictTeacherView {
		acc, err := getContextAccount(ctx, api.svc)
		if err != nil {
			return errors.Wrap(err, "getting context account")
		}
		if !acc.HasFollower(studentID) && !acc.IsFollowing(studentID) {
			return errHttpForbidden
		}
	}

	snap, err := api.prg.GetStudentProgress(ctx.Request().Context(), studentID)
	if err != nil {
		switch errors.Cause(err) {
		case account.ErrNotFound, progress.ErrNotStudent:
			return errStudentNotFound
		}
		return errors.Wrap(err, "getting student progress")
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *progressApi) report(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	rows, err := api.prg.ConnectedStudents(ctx.Request().Context(), acc)
	if err != nil {
		return errors.Wrap(err, "listing connected students")
	}
	buf, err := reportsvc.ProgressWorkbook(rows)
	if err != nil {
		return errors.Wrap(err, "building progress workbook")
	}

	filename := "progress-" + progress.NowFunc().Format("20060102") + ".xlsx"
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Stream(http.StatusOK, reportsvc.ContentType, buf)
}

func (api *progressApi) wordPractice(ctx echo.Context) error {
	var data progress.WordPracticeResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WordPracticeResult")
	}
	return api.record(ctx, data.Delta(), "Word practice progress updated")
}

func (api *progressApi) sentencePractice(ctx echo.Context) error {
	var data progress.SentencePracticeResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SentencePracticeResult")
	}
	return api.record(ctx, data.Delta(), "Sentence practice progress updated")
}

func (api *progressApi) wordReading(ctx echo.Context) error {
	var data progress.WordReadingResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WordReadingResult")
	}
	return api.record(ctx, data.Delta(), "Word reading progress updated")
}

func (api *progressApi) sentenceReading(ctx echo.Context) error {
	var data progress.SentenceReadingResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SentenceReadingResult")
	}
	return api.record(ctx, data.Delta(), "Sentence reading progress updated")
}

func (api *progressApi) record(ctx echo.Context, d progress.Delta, msg string) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if _, err = api.prg.Record(ctx.Request().Context(), claims.Subject, d); err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return errUnauthorized
		}
		return errors.Wrap(err, "recording progress")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: msg})
}
