package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
)

type followApi struct {
	auth     *jwtAuth
	svc      *account.Service
	mgr      *account.FollowManager
	validate *validator.Validate
}

func registerFollowAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *account.Service, mgr *account.FollowManager, validate *validator.Validate) {
	api := followApi{auth: auth, svc: svc, mgr: mgr, validate: validate}

	fg := g.Group("/follow", jwt)
	fg.POST("/follow", api.follow)
	fg.POST("/unfollow", api.unfollow)
	fg.GET("/search", api.search)
	fg.GET("/following", api.following)
	fg.GET("/followers", api.followers)
}

// Handlers

func (api *followApi) follow(ctx echo.Context) error {
	acc, targetID, err := api.bindTarget(ctx)
	if err != nil {
		return err
	}
	if err = api.mgr.Follow(ctx.Request().Context(), acc, targetID); err != nil {
		return errors.Wrap(err, "following account")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Followed successfully"})
}

func (api *followApi) unfollow(ctx echo.Context) error {
	acc, targetID, err := api.bindTarget(ctx)
	if err != nil {
		return err
	}
	if err = api.mgr.Unfollow(ctx.Request().Context(), acc, targetID); err != nil {
		return errors.Wrap(err, "unfollowing account")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Unfollowed successfully"})
}

func (api *followApi) search(ctx echo.Context) error {
	var q SearchQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to SearchQuery")
	}
	if err := api.validate.Struct(q); err != nil {
		return err
	}

	person, err := api.mgr.SearchByEmail(ctx.Request().Context(), q.Email, account.Role(q.Type))
	if err != nil {
		return errors.Wrap(err, "searching account")
	}
	return ctx.JSON(http.StatusOK, PersonResponse{Person: person})
}

func (api *followApi) following(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	sums, err := api.mgr.ListFollowing(ctx.Request().Context(), acc)
	if err != nil {
		return errors.Wrap(err, "listing following")
	}
	return ctx.JSON(http.StatusOK, FollowingResponse{Following: sums})
}

func (api *followApi) followers(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	sums, err := api.mgr.ListFollowers(ctx.Request().Context(), acc)
	if err != nil {
		return errors.Wrap(err, "listing followers")
	}
	return ctx.JSON(http.StatusOK, FollowersResponse{Followers: sums})
}

// bindTarget reads the id of the account to (un)follow.
// Students name a teacherId and teachers a studentId.
func (api *followApi) bindTarget(ctx echo.Context) (account.Account, string, error) {
	var data FollowRequest
	if err := ctx.Bind(&data); err != nil {
		return nil, "", errors.Wrap(err, "binding to FollowRequest")
	}

	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return nil, "", errors.Wrap(err, "getting context account")
	}

	targetID, field := data.TeacherID, "teacherId"
	if acc.Role() == account.RoleTeacher {
		targetID, field = data.StudentID, "studentId"
	}
	if targetID = core.CleanString(targetID, false); targetID == "" {
		return nil, "", core.NewFieldError(field, "this field is required")
	}
	return acc, targetID, nil
}

type (
	FollowRequest struct {
		TeacherID string `json:"teacherId"`
		StudentID string `json:"studentId"`
	}

	SearchQuery struct {
		Email string `query:"email" validate:"required,email"`
		Type  string `query:"type" validate:"required,accountrole"`
	}

	PersonResponse struct {
		Person account.Account `json:"person"`
	}

	FollowingResponse struct {
		Following []account.Summary `json:"following"`
	}

	FollowersResponse struct {
		Followers []account.Summary `json:"followers"`
	}
)
