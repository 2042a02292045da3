package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
)

type placementApi struct {
	auth     *jwtAuth
	svc      *account.Service
	prg      *progress.Service
	validate *validator.Validate
}

// registerPlacementAPI mounts the placement assessment endpoint at the root, as the mobile client expects.
func registerPlacementAPI(app *echo.Echo, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *account.Service, prg *progress.Service, validate *validator.Validate) {
	api := placementApi{auth: auth, svc: svc, prg: prg, validate: validate}
	app.POST("/userLevel-update", api.updateLevel, jwt, studentOnly)
}

func (api *placementApi) updateLevel(ctx echo.Context) error {
	var data progress.PlacementRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PlacementRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if user := core.CleanString(data.User); user != "" && user != acc.Base().ID {
		return errHttpForbidden
	}

	level, err := api.prg.ApplyPlacement(ctx.Request().Context(), acc, *data.Score)
	if err != nil {
		return errors.Wrap(err, "applying placement")
	}
	return ctx.JSON(http.StatusOK, PlacementResponse{Message: "User level updated", UserLevel: level})
}

type PlacementResponse struct {
	Message   string        `json:"message"`
	UserLevel account.Level `json:"userLevel"`
}
