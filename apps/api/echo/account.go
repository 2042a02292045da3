package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
)

type accountApi struct {
	auth     *jwtAuth
	svc      *account.Service
	validate *validator.Validate
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *account.Service, validate *validator.Validate) {
	api := accountApi{auth: auth, svc: svc, validate: validate}

	ag := g.Group("/auth")
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.GET("/me", api.me, jwt)

	ug := g.Group("/users", jwt, studentOnly)
	ug.GET("/unknown-words", api.listUnknownWords)
	ug.POST("/unknown-words", api.addUnknownWord)
	ug.POST("/skip-evaluation", api.skipEvaluation)
}

// Handlers

func (api *accountApi) register(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	acc, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering account")
	}
	token, err := GenerateToken(api.auth.conf, GetAccountClaims(api.auth.conf, acc))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, RegisterResponse{Token: token, Account: acc})
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(ctx, data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.auth.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *accountApi) me(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *accountApi) listUnknownWords(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	stdt, ok := acc.(*account.Student)
	if !ok {
		return account.ErrWrongRole
	}
	return ctx.JSON(http.StatusOK, UnknownWordsResponse{UnknownWords: stdt.UnknownWords})
}

func (api *accountApi) addUnknownWord(ctx echo.Context) error {
	var data account.UnknownWord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UnknownWord")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if err = api.svc.AddUnknownWord(ctx.Request().Context(), acc, data); err != nil {
		return errors.Wrap(err, "adding unknown word")
	}
	return ctx.JSON(http.StatusCreated, MessageResponse{Message: "Word saved"})
}

func (api *accountApi) skipEvaluation(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	if err = api.svc.SkipEvaluation(ctx.Request().Context(), acc); err != nil {
		return errors.Wrap(err, "skipping evaluation")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Evaluation skipped"})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	RegisterResponse struct {
		Token   string          `json:"token"`
		Account account.Account `json:"account"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}

	UnknownWordsResponse struct {
		UnknownWords []account.UnknownWord `json:"unknownWords"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
