package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/wordwise/backend/core"
	"github.com/wordwise/backend/core/account"
)

const (
	contextTokenKey   = "accountToken"
	contextAccountKey = "account"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64        `json:"oriat,omitempty"`
	Email        string       `json:"email,omitempty"`
	Role         account.Role `json:"role,omitempty"`
	IsStudent    bool         `json:"is_student,omitempty"`
	IsTeacher    bool         `json:"is_teacher,omitempty"`
}

type jwtAuth struct {
	conf   *core.Config
	config middleware.JWTConfig
}

func newJWTAuth(conf *core.Config) *jwtAuth {
	return &jwtAuth{
		conf: conf,
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

// GetAccountClaims builds the claims of acc. origIat is kept across token refreshes.
func GetAccountClaims(conf *core.Config, acc account.Account, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	idt := acc.Base()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   idt.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        idt.Email,
		Role:         acc.Role(),
		IsStudent:    acc.Role() == account.RoleStudent,
		IsTeacher:    acc.Role() == account.RoleTeacher,
	}
}

// GenerateToken generates a signed JWT token string representing the account Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *jwtAuth) authenticate(ctx echo.Context, email, pwd string, svc *account.Service) (*Claims, error) {
	acc, err := svc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding account by email")
	}
	if err = acc.Base().CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	acc, err = svc.SetLastLogin(ctx.Request().Context(), acc)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetAccountClaims(a.conf, acc), nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextAccount loads the authenticated account once per request.
func getContextAccount(ctx echo.Context, svc *account.Service, clms ...Claims) (account.Account, error) {
	if acc, ok := ctx.Get(contextAccountKey).(account.Account); ok {
		return acc, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "getting context claims")
		}
	}

	acc, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound { // deleted since the token was issued
			return nil, errUnauthorized
		}
		return nil, errors.Wrap(err, "finding account by ID")
	}
	ctx.Set(contextAccountKey, acc)
	return acc, nil
}

// contextAccountForLogs returns the loaded account, or one built from the claims, or nil.
func contextAccountForLogs(ctx echo.Context) account.Account {
	if acc, ok := ctx.Get(contextAccountKey).(account.Account); ok {
		return acc
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil
	}
	acc := account.New(claims.Role)
	acc.Base().ID = claims.Subject
	acc.Base().Email = claims.Email
	return acc
}

func (a *jwtAuth) refreshToken(ctx echo.Context, svc *account.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	acc, err := getContextAccount(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context account")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(a.conf, GetAccountClaims(a.conf, acc, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
