package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// teacherOnly rejects callers whose token is not a teacher's.
func teacherOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.IsTeacher {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// studentOnly rejects callers whose token is not a student's.
func studentOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.IsStudent {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
