package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes data inside the envelope with a matching HTTP status.
func DataResponse(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, APIResponse{Status: status, Message: http.StatusText(status), Data: data})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

func BadRequestResponse(c echo.Context, problems interface{}) error {
	return DataResponse(c, http.StatusBadRequest, problems)
}

// AppErrorResponse unwraps err to an AppError. Anything else is hidden
// behind a generic 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError("something went wrong")
	}
	return DataResponse(c, appErr.Status, []*AppError{appErr})
}
