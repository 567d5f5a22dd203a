package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes data as the raw JSON body.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, data)
}

// ListResponse writes a list with its size.
func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return DataResponse(c, http.StatusOK, &ListDataResponse{
		Rows:  rows,
		Total: total,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// CreatedResponse writes created response.
func CreatedResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusCreated, data)
}

// BadRequestResponse writes a 400 with validation details.
func BadRequestResponse(c echo.Context, details []ValidationError) error {
	return AppErrorResponse(c, ValidationFailed(details))
}

// InternalServerErrorResponse writes internal server error.
func InternalServerErrorResponse(c echo.Context) error {
	return DataResponse(c, http.StatusInternalServerError, ErrorResponse{
		Error: "Something went wrong",
		Code:  "ERR_INTERNAL",
	})
}

// AppErrorResponse writes application error response. Errors that are not
// an *AppError become a generic 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return DataResponse(c, appErr.Status, appErr.Body())
	}
	return InternalServerErrorResponse(c)
}

// HTTPErrorHandler renders echo's own errors (unknown route, bad method,
// oversized body) in the same body shape as handler errors.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = DataResponse(c, he.Code, ErrorResponse{Error: msg, Code: codeForStatus(he.Code)})
		return
	}
	_ = AppErrorResponse(c, err)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "ERR_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "ERR_METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "ERR_TOO_LARGE"
	case http.StatusUnsupportedMediaType:
		return "ERR_UNSUPPORTED_MEDIA_TYPE"
	case http.StatusTooManyRequests:
		return "ERR_RATE_LIMITED"
	}
	if status >= 500 {
		return "ERR_INTERNAL"
	}
	return "ERR_BAD_REQUEST"
}
