package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse is the envelope of every JSON response. Failed requests carry
// Errors and no Data.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []*AppError `json:"errors,omitempty"`
}

// ListDataResponse is the payload of list endpoints.
type ListDataResponse struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}

// DataResponse writes data under the given status.
func DataResponse(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

func CreatedResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusCreated, data)
}

func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return SuccessResponse(c, &ListDataResponse{Rows: rows, Total: total})
}

func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// ErrorsResponse writes one or more errors under the given status.
func ErrorsResponse(c echo.Context, status int, errs []*AppError) error {
	return c.JSON(status, APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Errors:  errs,
	})
}

// ValidationResponse reports request validation failures as 400.
func ValidationResponse(c echo.Context, errs []*AppError) error {
	return ErrorsResponse(c, http.StatusBadRequest, errs)
}

// AppErrorResponse writes err with its own status. Errors that are not an
// AppError become a bare 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError("Something went wrong")
	}
	return ErrorsResponse(c, appErr.Status, []*AppError{appErr})
}
