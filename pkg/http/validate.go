package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// ruleMessages phrase a failed validation tag. %[1]s is the field and %[2]s
// the tag parameter.
var ruleMessages = map[string]string{
	"required":         "%[1]s is required",
	"required_without": "%[1]s is required when %[2]s is missing",
	"required_with":    "%[1]s is required together with %[2]s",
	"oneof":            "%[1]s must be one of: %[2]s",
	"gt":               "%[1]s must be greater than %[2]s",
	"gte":              "%[1]s must be greater than or equal to %[2]s",
	"lt":               "%[1]s must be less than %[2]s",
	"lte":              "%[1]s must be less than or equal to %[2]s",
}

// ruleParams names the Params key a tag parameter is reported under.
var ruleParams = map[string]string{
	"min":              "min",
	"gte":              "min",
	"max":              "max",
	"lte":              "max",
	"gt":               "value",
	"lt":               "value",
	"oneof":            "options",
	"required_without": "without",
	"required_with":    "with",
}

// ReadAndValidateRequest binds the body into req, applies `default` tags and
// validates it. It returns nil on success.
func ReadAndValidateRequest(c echo.Context, req interface{}) []*AppError {
	if err := c.Bind(req); err != nil {
		return []*AppError{malformed(err)}
	}
	if err := defaults.Set(req); err != nil {
		return []*AppError{malformed(err)}
	}
	err := validate.StructCtx(c.Request().Context(), req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []*AppError{malformed(err)}
	}
	out := make([]*AppError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, fieldError(fe))
	}
	return out
}

func malformed(err error) *AppError {
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return newAppError(http.StatusBadRequest, "ERR_UNKNOWN", msg)
}

func fieldError(fe validator.FieldError) *AppError {
	tag, param := fe.Tag(), fe.Param()

	format, ok := ruleMessages[tag]
	switch {
	case tag == "min":
		format = "%[1]s must be at least %[2]s" + unit(fe)
	case tag == "max":
		format = "%[1]s must be at most %[2]s" + unit(fe)
	case !ok:
		format = "%[1]s failed validation: " + tag
	}
	display := param
	if tag == "oneof" {
		display = strings.ReplaceAll(param, " ", ", ")
	}

	e := newAppError(http.StatusBadRequest, "ERR_"+strings.ToUpper(tag), fmt.Sprintf(format, fe.Field(), display))
	e.Field = fe.Field()
	if key, ok := ruleParams[tag]; ok {
		if tag == "oneof" {
			e.WithParam(key, strings.Fields(param))
		} else {
			e.WithParam(key, param)
		}
	}
	return e
}

func unit(fe validator.FieldError) string {
	switch fe.Kind() {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Map, reflect.Array:
		return " items"
	default:
		return ""
	}
}
