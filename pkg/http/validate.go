package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// newValidator reports fields by their json/query name so messages match
// what the client sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// rule describes how one validator tag is reported. %[1]s is the field and
// %[2]s the tag parameter.
type rule struct {
	message    string
	strMessage string
	param      string
}

var rules = map[string]rule{
	"required": {message: "%[1]s is required"},
	"alphanum": {message: "%[1]s must contain only letters and digits"},
	"min":      {message: "%[1]s must be at least %[2]s", strMessage: "%[1]s must be at least %[2]s characters", param: "min"},
	"max":      {message: "%[1]s must be at most %[2]s", strMessage: "%[1]s must be at most %[2]s characters", param: "max"},
	"gt":       {message: "%[1]s must be greater than %[2]s", param: "value"},
	"gte":      {message: "%[1]s must be greater than or equal to %[2]s", param: "min"},
	"lt":       {message: "%[1]s must be less than %[2]s", param: "value"},
	"lte":      {message: "%[1]s must be less than or equal to %[2]s", param: "max"},
	"oneof":    {message: "%[1]s must be one of: %[2]s", param: "options"},
}

// ReadAndValidateRequest binds query/body into req, fills defaults and
// validates it. It returns nil or the problems to report.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return describe(err)
	}
	if err := defaults.Set(req); err != nil {
		return describe(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return describe(err)
	}
	return nil
}

func describe(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, describeField(fe))
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: CodeUnknown, Message: msg}}
}

func describeField(fe validator.FieldError) ValidationError {
	ve := ValidationError{
		Code:  "ERR_" + strings.ToUpper(fe.Tag()),
		Field: fe.Field(),
	}

	r, ok := rules[fe.Tag()]
	if !ok {
		ve.Message = fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
		return ve
	}

	param := fe.Param()
	tmpl := r.message
	if r.strMessage != "" && fe.Kind() == reflect.String {
		tmpl = r.strMessage
	}
	if fe.Tag() == "oneof" {
		ve.Params = map[string]interface{}{r.param: strings.Fields(param)}
		param = strings.Join(strings.Fields(param), ", ")
	} else if r.param != "" {
		ve.Params = map[string]interface{}{r.param: param}
	}
	ve.Message = fmt.Sprintf(tmpl, fe.Field(), param)
	return ve
}
