package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// bcryptMaxBytes is the longest password bcrypt accepts.
const bcryptMaxBytes = 72

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
// Fields are reported under their wire names (json, form or query tag).
type echoValidator struct {
	v *validator.Validate
}

func NewValidator() *echoValidator {
	v := validator.New()
	v.RegisterTagNameFunc(wireName)
	return &echoValidator{v: v}
}

func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func wireName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form", "query"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "max":
		return boundError(fe)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

// boundError words min/max for strings as lengths and for numbers as values.
func boundError(fe validator.FieldError) string {
	field, limit := fe.Field(), fe.Param()
	if fe.Kind() != reflect.String {
		if fe.Tag() == "min" {
			return fmt.Sprintf("%s must be >= %s", field, limit)
		}
		return fmt.Sprintf("%s must be <= %s", field, limit)
	}
	if fe.Tag() == "min" {
		return fmt.Sprintf("%s must be at least %s characters", field, limit)
	}
	if field == "password" && limit == fmt.Sprint(bcryptMaxBytes) {
		return fmt.Sprintf("password must be at most %d characters, the bcrypt limit", bcryptMaxBytes)
	}
	return fmt.Sprintf("%s must be at most %s characters", field, limit)
}
