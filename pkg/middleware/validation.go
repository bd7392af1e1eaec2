package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// fieldMessages holds the human readable reason per json field and failed tag.
var fieldMessages = map[string]map[string]string{
	"name": {
		"required": "name should be specified",
		"notblank": "name should be specified",
		"min":      "name size should be between 3 and 20 letters",
		"max":      "name size should be between 3 and 20 letters",
	},
	"email": {
		"required": "email should be specified",
		"notblank": "email should be specified",
		"email":    "email should have valid structure example example@yandex.ru",
	},
	"age": {
		"required": "age should be specified",
		"min":      "min valid age 7",
		"max":      "max valid age 100",
	},
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// ValidateRequest checks obj against its validate tags and returns a map of
// json field name to reason. A nil map means obj is valid.
func ValidateRequest(obj any) map[string]string {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"request": err.Error()}
	}

	fieldErrors := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// keep the first failure per field; tags are checked in declaration order
		if _, seen := fieldErrors[fe.Field()]; seen {
			continue
		}
		fieldErrors[fe.Field()] = getErrorMsg(fe)
	}
	return fieldErrors
}

func getErrorMsg(fe validator.FieldError) string {
	if msgs, ok := fieldMessages[fe.Field()]; ok {
		if msg, ok := msgs[fe.Tag()]; ok {
			return msg
		}
	}
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too small"
	case "max":
		return "Value is too large"
	default:
		return "Invalid value"
	}
}
