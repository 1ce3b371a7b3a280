package core

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator and converts its output into the
// field-keyed message maps the API returns to clients.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator. Field names in error output follow the
// struct's json tags so clients see the wire names, not Go identifiers.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// Struct validates s and returns the raw validator error, if any.
func (v *Validator) Struct(s any) error {
	return v.validate.Struct(s)
}

// FieldErrors validates s and returns a map of json field name to messages.
// messages maps "field.tag" or "field" to a client-facing message; fields
// without an entry get a generic fallback. A nil result means s is valid.
func (v *Validator) FieldErrors(s any, messages map[string]string) map[string][]string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		v.logger.Error("validation failed with non-field error", slog.Any("error", err))
		return map[string][]string{"_": {"invalid input"}}
	}

	out := make(map[string][]string, len(validationErrs))
	for _, fe := range validationErrs {
		field := fe.Field()
		msg, found := messages[field+"."+fe.Tag()]
		if !found {
			msg, found = messages[field]
		}
		if !found {
			msg = defaultMessage(fe)
		}
		out[field] = append(out[field], msg)
	}
	return out
}

// defaultMessage produces a fallback message for tags the caller did not map.
func defaultMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
