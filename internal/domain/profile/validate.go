package profile

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"sentinel/pkg/errors"
)

var (
	vOnce sync.Once
	v     *validator.Validate
)

func getValidator() *validator.Validate {
	vOnce.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())

		// report json names so messages match the connector payload
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
	})
	return v
}

// Validate checks that a record is structurally usable.
// Every failure matches errors.ErrMalformedInput.
func Validate(r *RawProfileRecord) error {
	if r == nil {
		return errors.NewValidationError("record", "is nil", nil)
	}

	err := getValidator().Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Wrap(errors.ErrMalformedInput, err.Error())
	}

	var multi errors.MultiError
	for _, fe := range fieldErrs {
		multi.Add(errors.NewValidationError(fe.Namespace(), describe(fe), fe.Value()))
	}
	if len(multi.Errors) == 1 {
		return multi.Errors[0]
	}
	return multi.ToError()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
