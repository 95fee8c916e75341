package retention

import (
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// FromValidation converts the result of validation.ValidateStruct into
// ValidationErrors, one entry per field ordered by field name. Errors that
// are not field errors are returned unchanged.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}

	var fields validation.Errors
	if !errors.As(err, &fields) {
		var internal validation.InternalError
		if errors.As(err, &internal) {
			return internal.InternalError()
		}
		return err
	}

	out := flatten("", fields, nil)
	if len(out) == 0 {
		return nil
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func flatten(prefix string, fields validation.Errors, out ValidationErrors) ValidationErrors {
	for name, fieldErr := range fields {
		if fieldErr == nil {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		var nested validation.Errors
		if errors.As(fieldErr, &nested) {
			out = flatten(name, nested, out)
			continue
		}
		out = append(out, NewValidationError(name, fieldErr.Error()))
	}
	return out
}
