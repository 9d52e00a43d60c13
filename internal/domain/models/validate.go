package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"pkm/internal/domain"
)

// asValidationError converts ozzo validation output into the domain taxonomy.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		if len(fieldErrs) == 0 {
			return nil
		}
		fields := make([]string, 0, len(fieldErrs))
		for f := range fieldErrs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		return &domain.ValidationError{Message: fieldErrs.Error(), Field: fields[0]}
	}

	return &domain.ValidationError{Message: err.Error()}
}

// optionalRuneLength bounds a present, non-null OptionalString.
func optionalRuneLength(max int) validation.RuleFunc {
	return func(value interface{}) error {
		o, ok := value.(OptionalString)
		if !ok {
			return fmt.Errorf("must be a string or null")
		}
		v, set := o.Get()
		if !set {
			return nil
		}
		if utf8.RuneCountInString(v) > max {
			return fmt.Errorf("the length must be no more than %d", max)
		}
		return nil
	}
}

// optionalUUID checks a present, non-null OptionalString is a UUID. An empty
// string is rejected; null is the way to clear a reference.
func optionalUUID(value interface{}) error {
	o, ok := value.(OptionalString)
	if !ok {
		return fmt.Errorf("must be a string or null")
	}
	v, set := o.Get()
	if !set {
		return nil
	}
	if strings.TrimSpace(v) == "" {
		return errBlankUUID
	}
	return is.UUID.Validate(v)
}

var errBlankUUID = validation.NewError("validation_blank_uuid", "must be a valid UUID or null")
