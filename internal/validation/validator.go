// Package validation validates manifest node attributes using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/ynoir/obit-microscopy-core-technology/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for manifest attributes.
func New() *Validator {
	v := validator.New()

	// Use the XML attribute names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("attr")
		if name == "" {
			name = fld.Tag.Get("json")
		}
		if name == "" {
			return fld.Name
		}
		if i := strings.IndexByte(name, ','); i >= 0 {
			return name[:i]
		}
		return name
	})

	// Cannot fail: the tag name is not reserved and the func is non-nil.
	_ = v.RegisterValidation("intlist", validateIntList)

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain validation error whose
// details map attribute names to messages.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// ParseIntList parses comma-separated non-negative integers ("0, 2,5").
// It backs the intlist rule.
func ParseIntList(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, errors.New("empty list")
	}
	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid index %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func validateIntList(fl validator.FieldLevel) bool {
	_, err := ParseIntList(fl.Field().String())
	return err == nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string)
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails(summarize(fieldErrors), fieldErrors)
}

// summarize renders field errors as "a is required; b must ..." in a stable order.
func summarize(fieldErrors map[string]string) string {
	keys := make([]string, 0, len(fieldErrors))
	for k := range fieldErrors {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + fieldErrors[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "startswith":
		return fmt.Sprintf("must start with %q", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "intlist":
		return "must be a comma-separated list of non-negative integers"
	default:
		return "is invalid"
	}
}
