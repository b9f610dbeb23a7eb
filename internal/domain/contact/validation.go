package contact

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// namePattern allows ASCII letters and whitespace only.
var namePattern = regexp.MustCompile(`^[a-zA-Z\s]+$`)

// Validator checks submissions against the contact-form rules.
// It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator with the contact-form rule set registered.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("alphaspace", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err) // only fails on an empty tag or nil func
	}
	return &Validator{v: v}
}

// Validate returns the violations found in s in field declaration order
// (email, name, message), at most one per field. A nil result means s is valid.
func (v *Validator) Validate(s Submission) []Violation {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Message: err.Error()}}
	}

	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, Violation{Field: fe.Field(), Message: violationMessage(fe)})
	}
	return out
}

// Check is Validate returning a *ValidationError, or nil when s is valid.
func (v *Validator) Check(s Submission) error {
	if violations := v.Validate(s); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func violationMessage(fe validator.FieldError) string {
	field := fe.StructField()
	switch fe.Tag() {
	case "required":
		return "The " + field + " field is required."
	case "email":
		return "The " + field + " field is not a valid e-mail address."
	case "min":
		return field + " must be at least " + fe.Param() + " characters long."
	case "max":
		return field + " cannot be longer than " + fe.Param() + " characters."
	case "alphaspace":
		return field + " can only contain letters and spaces."
	default:
		return field + " is invalid."
	}
}
