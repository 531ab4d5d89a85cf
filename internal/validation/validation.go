// Package validation wraps go-playground/validator with the app's custom tags.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// emailRegex is deliberately loose: something@something.something, no spaces.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator with custom tags registered:
//
//	notblank     string is non-empty after trimming
//	loose_email  string looks like an email address
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
			return IsEmail(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// IsEmail reports whether s passes the loose email check.
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	return Validator().Struct(s)
}

// FieldError names the first failing field and tag.
type FieldError struct {
	Field string
	Tag   string
}

// First returns the first field failure in err, if err came from Struct.
func First(err error) (FieldError, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return FieldError{}, false
	}
	return FieldError{Field: verrs[0].Field(), Tag: verrs[0].Tag()}, true
}

// Failures returns every failing field and tag in err.
func Failures(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag()})
	}
	return out
}

// HasTag reports whether any failure in err is for tag.
func HasTag(err error, tag string) bool {
	for _, f := range Failures(err) {
		if f.Tag == tag {
			return true
		}
	}
	return false
}
