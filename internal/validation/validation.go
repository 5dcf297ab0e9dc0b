// Package validation checks decoded request bodies with go-playground/validator
// and reports failures as a list of field errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/qcom/intake/internal/models"
)

type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Errors is returned by Struct when one or more fields fail validation.
type Errors []FieldError

func (e Errors) Error() string {
	missing := e.Missing()
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "Missing required fields: "+strings.Join(missing, ", "))
	}
	for _, fe := range e {
		if fe.Tag != "required" {
			parts = append(parts, fe.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// Missing returns the names of required fields that were absent.
func (e Errors) Missing() []string {
	var out []string
	for _, fe := range e {
		if fe.Tag == "required" {
			out = append(out, fe.Field)
		}
	}
	return out
}

var emailValidator = validator.New()

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return emailValidator.Var(s, "required,email") == nil
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("service", oneOf(models.Services))
	_ = v.RegisterValidation("budget", oneOf(models.Budgets))
	_ = v.RegisterValidation("timeline", oneOf(models.Timelines))
	_ = v.RegisterValidation("adposition", func(fl validator.FieldLevel) bool {
		return models.AdPosition(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return models.SubmissionStatus(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, a := range allowed {
			if value == a {
				return true
			}
		}
		return false
	}
}

// Struct validates s and returns Errors when any rule fails.
func (v *Validator) Struct(s interface{}) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("failed to validate request: %w", err)
	}

	out := make(Errors, 0, len(ve))
	for _, fe := range ve {
		field := fieldPath(fe.Namespace())
		out = append(out, FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Message: message(field, fe),
		})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "datetime":
		return fmt.Sprintf("%s must match the format %s", field, fe.Param())
	case "service":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(models.Services, ", "))
	case "budget":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(models.Budgets, ", "))
	case "timeline":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(models.Timelines, ", "))
	case "adposition":
		return fmt.Sprintf("%s must be one of: header, sidebar, inline, footer", field)
	case "status":
		return fmt.Sprintf("%s must be one of: received, in_progress, completed, cancelled", field)
	default:
		return fmt.Sprintf("%s failed the %s check", field, fe.Tag())
	}
}
