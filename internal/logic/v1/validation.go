package v1

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/duynhne/cms-service/internal/core/domain"
)

// Password policy limits. bcrypt ignores input past 72 bytes, so longer
// passwords are rejected instead of silently truncated.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return PasswordViolation(fl.Field().String()) == ""
	}); err != nil {
		panic(err)
	}
	return v
}

// PasswordViolation applies the password policy and describes the first
// rule the password breaks, or returns "" when it satisfies the policy.
func PasswordViolation(p string) string {
	var upper, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r) && r <= unicode.MaxASCII:
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z'):
			symbol = true
		}
	}

	switch {
	case len(p) < MinPasswordLength:
		return "Password must be at least 8 characters"
	case len(p) > MaxPasswordLength:
		return "Password must be at most 72 bytes"
	case !upper:
		return "Password must contain at least one uppercase letter"
	case !digit:
		return "Password must contain at least one number"
	case !symbol:
		return "Password must contain at least one special character"
	}
	return ""
}

// ValidateRegister checks a registration request against the input policy.
func ValidateRegister(req domain.RegisterRequest) error {
	return toValidationError(validate.Struct(req), req.Password)
}

// ValidateLogin checks that both login fields are present.
func ValidateLogin(req domain.LoginRequest) error {
	return toValidationError(validate.Struct(req), "")
}

func toValidationError(err error, password string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		if _, seen := out.Fields[fe.Field()]; seen {
			continue
		}
		out.Fields[fe.Field()] = fieldMessage(fe, password)
	}
	return out
}

func fieldMessage(fe validator.FieldError, password string) string {
	label := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Please enter a valid email address"
	case "min":
		return label + " must be at least " + fe.Param() + " characters"
	case "max":
		return label + " must be less than " + fe.Param() + " characters"
	case "strongpassword":
		if msg := PasswordViolation(password); msg != "" {
			return msg
		}
	}
	return label + " is invalid"
}

func fieldLabel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
