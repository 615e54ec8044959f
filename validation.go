package loginpage

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// CodeLength is the number of slots in a two-factor code
	CodeLength = 6
	// MinPasswordLength is the minimum password length in characters
	MinPasswordLength = 6
)

// Field error messages
const (
	MessageEmailRequired    = "Email is required"
	MessageEmailInvalid     = "Invalid email format"
	MessagePasswordRequired = "Password is required"
	MessagePasswordShort    = "Password must be at least 6 characters"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	codePattern  = regexp.MustCompile(`^\d{6}$`)
)

// ValidationErrors maps a field to its message. A missing key means the
// field is valid.
type ValidationErrors map[Field]string

// Has reports whether field has an error
func (v ValidationErrors) Has(field Field) bool {
	_, ok := v[field]
	return ok
}

// Get returns the message for field or an empty string
func (v ValidationErrors) Get(field Field) string {
	return v[field]
}

// Empty reports whether no field has an error
func (v ValidationErrors) Empty() bool {
	return len(v) == 0
}

// Clone returns a copy safe to hand to renderers
func (v ValidationErrors) Clone() ValidationErrors {
	out := make(ValidationErrors, len(v))
	for k, msg := range v {
		out[k] = msg
	}
	return out
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(MessageEmailRequired),
		validation.Match(emailPattern).Error(MessageEmailInvalid),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(MessagePasswordRequired),
		validation.RuneLength(MinPasswordLength, 0).Error(MessagePasswordShort),
	}
}

// IsValidEmail reports whether s has a simple local@domain.tld shape
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidPassword reports whether s is at least MinPasswordLength characters
func IsValidPassword(s string) bool {
	return s != "" && validation.Validate(s, passwordRules()...) == nil
}

// IsValidCode reports whether the slots join into exactly six digits
func IsValidCode(slots []string) bool {
	return codePattern.MatchString(strings.Join(slots, ""))
}

// Validate will run validation rules
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, emailRules()...),
		validation.Field(&c.Password, passwordRules()...),
	)
}

// ComputeFieldErrors returns the field errors for the given credentials
func ComputeFieldErrors(c Credentials) ValidationErrors {
	out := ValidationErrors{}

	err := c.Validate()
	if err == nil {
		return out
	}

	errs, ok := err.(validation.Errors)
	if !ok {
		// only field errors are expected from rule based validation
		return out
	}

	for key, fieldErr := range errs {
		if fieldErr == nil {
			continue
		}
		out[Field(key)] = fieldErr.Error()
	}

	return out
}
