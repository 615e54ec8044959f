package httpapi

import (
	"errors"

	loginpage "github.com/MamBoota/LoginPage"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// MessageInvalidPayload is returned when a request body cannot be decoded
const MessageInvalidPayload = "Invalid request payload"

// LoginRequest is the payload of the login route
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error(loginpage.MessageEmailRequired)),
		validation.Field(&r.Password, validation.Required.Error(loginpage.MessagePasswordRequired)),
	)
}

// VerifyRequest is the payload of the verification route
type VerifyRequest struct {
	Code string `form:"code" json:"code"`
}

// Validate will validate the payload
func (r VerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required,
			validation.Length(loginpage.CodeLength, loginpage.CodeLength),
			is.Digit,
		),
	)
}

// SuccessResponse is returned by routes without a payload
type SuccessResponse struct {
	Success bool `json:"success"`
}

// HealthResponse is returned by the health route
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func fieldErrors(err error) map[string]string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return nil
	}

	out := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		if fieldErr != nil {
			out[field] = fieldErr.Error()
		}
	}
	return out
}
