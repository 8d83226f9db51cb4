/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a business code, a category from the chat error taxonomy, a user-facing message
and an HTTP status for the few HTTP endpoints.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lanchat/internal/pkg/logx"
)

// Category groups error codes into the taxonomy reported to clients.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryAuth          Category = "auth"
	CategoryNotFound      Category = "not_found"
	CategoryAlreadyExists Category = "already_exists"
	CategoryInternal      Category = "internal"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Category is the taxonomy bucket of the code.
	Category Category

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code used when the error leaves through an HTTP endpoint.
	Status int
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (%s): %s", e.Code, e.Category, e.Message)
}

// NewError builds a *CustomError from a registered code. Details fill the printf
// placeholders of the message template. Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
	} else if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	}

	return &customErr
}

// CodeOf extracts the business code of err, ErrUnknown for foreign errors and OK for nil.
func CodeOf(err error) int {
	if err == nil {
		return OK
	}

	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return ErrUnknown
}
