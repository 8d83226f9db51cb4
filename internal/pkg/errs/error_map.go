/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template.
*/
package errs

import "net/http"

var errorMap = map[int]CustomError{
	// 1xxx
	ErrInvalidParams:     {Code: ErrInvalidParams, Category: CategoryValidation, Message: "%s cannot be empty."},
	ErrInvalidEnvelope:   {Code: ErrInvalidEnvelope, Category: CategoryValidation, Message: "Malformed message."},
	ErrUnsupportedKind:   {Code: ErrUnsupportedKind, Category: CategoryValidation, Message: "Unsupported message kind %s."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Category: CategoryValidation, Message: "Too many connections. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx
	ErrGroupNotFound:         {Code: ErrGroupNotFound, Category: CategoryNotFound, Message: "Group %s does not exist.", Status: http.StatusNotFound},
	ErrAlreadyMember:         {Code: ErrAlreadyMember, Category: CategoryAlreadyExists, Message: "You are already a member of group [%s]."},
	ErrReceiverOffline:       {Code: ErrReceiverOffline, Category: CategoryNotFound, Message: "User %s is not online."},
	ErrTargetNotFound:        {Code: ErrTargetNotFound, Category: CategoryNotFound, Message: "%s is neither an online user nor a group."},
	ErrDefaultGroupLeave:     {Code: ErrDefaultGroupLeave, Category: CategoryValidation, Message: "The default group cannot be left."},
	ErrNotMember:             {Code: ErrNotMember, Category: CategoryNotFound, Message: "You are not a member of group [%s]."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Category: CategoryValidation, Message: "Message is too long."},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Category: CategoryValidation, Message: "File is too large (limit %d bytes)."},
	ErrFileSizeMismatch:      {Code: ErrFileSizeMismatch, Category: CategoryValidation, Message: "File %s does not match its declared size."},

	// 3xxx
	ErrAccountExists:   {Code: ErrAccountExists, Category: CategoryAlreadyExists, Message: "Account already exists, please choose another."},
	ErrAccountNotFound: {Code: ErrAccountNotFound, Category: CategoryNotFound, Message: "Account not found, please register first."},
	ErrWrongPassword:   {Code: ErrWrongPassword, Category: CategoryAuth, Message: "Incorrect password, please try again."},
	ErrAlreadyLoggedIn: {Code: ErrAlreadyLoggedIn, Category: CategoryAuth, Message: "Account is already logged in."},
	ErrUnauthenticated: {Code: ErrUnauthenticated, Category: CategoryAuth, Message: "Please log in first.", Status: http.StatusUnauthorized},

	// 5xxx
	ErrUnknown: {Code: ErrUnknown, Category: CategoryInternal, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
