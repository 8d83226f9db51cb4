/*
Package errs provides custom error types and application-level error code constants.

These codes travel in the `code` field of reply envelopes and HTTP JSON bodies, so both
the chat core and its clients identify an outcome without parsing the message text.
*/
package errs

// OK is the code carried by successful replies.
const OK = 0

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that a required envelope field is missing or empty.
	ErrInvalidParams = 1001

	// ErrInvalidEnvelope indicates that a frame could not be decoded as an envelope.
	ErrInvalidEnvelope = 1002

	// ErrUnsupportedKind indicates that the envelope kind is not handled by the server.
	ErrUnsupportedKind = 1003

	// ErrRateLimitExceeded indicates that the connection rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Group, Delivery and Content Errors
const (
	// ErrGroupNotFound indicates that the addressed group does not exist.
	ErrGroupNotFound = 2101

	// ErrAlreadyMember indicates that the user already belongs to the group.
	ErrAlreadyMember = 2102

	// ErrReceiverOffline indicates that the private receiver has no live session.
	ErrReceiverOffline = 2103

	// ErrTargetNotFound indicates that a shake target is neither an online user nor a group.
	ErrTargetNotFound = 2104

	// ErrDefaultGroupLeave indicates an attempt to leave the bootstrap group.
	ErrDefaultGroupLeave = 2105

	// ErrNotMember indicates that the user is not a member of the group being left.
	ErrNotMember = 2106

	// ErrMessageContentTooLong indicates that the text content exceeded the maximum length.
	ErrMessageContentTooLong = 2201

	// ErrFileSizeTooLarge indicates that a file payload exceeded the maximum size.
	ErrFileSizeTooLarge = 2202

	// ErrFileSizeMismatch indicates that the declared file size differs from the payload length.
	ErrFileSizeMismatch = 2203
)

// 3xxx: Account and Session Errors
const (
	// ErrAccountExists indicates that the account id is already registered.
	ErrAccountExists = 3001

	// ErrAccountNotFound indicates that the account id is not registered.
	ErrAccountNotFound = 3002

	// ErrWrongPassword indicates a password mismatch on login.
	ErrWrongPassword = 3003

	// ErrAlreadyLoggedIn indicates that the account already has a live session.
	ErrAlreadyLoggedIn = 3004

	// ErrUnauthenticated indicates a request that needs a logged-in session.
	ErrUnauthenticated = 3005
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
