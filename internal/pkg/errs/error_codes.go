/*
Package errs provides custom error types and application-level error code constants.

These error codes classify every failure the session layer can report, both to the
notification sink and to programmatic callers, and are shared with the development
server so that its JSON error bodies carry the same codes.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrSessionKicked indicates that the presence connection was replaced by another one for the same user.
	ErrSessionKicked = 3004

	// ErrAlreadyLoggedIn indicates a signup or login request carried a valid identity token.
	ErrAlreadyLoggedIn = 3005

	// ErrUserAlreadyExists indicates that signup used an email that is already registered.
	ErrUserAlreadyExists = 3008

	// ErrInvalidCredentials indicates that the email or password did not match.
	ErrInvalidCredentials = 3009

	// ErrRequestRejected indicates the authentication API answered with success=false.
	// The server-provided reason replaces the message template.
	ErrRequestRejected = 3020

	// ErrInvalidMode indicates that login was called with a mode other than signup or login.
	ErrInvalidMode = 3021

	// ErrUnauthorized indicates that the request requires a valid identity token.
	ErrUnauthorized = 3401
)

// 4xxx: Client Infrastructure Errors
const (
	// ErrTransport indicates that the authentication API could not be reached or answered unintelligibly.
	ErrTransport = 4001

	// ErrTokenStorage indicates that the durable token store failed to read or write.
	ErrTokenStorage = 4002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general internal error.
	ErrUnknown = 5000
)
