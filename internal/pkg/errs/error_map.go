/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
notifications, HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 3xxx: User, Session, and Security Errors
	ErrSessionKicked:      {Code: ErrSessionKicked, Message: "You were signed in on another device."},
	ErrAlreadyLoggedIn:    {Code: ErrAlreadyLoggedIn, Message: "You are already signed in."},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Account already exists."},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Invalid credentials."},
	ErrRequestRejected:    {Code: ErrRequestRejected, Message: "%s"},
	ErrInvalidMode:        {Code: ErrInvalidMode, Message: "Unsupported authentication mode: %s"},
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Not authorized. Please sign in.", Status: http.StatusUnauthorized},

	// 4xxx: Client Infrastructure Errors
	ErrTransport:    {Code: ErrTransport, Message: "Network error: %s", Status: http.StatusBadGateway},
	ErrTokenStorage: {Code: ErrTokenStorage, Message: "Session storage failed: %s"},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
