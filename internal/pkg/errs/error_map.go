/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the CustomError corresponding to every application error
// code. The key is the error code, the value carries the user message and
// HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 3xxx: Identity and Session Errors
	ErrUnauthorized:    {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrIdentityInvalid: {Code: ErrIdentityInvalid, Message: "Invalid account identity."},

	// 4xxx: File and Document Errors
	ErrFileSizeTooLarge:  {Code: ErrFileSizeTooLarge, Message: "File is too large."},
	ErrFileTypeInvalid:   {Code: ErrFileTypeInvalid, Message: "This file type is not allowed."},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
