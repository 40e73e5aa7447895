/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
and in responses to the SPA.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 3xxx: Identity and Session Errors
const (
	// ErrUnauthorized indicates that the request carries no valid platform identity token.
	ErrUnauthorized = 3001

	// ErrIdentityInvalid indicates that the supplied identity id or role is malformed.
	ErrIdentityInvalid = 3002
)

// 4xxx: File and Document Errors
const (
	// ErrFileSizeTooLarge indicates that the uploaded document exceeds the size limit.
	ErrFileSizeTooLarge = 4001

	// ErrFileTypeInvalid indicates a document type outside the allowed set.
	ErrFileTypeInvalid = 4002

	// ErrFileStorageFailed indicates a failure talking to the object storage backend.
	ErrFileStorageFailed = 4003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
