package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// APIPath is the prefix of every JSON API route.
	APIPath = "/api"

	// ErrNilACDFatalLogMsg is used if app or cfg or the auth service pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or auth service is nil"

	// MsgInvalidBody is returned when a request body can not be parsed.
	MsgInvalidBody = "invalid request body"

	// MsgValidationFailed is returned when a request body fails validation.
	MsgValidationFailed = "validation failed"

	// MsgInvalidID is returned when a path id is not a positive integer.
	MsgInvalidID = "invalid id"
)
