package apperrors

import (
	"errors"
)

// Error is a user visible failure with a stable machine readable code
// Values are compared by identity, so wrap them with %w and match with errors.Is
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Credential failures
var (
	ErrAuth        = newError(7000, "Auth error")
	ErrCredentials = newError(7001, "Could not validate credentials")
	ErrExpiration  = newError(7002, "Token expired")
	ErrPermission  = newError(7003, "Not enough permissions")
)

// Users and channels
var (
	ErrUserAlreadyExists = newError(1000, "User already exists")
	ErrWrongUserInfo     = newError(1001, "Wrong username or password")
	ErrUserNotFound      = newError(1002, "Could not find user")
	ErrSelfSubscription  = newError(1003, "Can not subscribe to yourself")
)

// Videos and comments
var (
	ErrVideoAlreadyExists = newError(2000, "Video already exists")
	ErrVideoNotFound      = newError(2001, "Could not find video")
	ErrCommentNotFound    = newError(2002, "Could not find comment")
)

// Object storage
var (
	ErrS3Client          = newError(3000, "S3 client error")
	ErrVideoUploadFailed = newError(3001, "Video upload failed")
)

// Infrastructure failures. Never conflated with credential errors
var (
	ErrServiceUnavailable = newError(-32000, "Service unavailable")
)

// As returns the first *Error in err's chain
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
