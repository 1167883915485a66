package errors

import "fmt"

var (
	ErrEmptyMessage       = fmt.Errorf("message text is empty")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet requirements")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrNotFound           = fmt.Errorf("record not found")
	ErrPermissionDenied   = fmt.Errorf("permission denied")
	ErrStoreUnavailable   = fmt.Errorf("store unavailable")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)
