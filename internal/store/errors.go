package store

import "errors"

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrUsernameTaken     = errors.New("username already exists")
	ErrInvalidTransition = errors.New("status transition not allowed")
)
