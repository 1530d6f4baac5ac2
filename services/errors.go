package services

import "errors"

var (
	// ErrInvalidProfile means a stage received no profile; an upstream invariant is broken.
	ErrInvalidProfile = errors.New("invalid user profile")

	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
)
