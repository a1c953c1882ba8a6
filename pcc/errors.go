package pcc

import "errors"

// Errors returned by the controller. They are wrapped with the controller
// name; test them with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotEnabled        = errors.New("command queue not enabled")
	ErrTimeout           = errors.New("timeout")
	ErrResourceExhausted = errors.New("resource exhausted")
)
