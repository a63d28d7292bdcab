package models

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("not authorized to perform this action")
	ErrInvalidID          = errors.New("invalid id")
	ErrValidation         = errors.New("validation error")
	ErrDuplicate          = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUpload             = errors.New("media upload failed")
	ErrDelete             = errors.New("media delete failed")
)
