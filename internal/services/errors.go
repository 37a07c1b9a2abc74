package services

import "errors"

var (
	// ErrInvalidInput reports a request that failed validation. Nothing is
	// written when it is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateEntity reports a write that collides with a unique record.
	ErrDuplicateEntity = errors.New("already exists")

	// ErrInvalidCredentials is returned for every failed login, whatever the
	// underlying reason.
	ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")

	// ErrUnauthenticated is returned for unknown tokens and inactive users.
	ErrUnauthenticated = errors.New("authentication credentials were not provided or are invalid")

	// ErrInvalidImage reports an upload that is not a supported raster image.
	ErrInvalidImage = errors.New("upload a valid image")
)
