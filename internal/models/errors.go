package models

import "errors"

// Domain errors shared between the repository, services and handlers.
var (
	ErrEmailAlreadySubscribed = errors.New("email already subscribed")
	ErrTokenNotFound          = errors.New("token not found")
	ErrCityNotFound           = errors.New("city not found")
)
