package apikey

import "errors"

var (
	ErrKeyNotFound   = errors.New("api key not found")
	ErrKeyRevoked    = errors.New("api key has been revoked")
	ErrInvalidKey    = errors.New("invalid api key")
	ErrNameRequired  = errors.New("api key name is required")
	ErrStoreInternal = errors.New("api key store failure")
)
