package token

import "errors"

var (
	ErrKeyMissing  = errors.New("token: hashing key not configured")
	ErrKeyTooShort = errors.New("token: hashing key below minimum length")
)
