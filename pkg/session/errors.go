package session

import "errors"

var (
	ErrInvalidKind     = errors.New("session: invalid session kind")
	ErrInvalidRole     = errors.New("session: invalid session role")
	ErrInvalidKeySize  = errors.New("session: key must be 16 bytes")
	ErrInvalidID       = errors.New("session: session id must be in [1,65534]")
	ErrNotFound        = errors.New("session: not found")
	ErrTableFull       = errors.New("session: table full")
	ErrIDSpaceExhausted = errors.New("session: no session ids available")
	ErrDuplicateID     = errors.New("session: duplicate session id")
	ErrNotProvisional  = errors.New("session: session is not provisional")
)
