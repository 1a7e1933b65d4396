package transport

import "errors"

var (
	ErrClosed             = errors.New("transport: closed")
	ErrInvalidAddress     = errors.New("transport: invalid address")
	ErrNoHandler          = errors.New("transport: no message handler configured")
	ErrNotStarted         = errors.New("transport: not started")
	ErrAlreadyStarted     = errors.New("transport: already started")
	ErrConnectionNotFound = errors.New("transport: connection not found for peer")
	ErrSendFailed         = errors.New("transport: send failed")
	ErrMessageTooLarge    = errors.New("transport: message too large")
)
