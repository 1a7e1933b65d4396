package exchange

import "errors"

var (
	ErrExchangeClosed         = errors.New("exchange: exchange is closed")
	ErrExchangeClosing        = errors.New("exchange: exchange is closing")
	ErrNoHandler              = errors.New("exchange: no handler registered for protocol")
	ErrExchangeExists         = errors.New("exchange: exchange already exists")
	ErrExchangeNotFound       = errors.New("exchange: exchange not found")
	ErrSessionNotFound        = errors.New("exchange: session not found")
	ErrInvalidRole            = errors.New("exchange: invalid exchange role")
	ErrPendingRetransmit      = errors.New("exchange: reliable message pending")
	ErrMaxRetransmits         = errors.New("exchange: max retransmissions exceeded")
	ErrDuplicateMessage       = errors.New("exchange: duplicate message")
	ErrInvalidMessage         = errors.New("exchange: invalid message")
	ErrUnsolicitedNotInitiator = errors.New("exchange: unsolicited message must have I flag set")
	ErrThrottled              = errors.New("exchange: peer exceeded reliable message rate")
)
