package discovery

import "errors"

var (
	ErrClosed               = errors.New("discovery: closed")
	ErrAlreadyStarted       = errors.New("discovery: already started")
	ErrNotStarted           = errors.New("discovery: not started")
	ErrInvalidServiceType   = errors.New("discovery: invalid service type")
	ErrInvalidDiscriminator = errors.New("discovery: invalid discriminator (must be 0-4095)")
	ErrInvalidDeviceName    = errors.New("discovery: invalid device name (max 32 characters)")
	ErrInvalidInstanceName  = errors.New("discovery: invalid instance name format")
	ErrInvalidTXTRecord     = errors.New("discovery: invalid TXT record format")
	ErrServiceNotFound      = errors.New("discovery: service not found")
	ErrTimeout              = errors.New("discovery: operation timed out")
)
