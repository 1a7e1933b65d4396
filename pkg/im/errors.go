package im

import "errors"

var (
	ErrEndpointNotFound  = errors.New("im: endpoint not found")
	ErrClusterNotFound   = errors.New("im: cluster not found")
	ErrAttributeNotFound = errors.New("im: attribute not found")
	ErrCommandNotFound   = errors.New("im: command not found")
	ErrNotWritable       = errors.New("im: attribute not writable")
	ErrSubscriptionLimit = errors.New("im: subscription capacity exhausted")
)
