package pipeline

import "errors"

var (
	ErrBackendUnavailable = errors.New("inference backend unavailable")
	ErrBackendInference   = errors.New("inference backend failed")
	ErrBackendProtocol    = errors.New("inference backend protocol error")
)
