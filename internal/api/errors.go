package api

import (
	"errors"
	"fmt"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

// errNoJSON is returned when the body is empty, not JSON, or JSON null.
var errNoJSON error = invalidRequestError{msg: "No JSON data provided"}

// FieldError describes one way a request body failed to match RequestData.
// Loc is the path to the offending value, mixing object keys and array
// indexes.
type FieldError struct {
	Type  string `json:"type"`
	Loc   []any  `json:"loc"`
	Msg   string `json:"msg"`
	Input any    `json:"input"`
}

const (
	errTypeMissing = "missing"
	errTypeString  = "string_type"
	errTypeList    = "list_type"
	errTypeModel   = "model_type"
)

// ValidationError carries every field error found in a request body.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("1 validation error: %s at %v", e.Errors[0].Msg, e.Errors[0].Loc)
	}
	return fmt.Sprintf("%d validation errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}
