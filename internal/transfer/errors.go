package transfer

import (
	"errors"
	"fmt"
)

var (
	ErrChannelNotOpen    = errors.New("channel not open")
	ErrChunkBeforeHeader = errors.New("chunk received before header")
	ErrChunkOverflow     = errors.New("chunk exceeds declared file size")
	ErrUnknownMessage    = errors.New("unknown message type")
	ErrInvalidText       = errors.New("text is not valid base64 encoded UTF-8")
)

// TransferError adds the operation and file to an underlying error.
type TransferError struct {
	Op   string
	File string
	Err  error
}

func (e *TransferError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.File, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *TransferError {
	return &TransferError{Op: op, Err: err}
}

func NewFileError(op, file string, err error) *TransferError {
	return &TransferError{Op: op, File: file, Err: err}
}
