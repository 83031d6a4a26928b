package fheap

import (
	"errors"
	"fmt"
)

// Error represents an fheap error with an error code
type Error struct {
	Code    ErrorCode
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fheap: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("fheap: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode classifies fheap errors
type ErrorCode int

const (
	// Success indicates the operation completed successfully
	Success ErrorCode = 0

	// ErrInvalid indicates a nil or unusable heap handle
	ErrInvalid ErrorCode = -1

	// ErrEnv indicates an unrecoverable environment failure: the heap
	// file could not be stat'd, opened, or mapped
	ErrEnv ErrorCode = -2

	// ErrTooSmall indicates the file cannot hold the superblock plus
	// one full chunk
	ErrTooSmall ErrorCode = -3

	// ErrVersionMismatch indicates the file format version doesn't
	// match the library
	ErrVersionMismatch ErrorCode = -4

	// ErrCorrupted indicates the superblock geometry is damaged
	ErrCorrupted ErrorCode = -5
)

// Error descriptions
var errorMessages = map[ErrorCode]string{
	Success:            "success",
	ErrInvalid:         "invalid heap handle",
	ErrEnv:             "environment failure",
	ErrTooSmall:        "file too small for superblock and one chunk",
	ErrVersionMismatch: "heap file format version mismatch",
	ErrCorrupted:       "heap superblock is corrupted",
}

// NewError creates a new Error with the given code
func NewError(code ErrorCode) *Error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = fmt.Sprintf("unknown error code %d", code)
	}
	return &Error{Code: code, Message: msg}
}

// WrapError creates a new Error wrapping another error
func WrapError(code ErrorCode, err error) *Error {
	e := NewError(code)
	e.Err = err
	return e
}

// Code returns the error code from an error, or ErrInvalid if not an fheap error
func Code(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInvalid
}

// IsEnv returns true if the error is an unrecoverable environment error
// (stat, open, or map failure). Callers are expected to pre-validate the
// heap file rather than recover from these.
func IsEnv(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrEnv
	}
	return false
}

// IsCorrupted returns true if the error indicates a damaged superblock
func IsCorrupted(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCorrupted
	}
	return false
}

// IsVersionMismatch returns true if the error is ErrVersionMismatch
func IsVersionMismatch(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrVersionMismatch
	}
	return false
}
