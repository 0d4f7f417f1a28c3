// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transform

import (
	"errors"
	"fmt"
)

// Rejection kinds. A request rejected with any of these leaves the ledger
// unchanged.
var (
	ErrSubjectMismatch     = errors.New("proof subject mismatch")
	ErrStaleOrFutureNonce  = errors.New("stale or future nonce")
	ErrInvalidProof        = errors.New("invalid proof")
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrInvalidAmount       = errors.New("invalid amount")
	ErrOverflow            = errors.New("arithmetic overflow")
	ErrUnknownCodecVersion = errors.New("unknown codec version")

	// Gateway rejections. These never reach the ledger.
	ErrUnauthorized   = errors.New("sender does not own wallet")
	ErrInvalidRequest = errors.New("invalid request")

	ErrUnknownDenom = errors.New("unknown backing denomination")
)

// Error codes carried by [Error] over the wire.
const (
	CodeUnknown int32 = iota
	CodeSubjectMismatch
	CodeStaleOrFutureNonce
	CodeInvalidProof
	CodeInsufficientBalance
	CodeInvalidAmount
	CodeOverflow
	CodeUnauthorized
	CodeInvalidRequest
	CodeUnknownDenom
)

var codes = []struct {
	code int32
	err  error
}{
	{CodeSubjectMismatch, ErrSubjectMismatch},
	{CodeStaleOrFutureNonce, ErrStaleOrFutureNonce},
	{CodeInvalidProof, ErrInvalidProof},
	{CodeInsufficientBalance, ErrInsufficientBalance},
	{CodeInvalidAmount, ErrInvalidAmount},
	{CodeOverflow, ErrOverflow},
	{CodeUnauthorized, ErrUnauthorized},
	{CodeInvalidRequest, ErrInvalidRequest},
	{CodeUnknownDenom, ErrUnknownDenom},
}

// Error represents a transform error as reported to remote callers
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("transform error %d: %s", e.Code, e.Message)
}

// Unwrap returns the sentinel error for the code, so that errors.Is works on
// errors decoded from the wire.
func (e *Error) Unwrap() error {
	return ErrorFromCode(e.Code)
}

// CodeOf returns the wire code of the first rejection kind err wraps.
func CodeOf(err error) int32 {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}

// ErrorFromCode returns the sentinel error for code, or nil when code is
// unknown.
func ErrorFromCode(code int32) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}

// NewError converts err into its wire representation.
func NewError(err error) *Error {
	return &Error{
		Code:    CodeOf(err),
		Message: err.Error(),
	}
}
