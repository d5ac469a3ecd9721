/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package errors

import (
	stderrors "errors"
	"fmt"

	"pet-gacha-go/internal/store"
)

// Error is the domain error type. Op names the failing operation
// (for example "gacha.OpenGacha").
type Error struct {
	Op      string
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(op string, code Code, format string, args ...any) *Error {
	return &Error{
		Op:      op,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(op string, code Code, message string, cause error) *Error {
	return &Error{
		Op:      op,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Sentinel returns a code-only error usable as an errors.Is target.
func Sentinel(code Code) *Error {
	return &Error{Code: code}
}

// CodeOf extracts the code of the first domain error in the chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// FromStore classifies an error returned by a store collaborator.
// Domain errors pass through untouched.
func FromStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return err
	}
	switch {
	case stderrors.Is(err, store.ErrInsufficientBalance):
		return Wrap(op, CodeInsufficientBalance, "ledger rejected transfer", err)
	case stderrors.Is(err, store.ErrInsufficientAllowance):
		return Wrap(op, CodeInsufficientAllowance, "ledger rejected transfer", err)
	case stderrors.Is(err, store.ErrInvalidAmount):
		return Wrap(op, CodeInvalidAmount, "ledger rejected amount", err)
	case stderrors.Is(err, store.ErrInvalidTokenId):
		return Wrap(op, CodeInvalidTokenId, "registry rejected token", err)
	case stderrors.Is(err, store.ErrNotAuthorized), stderrors.Is(err, store.ErrNotTokenOwner):
		return Wrap(op, CodeNotAuthorized, "registry rejected transfer", err)
	default:
		return Wrap(op, CodeStorage, "", err)
	}
}
