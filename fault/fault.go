// Package fault holds the error classes shared by the ledger components.
//
// Each sentinel belongs to one class so that callers (the HTTP layer in
// particular) can map a failure to a response without string matching.
// Components wrap the sentinels with call context using pkg/errors.
package fault

import (
	"github.com/pkg/errors"
)

// error classes
type InvalidError string
type NotFoundError string
type ExistsError string
type ProcessError string

// common errors - keep in alphabetic order within each class
var (
	ErrEmptyLevel          = InvalidError("level produced no segments")
	ErrInvalidArgument     = InvalidError("invalid argument")
	ErrInvalidFractions    = InvalidError("invalid allocation fractions")
	ErrInvalidHolder       = InvalidError("invalid holder share or ancestral level")
	ErrInvalidLevel        = InvalidError("level must be non-negative")
	ErrNonPositiveAmount   = InvalidError("amount must be positive")
	ErrContractNotFound    = NotFoundError("contract not found")
	ErrFunctionNotFound    = NotFoundError("function not found")
	ErrSegmentNotFound     = NotFoundError("segment not found")
	ErrContractExists      = ExistsError("contract already deployed")
	ErrInsufficientBalance = ProcessError("insufficient balance")
)

func (e InvalidError) Error() string  { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ExistsError) Error() string   { return string(e) }
func (e ProcessError) Error() string  { return string(e) }

// determine the class of an error, looking through any wrapping
func IsErrInvalid(e error) bool  { var t InvalidError; return errors.As(e, &t) }
func IsErrNotFound(e error) bool { var t NotFoundError; return errors.As(e, &t) }
func IsErrExists(e error) bool   { var t ExistsError; return errors.As(e, &t) }
func IsErrProcess(e error) bool  { var t ProcessError; return errors.As(e, &t) }
