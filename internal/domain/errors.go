package domain

import (
	"errors"
	"fmt"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Player-facing error messages. These surface as Error packets with HTTP 200;
// the client distinguishes them by text.
const (
	MsgWrongRequestID = "Wrong request id!"
	MsgNullRequestID  = "Request id is null!"
	MsgBadFormat      = "error request format!"
	MsgNotLoggedOn    = "Not logged on!"
)

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrIllegalState(msg string) *AppError {
	return &AppError{Code: "ILLEGAL_STATE", Message: msg, Status: 200}
}

func ErrNotLoggedOn() *AppError {
	return &AppError{Code: "NOT_LOGGED_ON", Message: MsgNotLoggedOn, Status: 200}
}

func ErrBadFormat() *AppError {
	return &AppError{Code: "BAD_FORMAT", Message: MsgBadFormat, Status: 200}
}

func ErrWrongRequestID() *AppError {
	return &AppError{Code: "WRONG_REQUEST_ID", Message: MsgWrongRequestID, Status: 200}
}

func ErrNullRequestID() *AppError {
	return &AppError{Code: "NULL_REQUEST_ID", Message: MsgNullRequestID, Status: 200}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}

// Remote codes returned by the account service and recorded on actions and
// tournament gains.
const (
	RCNotDone             = -1
	RCSuccess             = 0
	RCOutOfMoney          = 1
	RCIOError             = 2
	RCHTTPError           = 3
	RCFormatError         = 4
	RCOperationNotAllowed = 5
	RCUnknown             = 100
)

// IsRollbackRC reports whether a wager that failed with rc must be reversed
// at the wallet before the round is closed.
func IsRollbackRC(rc int) bool {
	switch rc {
	case RCIOError, RCHTTPError, RCFormatError:
		return true
	}
	return false
}

// AccountError is the structured (rc, message) failure returned by the
// account service.
type AccountError struct {
	RC      int
	Message string
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("account rc=%d: %s", e.RC, e.Message)
}

// AdminError scopes an account failure to the round and action that were
// already persisted, so the caller can record the failure precisely.
type AdminError struct {
	RoundID  int64
	ActionID int64
	Status   RoundStatus
	Cause    error
}

func (e *AdminError) Error() string {
	return fmt.Sprintf("round %d action %d -> %s: %v", e.RoundID, e.ActionID, e.Status, e.Cause)
}

func (e *AdminError) Unwrap() error { return e.Cause }

// AsAccountError unwraps err down to an AccountError, if any.
func AsAccountError(err error) (*AccountError, bool) {
	var ae *AccountError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
