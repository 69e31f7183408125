// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package svcerrors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of failure raised by the service host.
type ErrorCode int

const (
	Unknown          ErrorCode = iota // Unclassified failure
	Internal                          // Programming error inside the library
	InstallFailure                    // Service registration could not be created
	UninstallFailure                  // Service registration could not be removed
	StartupFailure                    // Dispatcher connection, duplicate start or malformed dispatch
	RuntimeFailure                    // Status report failed or a hook contract was violated
)

var errorCodeText = map[ErrorCode]string{
	Unknown:          "unknown error",
	Internal:         "internal error",
	InstallFailure:   "service install failure",
	UninstallFailure: "service uninstall failure",
	StartupFailure:   "service startup failure",
	RuntimeFailure:   "service runtime failure",
}

const errorMessageInvalidInputParameters = "invalid input parameters"

func (c ErrorCode) String() string {
	if text, ok := errorCodeText[c]; ok {
		return text
	}
	return fmt.Sprintf("error code %d", int(c))
}

// ServiceError is the error type returned by the service host packages.
type ServiceError struct {
	Code ErrorCode `json:"code"`
	Text string    `json:"text"`
}

func (e *ServiceError) Error() string {
	if e.Text == "" || e.Text == e.Code.String() {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code.String(), e.Text)
}

// New builds a ServiceError.  Arguments may be given in any order:
//
//	ErrorCode  - the error kind (defaults to Unknown)
//	string     - the error text
//	error      - an existing error; its text (and code, if a *ServiceError) is inherited
//
// Calling New without arguments is a programming error and yields an Internal error.
func New(args ...interface{}) *ServiceError {
	if len(args) == 0 {
		return &ServiceError{Code: Internal, Text: errorMessageInvalidInputParameters}
	}

	err := &ServiceError{Code: Unknown}
	codeSet := false
	for _, arg := range args {
		switch v := arg.(type) {
		case ErrorCode:
			err.Code = v
			codeSet = true
		case string:
			err.Text = v
		case *ServiceError:
			if !codeSet {
				err.Code = v.Code
			}
			err.Text = v.Text
		case error:
			err.Text = v.Error()
		case nil:
		default:
			return &ServiceError{Code: Internal, Text: errorMessageInvalidInputParameters}
		}
	}
	if err.Text == "" {
		err.Text = err.Code.String()
	}
	return err
}

// Errorf builds a ServiceError of the given kind with a formatted message.
func Errorf(code ErrorCode, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: code, Text: fmt.Sprintf(format, args...)}
}

// Is reports whether err (or any error it wraps) is a ServiceError of the given kind.
func Is(err error, code ErrorCode) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code == code
	}
	return false
}
