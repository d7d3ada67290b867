// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package actor

import (
	"errors"
	"fmt"
	"runtime/debug"

	gerrors "github.com/remactgo/remact/errors"
)

// ErrorCode classifies an ErrorMessage
type ErrorCode int

const (
	// ErrorCodeUndefined is used for errors that match no other code
	ErrorCodeUndefined ErrorCode = iota
	// ErrorCodeNotConnected means the port is not connected
	ErrorCodeNotConnected
	// ErrorCodeCouldNotDispatch means the message could not reach its handler
	ErrorCodeCouldNotDispatch
	// ErrorCodeCouldNotStartConnect means no connection could be opened
	ErrorCodeCouldNotStartConnect
	// ErrorCodeCouldNotStartSend means the message could not be written
	ErrorCodeCouldNotStartSend
	// ErrorCodeServiceNotRunning means the catalog does not know the service
	ErrorCodeServiceNotRunning
	// ErrorCodeCatalogNotRunning means the catalog cannot be reached
	ErrorCodeCatalogNotRunning
	// ErrorCodeClientIDNotFoundOnService means the service does not know the client
	ErrorCodeClientIDNotFoundOnService
	// ErrorCodeUnexpectedResponsePayloadType means a payload could not be converted to the expected type
	ErrorCodeUnexpectedResponsePayloadType
	// ErrorCodeUnhandledExceptionOnService means a service handler failed
	ErrorCodeUnhandledExceptionOnService
	// ErrorCodeReqOrRspTimeout means the peer stayed silent for too long
	ErrorCodeReqOrRspTimeout
	// ErrorCodeNotConnectedToCatalog means the catalog connection was lost
	ErrorCodeNotConnectedToCatalog
	// ErrorCodeConnectionRejected means the service refused the client
	ErrorCodeConnectionRejected
	// ErrorCodeArgumentError means a payload was not accepted by the handler
	ErrorCodeArgumentError
)

var errorCodeSentinels = map[ErrorCode]error{
	ErrorCodeUndefined:                     gerrors.ErrUndefined,
	ErrorCodeNotConnected:                  gerrors.ErrNotConnected,
	ErrorCodeCouldNotDispatch:              gerrors.ErrCouldNotDispatch,
	ErrorCodeCouldNotStartConnect:          gerrors.ErrCouldNotStartConnect,
	ErrorCodeCouldNotStartSend:             gerrors.ErrCouldNotStartSend,
	ErrorCodeServiceNotRunning:             gerrors.ErrServiceNotRunning,
	ErrorCodeCatalogNotRunning:             gerrors.ErrCatalogNotRunning,
	ErrorCodeClientIDNotFoundOnService:     gerrors.ErrClientIDNotFoundOnService,
	ErrorCodeUnexpectedResponsePayloadType: gerrors.ErrUnexpectedResponsePayloadType,
	ErrorCodeUnhandledExceptionOnService:   gerrors.ErrUnhandledExceptionOnService,
	ErrorCodeReqOrRspTimeout:               gerrors.ErrRequestTimeout,
	ErrorCodeNotConnectedToCatalog:         gerrors.ErrNotConnectedToCatalog,
	ErrorCodeConnectionRejected:            gerrors.ErrConnectionRejected,
	ErrorCodeArgumentError:                 gerrors.ErrInvalidArgument,
}

// String returns the name of the code
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeNotConnected:
		return "NotConnected"
	case ErrorCodeCouldNotDispatch:
		return "CouldNotDispatch"
	case ErrorCodeCouldNotStartConnect:
		return "CouldNotStartConnect"
	case ErrorCodeCouldNotStartSend:
		return "CouldNotStartSend"
	case ErrorCodeServiceNotRunning:
		return "ServiceNotRunning"
	case ErrorCodeCatalogNotRunning:
		return "CatalogNotRunning"
	case ErrorCodeClientIDNotFoundOnService:
		return "ClientIDNotFoundOnService"
	case ErrorCodeUnexpectedResponsePayloadType:
		return "UnexpectedResponsePayloadType"
	case ErrorCodeUnhandledExceptionOnService:
		return "UnhandledExceptionOnService"
	case ErrorCodeReqOrRspTimeout:
		return "ReqOrRspTimeout"
	case ErrorCodeNotConnectedToCatalog:
		return "NotConnectedToCatalog"
	case ErrorCodeConnectionRejected:
		return "ConnectionRejected"
	case ErrorCodeArgumentError:
		return "ArgumentError"
	default:
		return "Undefined"
	}
}

// ErrorMessage is the payload of error messages. It travels between
// processes and unwraps to the sentinel error of its code.
type ErrorMessage struct {
	Code       ErrorCode `cbor:"1,keyasint"`
	Message    string    `cbor:"2,keyasint,omitempty"`
	StackTrace string    `cbor:"3,keyasint,omitempty"`
}

var _ error = (*ErrorMessage)(nil)

// NewErrorMessage creates an ErrorMessage
func NewErrorMessage(code ErrorCode, format string, args ...any) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: fmt.Sprintf(format, args...)}
}

// newPanicErrorMessage reports a recovered handler panic
func newPanicErrorMessage(port string, r any) *ErrorMessage {
	return &ErrorMessage{
		Code:       ErrorCodeUnhandledExceptionOnService,
		Message:    fmt.Sprintf("handler of port (%s) panicked: %v", port, r),
		StackTrace: string(debug.Stack()),
	}
}

// Error implements error
func (e *ErrorMessage) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the sentinel error of the code
func (e *ErrorMessage) Unwrap() error {
	if sentinel, ok := errorCodeSentinels[e.Code]; ok {
		return sentinel
	}
	return gerrors.ErrUndefined
}

// toErrorMessage turns any error into an ErrorMessage, keeping the code of known sentinels
func toErrorMessage(err error, fallback ErrorCode) *ErrorMessage {
	if err == nil {
		return nil
	}

	var errMsg *ErrorMessage
	if errors.As(err, &errMsg) {
		return errMsg
	}

	for code := ErrorCodeNotConnected; code <= ErrorCodeArgumentError; code++ {
		if errors.Is(err, errorCodeSentinels[code]) {
			return &ErrorMessage{Code: code, Message: err.Error()}
		}
	}
	return &ErrorMessage{Code: fallback, Message: err.Error()}
}
