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

package errors

import (
	"errors"
	"fmt"
)

// Runtime conditions that travel as ErrorMessage codes between ports.
var (
	// ErrNotConnected is returned when a message is posted to a port that is not open.
	ErrNotConnected = errors.New("port is not connected")

	// ErrCouldNotDispatch indicates that a message could not be handed to its destination.
	ErrCouldNotDispatch = errors.New("could not dispatch message")

	// ErrCouldNotStartConnect indicates that a connect attempt could not even be started.
	ErrCouldNotStartConnect = errors.New("could not start connect")

	// ErrCouldNotStartSend indicates that a message could not be written to the transport.
	ErrCouldNotStartSend = errors.New("could not start send")

	// ErrServiceNotRunning is returned when the catalog does not know the requested service.
	ErrServiceNotRunning = errors.New("service is not running")

	// ErrCatalogNotRunning is returned when the catalog service cannot be reached.
	ErrCatalogNotRunning = errors.New("catalog is not running")

	// ErrClientIDNotFoundOnService is returned when a service receives a message from an unknown client id.
	ErrClientIDNotFoundOnService = errors.New("client id not found on service")

	// ErrUnexpectedResponsePayloadType is returned when a response payload cannot be converted to the expected type.
	ErrUnexpectedResponsePayloadType = errors.New("unexpected response payload type")

	// ErrUnhandledExceptionOnService indicates that a service handler failed or panicked.
	ErrUnhandledExceptionOnService = errors.New("unhandled exception on service")

	// ErrRequestTimeout indicates that a request did not get any answer in time.
	ErrRequestTimeout = errors.New("request or response timed out")

	// ErrConnectionRejected indicates that the service refused the connect request.
	ErrConnectionRejected = errors.New("connection rejected by service")

	// ErrNotConnectedToCatalog indicates that the catalog connection was lost during a request.
	ErrNotConnectedToCatalog = errors.New("not connected to catalog")

	// ErrInvalidArgument indicates an invalid argument passed over the wire.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUndefined is the fallback for unknown error codes.
	ErrUndefined = errors.New("undefined error")
)

// Programming errors. They are returned immediately and never travel as messages.
var (
	// ErrWrongSyncContext is returned when a single threaded port is used from a loop
	// other than the one it is bound to.
	ErrWrongSyncContext = errors.New("wrong synchronization context: port is bound to another loop")

	// ErrNoSyncContext is returned when a single threaded port is used outside of any loop.
	ErrNoSyncContext = errors.New("no synchronization context: port must be used from a running loop")

	// ErrNeverOpened is returned when a reconnect is requested on a port that was never opened.
	ErrNeverOpened = errors.New("port has never been opened")

	// ErrNotLinked is returned when connecting a proxy that is not linked to any service.
	ErrNotLinked = errors.New("port is not linked to a service")

	// ErrAlreadyConnecting is returned when a connect is requested while one is in flight.
	ErrAlreadyConnecting = errors.New("port is already connecting or connected")

	// ErrInvalidActorInterface is returned when an actor interface cannot be registered.
	ErrInvalidActorInterface = errors.New("invalid actor interface")

	// ErrPortClosed is returned when sending through a port that has been disconnected.
	ErrPortClosed = errors.New("port is closed")

	// ErrLoopStopped is returned when posting to a loop that has been stopped.
	ErrLoopStopped = errors.New("loop is stopped")

	// ErrNameRequired is returned when a port is created without a name.
	ErrNameRequired = errors.New("port name is required")

	// ErrInvalidURI is returned when a port uri cannot be parsed.
	ErrInvalidURI = errors.New("invalid port uri")

	// ErrCatalogNotStarted is returned when using a catalog client that was not started.
	ErrCatalogNotStarted = errors.New("catalog client has not started")

	// ErrTransportClosed is returned when writing to a closed transport.
	ErrTransportClosed = errors.New("transport is closed")
)

// NewErrInvalidActorInterface wraps ErrInvalidActorInterface with the failing detail
func NewErrInvalidActorInterface(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidActorInterface, fmt.Sprintf(format, args...))
}

// NewErrCouldNotStartConnect wraps ErrCouldNotStartConnect with the cause
func NewErrCouldNotStartConnect(uri string, err error) error {
	return fmt.Errorf("%w to %s: %w", ErrCouldNotStartConnect, uri, err)
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}
