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
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/remactgo/remact/codec"
	gerrors "github.com/remactgo/remact/errors"
)

// Message is what ports exchange. A message is created by the sending port
// and handled on the loop of the receiving port. Its payload must not be
// changed once sent.
type Message struct {
	messageType MessageType
	payload     any
	clientID    int
	requestID   int
	source      *Port
	destination *Port
	method      string

	// continuation of the requester, carried by a request until it is answered
	sourceContinuation *oneshot
	// continuation run when the message reaches its destination
	destinationContinuation *oneshot

	mu       sync.Mutex
	response *Message
	owner    *Loop
	deferred bool
}

// newRequest creates a request. The id comes from the request counter of sender.
func newRequest(sender, source, destination *Port, method string, payload any, continuation Continuation) *Message {
	return &Message{
		messageType:        MessageTypeRequest,
		payload:            payload,
		clientID:           source.ClientID(),
		requestID:          sender.nextRequestID(),
		source:             source,
		destination:        destination,
		method:             method,
		sourceContinuation: newOneshot(continuation),
	}
}

// newNotification creates a message that expects no answer
func newNotification(source, destination *Port, method string, payload any) *Message {
	messageType := MessageTypeNotification
	if _, ok := payload.(*ErrorMessage); ok {
		messageType = MessageTypeError
	}
	var clientID int
	if source != nil {
		clientID = source.ClientID()
	}
	return &Message{
		messageType: messageType,
		payload:     payload,
		clientID:    clientID,
		source:      source,
		destination: destination,
		method:      method,
	}
}

// Type returns the message type
func (m *Message) Type() MessageType {
	return m.messageType
}

// Payload returns the payload as it was sent, or as a *codec.RawPayload
// when it came from another process and its type is not registered.
func (m *Message) Payload() any {
	return m.payload
}

// ClientID returns the id the service assigned to the client of this message, 0 when unknown
func (m *Message) ClientID() int {
	return m.clientID
}

// RequestID returns the correlation id. It is 0 for notifications.
func (m *Message) RequestID() int {
	return m.requestID
}

// Source returns the sending port
func (m *Message) Source() *Port {
	return m.source
}

// Destination returns the receiving port
func (m *Message) Destination() *Port {
	return m.destination
}

// DestinationMethod returns the name of the handler the message is for
func (m *Message) DestinationMethod() string {
	return m.method
}

// Response returns the response sent to this request, nil while unanswered
func (m *Message) Response() *Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.response
}

// IsRequest returns true for requests
func (m *Message) IsRequest() bool {
	return m.messageType == MessageTypeRequest
}

// IsResponse returns true for responses
func (m *Message) IsResponse() bool {
	return m.messageType == MessageTypeResponse
}

// IsNotification returns true for notifications
func (m *Message) IsNotification() bool {
	return m.messageType == MessageTypeNotification
}

// IsError returns true for error messages
func (m *Message) IsError() bool {
	return m.messageType == MessageTypeError
}

// ErrorPayload returns the *ErrorMessage payload, nil when the payload is not an error
func (m *Message) ErrorPayload() *ErrorMessage {
	errMsg, ok := ConvertPayload[*ErrorMessage](m)
	if !ok {
		return nil
	}
	return errMsg
}

// SendResponse answers the message. The first call on an unanswered request
// sends the response, with the request id, to the requesting port. Any other
// call sends a notification, or an error when payload is an *ErrorMessage,
// with request id 0.
func (m *Message) SendResponse(ctx context.Context, payload any) error {
	if m.source == nil {
		return fmt.Errorf("%w: %s has no source port", gerrors.ErrCouldNotDispatch, m)
	}
	if m.destination != nil && m.destination.checkOwner {
		if err := m.CheckOwner(ctx); err != nil {
			return fmt.Errorf("%w: %s answered off its loop", err, m)
		}
	}

	m.mu.Lock()
	if m.messageType == MessageTypeRequest && m.response == nil {
		messageType := MessageTypeResponse
		if _, ok := payload.(*ErrorMessage); ok {
			messageType = MessageTypeError
		}

		response := &Message{
			messageType:             messageType,
			payload:                 payload,
			clientID:                m.clientID,
			requestID:               m.requestID,
			source:                  m.destination,
			destination:             m.source,
			method:                  m.method,
			destinationContinuation: m.sourceContinuation,
		}
		m.sourceContinuation = nil
		m.response = response
		m.mu.Unlock()

		m.destination.recordSent(ctx, response)
		return m.source.send(ctx, response)
	}
	m.mu.Unlock()

	notification := newNotification(m.destination, m.source, m.method, payload)
	notification.clientID = m.clientID
	m.destination.recordSent(ctx, notification)
	return m.source.send(ctx, notification)
}

// Defer tells the port that the request will be answered later, possibly
// from another goroutine, so that no automatic response is sent when the
// handler returns.
func (m *Message) Defer() {
	m.mu.Lock()
	m.deferred = true
	m.mu.Unlock()
}

// unanswered returns true for a request still waiting for its response
func (m *Message) unanswered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messageType == MessageTypeRequest && m.response == nil && !m.deferred
}

// takeSourceContinuation removes the requester continuation from the request
func (m *Message) takeSourceContinuation() Continuation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sourceContinuation == nil {
		return nil
	}
	return m.sourceContinuation.take()
}

// markAnswered records response as the answer of the request and returns
// false when the request was already answered
func (m *Message) markAnswered(response *Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.response != nil {
		return false
	}
	m.response = response
	return true
}

// TryConvertPayload stores the payload into target, a non-nil pointer, when
// the payload is of the target type or can be decoded into it. It returns
// false on mismatch and never panics.
func (m *Message) TryConvertPayload(target any) bool {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false
	}

	elem := rv.Elem()
	value, ok := convertPayload(m.payload, elem.Type())
	if !ok {
		return false
	}
	elem.Set(value)
	return true
}

// Bind records the loop of ctx as the owner of the message
func (m *Message) Bind(ctx context.Context) {
	m.mu.Lock()
	m.owner = LoopFromContext(ctx)
	m.mu.Unlock()
}

// CheckOwner returns ErrWrongSyncContext when ctx does not belong to the loop
// owning the message. Ports built WithOwnerCheck run it in SendResponse.
func (m *Message) CheckOwner(ctx context.Context) error {
	m.mu.Lock()
	owner := m.owner
	m.mu.Unlock()
	if owner != nil && owner != LoopFromContext(ctx) {
		return gerrors.ErrWrongSyncContext
	}
	return nil
}

// String returns a readable description
func (m *Message) String() string {
	return fmt.Sprintf("%s(%s, clientID=%d, requestID=%d, %s -> %s, payload=%s)",
		m.messageType, m.method, m.clientID, m.requestID, portName(m.source), portName(m.destination), payloadName(m.payload))
}

// ConvertPayload returns the payload of msg as a T
func ConvertPayload[T any](msg *Message) (T, bool) {
	var value T
	if msg == nil {
		return value, false
	}
	ok := msg.TryConvertPayload(&value)
	return value, ok
}

// On runs handler when the payload of msg is a T and returns nil.
// Otherwise it returns msg unchanged, so that calls can be chained:
//
//	msg = actor.On(msg, handlePong)
//	msg = actor.On(msg, handleError)
func On[T any](msg *Message, handler func(payload T, msg *Message)) *Message {
	if msg == nil {
		return nil
	}
	payload, ok := ConvertPayload[T](msg)
	if !ok {
		return msg
	}
	handler(payload, msg)
	return nil
}

// convertPayload returns payload as a value of type target
func convertPayload(payload any, target reflect.Type) (reflect.Value, bool) {
	if payload == nil {
		switch target.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			return reflect.Zero(target), true
		default:
			return reflect.Value{}, false
		}
	}

	value := reflect.ValueOf(payload)
	if value.Type().AssignableTo(target) {
		return value, true
	}

	// payloads decoded from the wire are pointers
	if value.Kind() == reflect.Pointer && !value.IsNil() && value.Type().Elem().AssignableTo(target) {
		return value.Elem(), true
	}

	if target.Kind() == reflect.Pointer && value.Type().AssignableTo(target.Elem()) {
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(value)
		return ptr, true
	}

	raw, ok := payload.(*codec.RawPayload)
	if !ok || raw == nil {
		return reflect.Value{}, false
	}

	if target.Kind() == reflect.Pointer {
		ptr := reflect.New(target.Elem())
		if err := raw.ReadAs(ptr.Interface()); err != nil {
			return reflect.Value{}, false
		}
		return ptr, true
	}

	if target.Kind() == reflect.Interface {
		return reflect.Value{}, false
	}

	ptr := reflect.New(target)
	if err := raw.ReadAs(ptr.Interface()); err != nil {
		return reflect.Value{}, false
	}
	return ptr.Elem(), true
}

func portName(port *Port) string {
	if port == nil {
		return "<nil>"
	}
	return port.Name()
}

func payloadName(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	if raw, ok := payload.(*codec.RawPayload); ok {
		return raw.String()
	}
	return reflect.TypeOf(payload).String()
}
