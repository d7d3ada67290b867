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
	"reflect"
	"slices"
	"sync"

	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/log"
)

var (
	messagePtrType = reflect.TypeOf((*Message)(nil))
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
)

// methodHandler is a registered dispatcher method
type methodHandler struct {
	method    string
	paramType reflect.Type
	invoke    func(ctx context.Context, payload reflect.Value, msg *Message) (any, error)
}

// Dispatcher routes messages to handlers by destination method name.
// The payload is converted to the parameter type of the handler and a
// non-nil handler result is sent as the response.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]*methodHandler
}

// NewDispatcher creates an empty Dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]*methodHandler)}
}

// Handle registers fn as the handler of method
func Handle[P any](d *Dispatcher, method string, fn func(ctx context.Context, payload P, msg *Message) (any, error)) error {
	if method == "" || fn == nil {
		return gerrors.NewErrInvalidActorInterface("method name and handler are required")
	}

	handler := &methodHandler{
		method:    method,
		paramType: reflect.TypeOf((*P)(nil)).Elem(),
		invoke: func(ctx context.Context, payload reflect.Value, msg *Message) (any, error) {
			value, _ := payload.Interface().(P)
			return fn(ctx, value, msg)
		},
	}
	return d.register(handler)
}

// AddActorInterface registers every method of an interface implemented by
// impl. iface is a nil pointer to the interface, e.g. (*PingService)(nil).
//
// Methods take (payload P, msg *Message) or (payload P, msg *Message, session S)
// and return nothing, (R), (error) or (R, error). S receives the session
// state of the client stub when it is assignable to S.
//
// Nothing is registered when a method does not match or collides with a
// method already registered.
func (d *Dispatcher) AddActorInterface(iface any, impl any) error {
	ifaceType := reflect.TypeOf(iface)
	if ifaceType == nil || ifaceType.Kind() != reflect.Pointer || ifaceType.Elem().Kind() != reflect.Interface {
		return gerrors.NewErrInvalidActorInterface("%v is not a pointer to an interface", ifaceType)
	}
	ifaceType = ifaceType.Elem()

	if impl == nil {
		return gerrors.NewErrInvalidActorInterface("no implementation given for %s", ifaceType)
	}

	implValue := reflect.ValueOf(impl)
	if !implValue.Type().Implements(ifaceType) {
		return gerrors.NewErrInvalidActorInterface("%s does not implement %s", implValue.Type(), ifaceType)
	}

	handlers := make([]*methodHandler, 0, ifaceType.NumMethod())
	for i := range ifaceType.NumMethod() {
		method := ifaceType.Method(i)
		handler, err := newMethodHandler(method.Name, method.Type, implValue.MethodByName(method.Name))
		if err != nil {
			return err
		}
		handlers = append(handlers, handler)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, handler := range handlers {
		if _, ok := d.handlers[handler.method]; ok {
			return gerrors.NewErrInvalidActorInterface("method %s is already registered", handler.method)
		}
	}
	for _, handler := range handlers {
		d.handlers[handler.method] = handler
	}
	return nil
}

// Methods returns the registered method names, sorted
func (d *Dispatcher) Methods() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	methods := make([]string, 0, len(d.handlers))
	for method := range d.handlers {
		methods = append(methods, method)
	}
	slices.Sort(methods)
	return methods
}

func (d *Dispatcher) register(handler *methodHandler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handlers[handler.method]; ok {
		return gerrors.NewErrInvalidActorInterface("method %s is already registered", handler.method)
	}
	d.handlers[handler.method] = handler
	return nil
}

func (d *Dispatcher) lookup(method string) (*methodHandler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	handler, ok := d.handlers[method]
	return handler, ok
}

// dispatch runs the handler of the message method. It returns msg when no handler is registered.
func (d *Dispatcher) dispatch(ctx context.Context, port *Port, msg *Message) *Message {
	handler, ok := d.lookup(msg.method)
	if !ok {
		return msg
	}

	payload, ok := convertPayload(msg.payload, handler.paramType)
	if !ok {
		errMsg := NewErrorMessage(ErrorCodeArgumentError, "method %s expects %s, got %s",
			msg.method, handler.paramType, payloadName(msg.payload))
		d.fail(ctx, port, msg, errMsg)
		return nil
	}

	result, err := handler.invoke(ctx, payload, msg)
	if err != nil {
		d.fail(ctx, port, msg, toErrorMessage(err, ErrorCodeUnhandledExceptionOnService))
		return nil
	}

	if !isNil(result) {
		if err := msg.SendResponse(ctx, result); err != nil {
			log.Trace(port.logger, log.MarkWarning, "%s could not answer %s: %v", port, msg, err)
		}
	}
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, port *Port, msg *Message, errMsg *ErrorMessage) {
	if port.metric != nil {
		port.metric.RecordFailure(ctx, port.Name())
	}

	if !msg.unanswered() {
		log.Trace(port.logger, log.MarkWarning, "%s %s: %v", port, msg, errMsg)
		return
	}
	if err := msg.SendResponse(ctx, errMsg); err != nil {
		log.Trace(port.logger, log.MarkWarning, "%s could not answer %s: %v", port, msg, err)
	}
}

// newMethodHandler validates the signature of an interface method and wraps its implementation
func newMethodHandler(name string, signature reflect.Type, impl reflect.Value) (*methodHandler, error) {
	numIn := signature.NumIn()
	if numIn != 2 && numIn != 3 {
		return nil, gerrors.NewErrInvalidActorInterface("method %s must take (payload, *Message[, session])", name)
	}
	if signature.In(1) != messagePtrType {
		return nil, gerrors.NewErrInvalidActorInterface("second parameter of method %s must be *actor.Message", name)
	}

	numOut := signature.NumOut()
	switch numOut {
	case 0, 1:
	case 2:
		if signature.Out(1) != errorType {
			return nil, gerrors.NewErrInvalidActorInterface("method %s must return (result, error)", name)
		}
	default:
		return nil, gerrors.NewErrInvalidActorInterface("method %s returns too many values", name)
	}

	var sessionType reflect.Type
	if numIn == 3 {
		sessionType = signature.In(2)
	}

	invoke := func(_ context.Context, payload reflect.Value, msg *Message) (any, error) {
		args := []reflect.Value{payload, reflect.ValueOf(msg)}
		if sessionType != nil {
			args = append(args, sessionValue(msg, sessionType))
		}

		out := impl.Call(args)
		switch len(out) {
		case 0:
			return nil, nil
		case 1:
			if signature.Out(0) == errorType {
				err, _ := out[0].Interface().(error)
				return nil, err
			}
			return out[0].Interface(), nil
		default:
			err, _ := out[1].Interface().(error)
			return out[0].Interface(), err
		}
	}

	return &methodHandler{method: name, paramType: signature.In(0), invoke: invoke}, nil
}

// sessionValue returns the session state of the client of msg as a sessionType
func sessionValue(msg *Message, sessionType reflect.Type) reflect.Value {
	if msg.source != nil {
		if session := msg.source.Context(); session != nil && reflect.TypeOf(session).AssignableTo(sessionType) {
			return reflect.ValueOf(session)
		}
	}
	return reflect.Zero(sessionType)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
