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

	"github.com/remactgo/remact/future"
	"github.com/remactgo/remact/log"
)

// Session returns the session state of the client that sent msg, as created
// by the SessionFactory of the service.
func Session[T any](msg *Message) (T, bool) {
	var zero T
	if msg == nil || msg.source == nil {
		return zero, false
	}
	value, ok := msg.source.Context().(T)
	if !ok {
		return zero, false
	}
	return value, true
}

// RespondWhenDone answers msg with the outcome of f once it completes:
// its value, or its error as an *ErrorMessage. When ctx ends first the
// request is answered with a ReqOrRspTimeout error.
func RespondWhenDone[T any](ctx context.Context, msg *Message, f future.Future[T]) {
	msg.Defer()
	go func() {
		var payload any
		select {
		case <-f.Done():
			result := f.Result()
			if err := result.Failure(); err != nil {
				payload = toErrorMessage(err, ErrorCodeUnhandledExceptionOnService)
			} else {
				payload = result.Success()
			}
		case <-ctx.Done():
			payload = NewErrorMessage(ErrorCodeReqOrRspTimeout, "%s was not answered in time: %v", msg.method, ctx.Err())
		}

		if err := msg.SendResponse(context.WithoutCancel(ctx), payload); err != nil {
			var logger log.Logger = log.DefaultLogger
			if msg.destination != nil {
				logger = msg.destination.logger
			}
			log.Trace(logger, log.MarkWarning, "could not answer %s: %v", msg, err)
		}
	}()
}
