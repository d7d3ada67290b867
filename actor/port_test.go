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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/log"
)

func TestRequestID(t *testing.T) {
	t.Run("With ids increasing from the baseline", func(t *testing.T) {
		p := testPort("client", nil)
		assert.Equal(t, RequestIDBaseline+1, p.nextRequestID())
		assert.Equal(t, RequestIDBaseline+2, p.nextRequestID())
		assert.Equal(t, RequestIDBaseline+2, p.LastRequestIDSent())
	})
	t.Run("With a wrap to the baseline", func(t *testing.T) {
		p := testPort("client", nil)
		p.maxRequestID = RequestIDBaseline + 3

		var ids []int
		for range 7 {
			ids = append(ids, p.nextRequestID())
		}
		assert.Equal(t, []int{11, 12, 13, 11, 12, 13, 11}, ids)
		assert.NotContains(t, ids, 0)
	})
	t.Run("With a reset", func(t *testing.T) {
		p := testPort("client", nil)
		p.nextRequestID()
		p.nextRequestID()
		assert.Equal(t, 2, p.OutstandingResponsesCount())
		p.resetRequestIDs()
		assert.Zero(t, p.OutstandingResponsesCount())
		assert.Equal(t, RequestIDBaseline+1, p.nextRequestID())
	})
}

func TestAffinity(t *testing.T) {
	cfg := newPortConfig(WithLogger(log.DiscardLogger))
	p := newPort("bound", false, cfg)
	first := newTestLoop(t, "first")
	second := newTestLoop(t, "second")

	assert.ErrorIs(t, p.bind(context.Background()), gerrors.ErrNoSyncContext)
	onLoop(t, first, p.bind)
	onLoop(t, first, p.bind)
	assert.Same(t, first, p.Loop())

	err := second.Invoke(context.Background(), p.bind)
	assert.ErrorIs(t, err, gerrors.ErrWrongSyncContext)

	p.Disconnect()
	assert.Nil(t, p.Loop())
	onLoop(t, second, p.bind)
}

func TestDispatch(t *testing.T) {
	t.Run("With an automatic ReadyMessage for an unanswered request", func(t *testing.T) {
		var client recorder
		source := testPort("client", client.handle)
		service := testPort("service", func(context.Context, *Message) *Message { return nil })

		req := newRequest(source, source, service, "anything", &greeting{}, nil)
		service.PostInput(req)

		messages := client.all()
		require.Len(t, messages, 1)
		assert.True(t, messages[0].IsResponse())
		assert.Equal(t, req.RequestID(), messages[0].RequestID())
		assert.IsType(t, new(ReadyMessage), messages[0].Payload())
	})
	t.Run("With a deferred request", func(t *testing.T) {
		var client recorder
		source := testPort("client", client.handle)
		var deferred *Message
		service := testPort("service", func(_ context.Context, msg *Message) *Message {
			msg.Defer()
			deferred = msg
			return nil
		})

		service.PostInput(newRequest(source, source, service, "later", nil, nil))
		assert.Empty(t, client.all())

		require.NoError(t, deferred.SendResponse(context.Background(), &reply{Text: "done"}))
		messages := client.all()
		require.Len(t, messages, 1)
		assert.True(t, messages[0].IsResponse())
	})
	t.Run("With the continuation first", func(t *testing.T) {
		var order []string
		p := testPort("client", func(context.Context, *Message) *Message {
			order = append(order, "default")
			return nil
		})
		msg := newNotification(nil, p, "m", nil)
		msg.destinationContinuation = newOneshot(func(_ context.Context, msg *Message) *Message {
			order = append(order, "continuation")
			return msg
		})
		p.PostInput(msg)
		assert.Equal(t, []string{"continuation", "default"}, order)
	})
	t.Run("With a panicking handler", func(t *testing.T) {
		var client recorder
		source := testPort("client", client.handle)
		service := testPort("service", func(context.Context, *Message) *Message { panic("boom") })

		service.PostInput(newRequest(source, source, service, "explode", nil, nil))

		errs := client.errors()
		require.Len(t, errs, 1)
		assert.Equal(t, ErrorCodeUnhandledExceptionOnService, errs[0].Code)
		assert.True(t, strings.Contains(errs[0].Message, "boom"))
		assert.ErrorIs(t, errs[0], gerrors.ErrUnhandledExceptionOnService)
	})
	t.Run("With a closed port", func(t *testing.T) {
		var client recorder
		source := testPort("client", client.handle)
		service := testPort("service", nil)
		service.Disconnect()

		service.PostInput(newRequest(source, source, service, "m", nil, nil))
		errs := client.errors()
		require.Len(t, errs, 1)
		assert.Equal(t, ErrorCodeNotConnected, errs[0].Code)
	})
	t.Run("With no loop bound", func(t *testing.T) {
		var client recorder
		source := testPort("client", client.handle)
		service := newPort("service", false, newPortConfig(WithLogger(log.DiscardLogger)))
		service.open.Store(true)

		service.PostInput(newRequest(source, source, service, "m", nil, nil))
		errs := client.errors()
		require.Len(t, errs, 1)
		assert.Equal(t, ErrorCodeCouldNotDispatch, errs[0].Code)
	})
	t.Run("With Dispatch from the wrong loop", func(t *testing.T) {
		service := newPort("service", false, newPortConfig(WithLogger(log.DiscardLogger)))
		first := newTestLoop(t, "first")
		second := newTestLoop(t, "second")
		msg := newNotification(nil, service, "m", nil)

		onLoop(t, first, func(ctx context.Context) error { return service.Dispatch(ctx, msg) })
		err := second.Invoke(context.Background(), func(ctx context.Context) error { return service.Dispatch(ctx, msg) })
		assert.ErrorIs(t, err, gerrors.ErrWrongSyncContext)
	})
}

func TestPortIdentity(t *testing.T) {
	p := newPort("", false, newPortConfig(WithLogger(log.DiscardLogger), WithAppName("app"), WithAppInstance(7), WithHostName("box")))
	assert.True(t, strings.HasPrefix(p.Name(), "anonymous-"))

	info := p.Info()
	assert.Equal(t, "app", info.AppName)
	assert.Equal(t, 7, info.AppInstance)
	assert.Equal(t, "box", info.HostName)
	assert.Equal(t, 60, info.TimeoutSeconds)

	info.Name = "changed"
	assert.NotEqual(t, "changed", p.Name())

	p.SetContext("session")
	assert.Equal(t, "session", p.Context())
}
