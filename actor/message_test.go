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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remactgo/remact/codec"
	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/future"
	"github.com/remactgo/remact/internal/types"
	"github.com/remactgo/remact/log"
)

// testPort creates an open multithreaded port dispatching on the caller goroutine
func testPort(name string, handler MessageHandler) *Port {
	cfg := newPortConfig(WithLogger(log.DiscardLogger), WithMultithreaded(), WithDefaultHandler(handler))
	p := newPort(name, false, cfg)
	p.open.Store(true)
	return p
}

func TestSendResponse(t *testing.T) {
	t.Run("With at most one response per request", func(t *testing.T) {
		var client recorder
		source := testPort("client", client.handle)
		destination := testPort("service", nil)

		req := newRequest(source, source, destination, "greet", &greeting{Text: "x"}, nil)
		ctx := context.Background()
		require.NoError(t, req.SendResponse(ctx, &reply{Text: "first"}))
		require.NoError(t, req.SendResponse(ctx, &reply{Text: "second"}))
		require.NoError(t, req.SendResponse(ctx, NewErrorMessage(ErrorCodeUndefined, "third")))

		messages := client.all()
		require.Len(t, messages, 3)

		assert.True(t, messages[0].IsResponse())
		assert.Equal(t, req.RequestID(), messages[0].RequestID())
		assert.Same(t, messages[0], req.Response())

		assert.True(t, messages[1].IsNotification())
		assert.Zero(t, messages[1].RequestID())
		assert.True(t, messages[2].IsError())
		assert.Zero(t, messages[2].RequestID())
	})
	t.Run("With the continuation moved to the response", func(t *testing.T) {
		var client recorder
		source := testPort("client", client.handle)
		destination := testPort("service", nil)

		calls := 0
		req := newRequest(source, source, destination, "greet", &greeting{}, func(_ context.Context, rsp *Message) *Message {
			calls++
			return nil
		})
		require.NoError(t, req.SendResponse(context.Background(), &reply{}))
		require.NoError(t, req.SendResponse(context.Background(), &reply{}))

		assert.Equal(t, 1, calls)
		// the notification is not taken by the continuation
		assert.Len(t, client.all(), 1)
		assert.Nil(t, req.takeSourceContinuation())
	})
	t.Run("With an error payload", func(t *testing.T) {
		var client recorder
		source := testPort("client", client.handle)
		req := newRequest(source, source, testPort("service", nil), "greet", nil, nil)

		require.NoError(t, req.SendResponse(context.Background(), NewErrorMessage(ErrorCodeArgumentError, "bad")))
		rsp := req.Response()
		require.NotNil(t, rsp)
		assert.True(t, rsp.IsError())
		require.NotNil(t, rsp.ErrorPayload())
		assert.Equal(t, ErrorCodeArgumentError, rsp.ErrorPayload().Code)
	})
	t.Run("With no source", func(t *testing.T) {
		msg := newNotification(nil, testPort("service", nil), "m", nil)
		assert.Error(t, msg.SendResponse(context.Background(), &reply{}))
	})
}

func TestConvertPayload(t *testing.T) {
	msg := newNotification(nil, nil, "greet", &greeting{Text: "hi"})

	t.Run("With the same type", func(t *testing.T) {
		value, ok := ConvertPayload[*greeting](msg)
		require.True(t, ok)
		assert.Equal(t, "hi", value.Text)
	})
	t.Run("With the element type", func(t *testing.T) {
		value, ok := ConvertPayload[greeting](msg)
		require.True(t, ok)
		assert.Equal(t, "hi", value.Text)
	})
	t.Run("With a mismatch", func(t *testing.T) {
		_, ok := ConvertPayload[*reply](msg)
		assert.False(t, ok)
		var target reply
		assert.False(t, msg.TryConvertPayload(target))
	})
	t.Run("With a deferred payload", func(t *testing.T) {
		serializer := codec.NewCBORSerializer(types.NewRegistry())
		name, data, err := serializer.EncodePayload(&greeting{Text: "remote"})
		require.NoError(t, err)
		payload, err := serializer.DecodePayload(name, data)
		require.NoError(t, err)
		require.IsType(t, new(codec.RawPayload), payload)

		deferred := newNotification(nil, nil, "greet", payload)
		value, ok := ConvertPayload[*greeting](deferred)
		require.True(t, ok)
		assert.Equal(t, "remote", value.Text)

		plain, ok := ConvertPayload[greeting](deferred)
		require.True(t, ok)
		assert.Equal(t, "remote", plain.Text)

		_, ok = ConvertPayload[*reply](deferred)
		assert.False(t, ok)
	})
	t.Run("With a nil message", func(t *testing.T) {
		_, ok := ConvertPayload[*greeting](nil)
		assert.False(t, ok)
	})
}

func TestOn(t *testing.T) {
	msg := newNotification(nil, nil, "greet", &greeting{Text: "hi"})

	t.Run("With a mismatched payload", func(t *testing.T) {
		called := false
		got := On(msg, func(*reply, *Message) { called = true })
		assert.Same(t, msg, got)
		assert.False(t, called)
	})
	t.Run("With a matching payload", func(t *testing.T) {
		var text string
		got := On(msg, func(in *greeting, _ *Message) { text = in.Text })
		assert.Nil(t, got)
		assert.Equal(t, "hi", text)
	})
	t.Run("With chained handlers", func(t *testing.T) {
		var text string
		rest := On(msg, func(*reply, *Message) {})
		rest = On(rest, func(in greeting, _ *Message) { text = in.Text })
		assert.Nil(t, rest)
		assert.Equal(t, "hi", text)
		assert.Nil(t, On(nil, func(greeting, *Message) {}))
	})
}

func TestCheckOwner(t *testing.T) {
	first := newTestLoop(t, "first")
	second := newTestLoop(t, "second")
	msg := newNotification(nil, nil, "m", nil)

	assert.NoError(t, msg.CheckOwner(context.Background()))
	onLoop(t, first, func(ctx context.Context) error {
		msg.Bind(ctx)
		return msg.CheckOwner(ctx)
	})
	err := second.Invoke(context.Background(), msg.CheckOwner)
	assert.Error(t, err)
}

func TestOwnerCheck(t *testing.T) {
	// later defers every request and hands it to the test
	later := func(held chan<- *Message) *Dispatcher {
		d := greeter()
		_ = Handle(d, "later", func(_ context.Context, _ *greeting, msg *Message) (any, error) {
			msg.Defer()
			held <- msg
			return nil, nil
		})
		return d
	}

	t.Run("With an answer off the dispatching loop", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		held := make(chan *Message, 1)
		service := openService(t, loop, "greeter", WithDispatcher(later(held)), WithOwnerCheck())
		proxy := linked(t, loop, service, "client")

		var f future.Future[*reply]
		onLoop(t, loop, func(ctx context.Context) error {
			f = SendReceiveAsync[*reply](ctx, proxy, "later", &greeting{})
			return nil
		})
		req := <-held

		err := req.SendResponse(context.Background(), &reply{Text: "stray"})
		require.ErrorIs(t, err, gerrors.ErrWrongSyncContext)

		onLoop(t, loop, func(ctx context.Context) error {
			return req.SendResponse(ctx, &reply{Text: "home"})
		})
		out, err := await(t, f)
		require.NoError(t, err)
		assert.Equal(t, "home", out.Text)
	})
	t.Run("Without the check", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		held := make(chan *Message, 1)
		service := openService(t, loop, "greeter", WithDispatcher(later(held)))
		proxy := linked(t, loop, service, "client")

		var f future.Future[*reply]
		onLoop(t, loop, func(ctx context.Context) error {
			f = SendReceiveAsync[*reply](ctx, proxy, "later", &greeting{})
			return nil
		})
		req := <-held

		require.NoError(t, req.SendResponse(context.Background(), &reply{Text: "anywhere"}))
		out, err := await(t, f)
		require.NoError(t, err)
		assert.Equal(t, "anywhere", out.Text)
	})
}
