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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/future"
)

// holder defers every "hold" request without ever answering it
func holder() *Dispatcher {
	d := greeter()
	_ = Handle(d, "hold", func(_ context.Context, _ *greeting, msg *Message) (any, error) {
		msg.Defer()
		return nil, nil
	})
	return d
}

func linked(t *testing.T, loop *Loop, service *PortService, name string, opts ...Option) *PortProxy {
	t.Helper()
	proxy := newProxy(t, name, opts...)
	require.NoError(t, proxy.LinkToService(service))
	_, err := await(t, connect(t, loop, proxy))
	require.NoError(t, err)
	require.Equal(t, PortStateOk, proxy.State())
	return proxy
}

func errorCode(t *testing.T, err error) ErrorCode {
	t.Helper()
	var errMsg *ErrorMessage
	require.ErrorAs(t, err, &errMsg)
	return errMsg.Code
}

func TestPortProxy(t *testing.T) {
	t.Run("With a round trip", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "greeter", WithDispatcher(greeter()))
		proxy := newProxy(t, "client")
		require.NoError(t, proxy.LinkToService(service))
		assert.Equal(t, PortStateUnlinked, proxy.State())

		info, err := await(t, connect(t, loop, proxy))
		require.NoError(t, err)
		assert.Equal(t, 1, info.ClientID)
		assert.Equal(t, "greeter", info.Name)
		assert.Equal(t, ServiceConnectResponse, info.Usage)
		assert.Equal(t, 1, proxy.ClientID())
		assert.Equal(t, "greeter", proxy.ServiceInfo().Name)

		out, err := ask[*reply](t, loop, proxy, "greet", &greeting{Text: "bob"})
		require.NoError(t, err)
		assert.Equal(t, "hello bob", out.Text)
		assert.Equal(t, 1, service.ClientCount())

		client, ok := service.ClientInfo(1)
		require.True(t, ok)
		assert.Equal(t, "client", client.Name)
	})
	t.Run("With the proxy and the service on different loops", func(t *testing.T) {
		serviceLoop := newTestLoop(t, "service")
		clientLoop := newTestLoop(t, "client")
		service := openService(t, serviceLoop, "greeter", WithDispatcher(greeter()))
		proxy := linked(t, clientLoop, service, "client")

		out, err := ask[*reply](t, clientLoop, proxy, "greet", &greeting{Text: "ann"})
		require.NoError(t, err)
		assert.Equal(t, "hello ann", out.Text)

		err = serviceLoop.Invoke(context.Background(), func(ctx context.Context) error {
			return proxy.SendReceive(ctx, "greet", &greeting{}, nil)
		})
		assert.ErrorIs(t, err, gerrors.ErrWrongSyncContext)
	})
	t.Run("With an unexpected response type", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "greeter", WithDispatcher(greeter()))
		proxy := linked(t, loop, service, "client")

		_, err := ask[*greeting](t, loop, proxy, "greet", &greeting{Text: "bob"})
		assert.Equal(t, ErrorCodeUnexpectedResponsePayloadType, errorCode(t, err))

		_, err = ask[*reply](t, loop, proxy, "greet", 42)
		assert.Equal(t, ErrorCodeArgumentError, errorCode(t, err))
	})
	t.Run("With a response racing a disconnect", func(t *testing.T) {
		serviceLoop := newTestLoop(t, "service")
		clientLoop := newTestLoop(t, "client")
		release := make(chan struct{})
		answered := make(chan struct{})
		d := greeter()
		require.NoError(t, Handle(d, "slow", func(ctx context.Context, in *greeting, msg *Message) (any, error) {
			<-release
			err := msg.SendResponse(ctx, &reply{Text: in.Text})
			close(answered)
			return nil, err
		}))
		service := openService(t, serviceLoop, "greeter", WithDispatcher(d))
		proxy := linked(t, clientLoop, service, "client")

		var f future.Future[*reply]
		onLoop(t, clientLoop, func(ctx context.Context) error {
			f = SendReceiveAsync[*reply](ctx, proxy, "slow", &greeting{Text: "late"})
			return nil
		})
		// the answer leaves the service after the proxy closed, before the
		// pending requests are failed
		onLoop(t, clientLoop, func(context.Context) error {
			proxy.Disconnect()
			close(release)
			<-answered
			return nil
		})

		_, err := await(t, f)
		assert.Equal(t, ErrorCodeNotConnected, errorCode(t, err))
		assert.Eventually(t, func() bool { return proxy.OutstandingResponsesCount() == 0 }, awaitTimeout, 10*time.Millisecond)
	})
	t.Run("With the service busy during Disconnect", func(t *testing.T) {
		serviceLoop := newTestLoop(t, "service")
		clientLoop := newTestLoop(t, "client")
		started := make(chan struct{})
		release := make(chan struct{})
		d := greeter()
		require.NoError(t, Handle(d, "block", func(context.Context, *greeting, *Message) (any, error) {
			close(started)
			<-release
			return &reply{}, nil
		}))
		service := openService(t, serviceLoop, "greeter", WithDispatcher(d))
		proxy := linked(t, clientLoop, service, "client")

		onLoop(t, clientLoop, func(ctx context.Context) error {
			SendReceiveAsync[*reply](ctx, proxy, "block", &greeting{})
			return nil
		})
		<-started

		// the service cannot answer the goodbye until released
		begin := time.Now()
		proxy.Disconnect()
		assert.Less(t, time.Since(begin), 10*DisconnectGrace)
		assert.Equal(t, PortStateDisconnected, proxy.State())

		close(release)
		assert.Eventually(t, func() bool { return service.ClientCount() == 0 }, awaitTimeout, 10*time.Millisecond)
	})
	t.Run("With the same client id after a reconnect", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "greeter", WithDispatcher(greeter()))
		proxy := linked(t, loop, service, "client")
		other := linked(t, loop, service, "other")
		assert.Equal(t, 2, other.ClientID())

		proxy.Disconnect()
		assert.Equal(t, PortStateDisconnected, proxy.State())
		assert.Eventually(t, func() bool { return service.ClientCount() == 1 }, awaitTimeout, 10*time.Millisecond)

		var f future.Future[*ActorInfo]
		onLoop(t, loop, func(ctx context.Context) error {
			f = proxy.Reconnect(ctx)
			return nil
		})
		info, err := await(t, f)
		require.NoError(t, err)
		assert.Equal(t, 1, info.ClientID)
		assert.Equal(t, PortStateOk, proxy.State())

		out, err := ask[*reply](t, loop, proxy, "greet", &greeting{Text: "again"})
		require.NoError(t, err)
		assert.Equal(t, "hello again", out.Text)
	})
	t.Run("With pending requests failed on Disconnect", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "holder", WithDispatcher(holder()))
		proxy := linked(t, loop, service, "client")

		var first, second future.Future[*reply]
		onLoop(t, loop, func(ctx context.Context) error {
			first = SendReceiveAsync[*reply](ctx, proxy, "hold", &greeting{})
			second = SendReceiveAsync[*reply](ctx, proxy, "hold", &greeting{})
			return nil
		})
		assert.Equal(t, 2, proxy.OutstandingResponsesCount())

		proxy.Disconnect()

		for _, f := range []future.Future[*reply]{first, second} {
			_, err := await(t, f)
			assert.Equal(t, ErrorCodeNotConnected, errorCode(t, err))
			assert.ErrorIs(t, err, gerrors.ErrNotConnected)
		}
		assert.Eventually(t, func() bool { return proxy.OutstandingResponsesCount() == 0 }, awaitTimeout, 10*time.Millisecond)
	})
	t.Run("With errors before connecting", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		proxy := newProxy(t, "client")

		_, err := await(t, proxy.ConnectAsync(context.Background()))
		assert.ErrorIs(t, err, gerrors.ErrNoSyncContext)

		_, err = await(t, connect(t, loop, proxy))
		assert.ErrorIs(t, err, gerrors.ErrNotLinked)

		_, err = await(t, proxy.Reconnect(context.Background()))
		assert.ErrorIs(t, err, gerrors.ErrNeverOpened)

		err = loop.Invoke(context.Background(), func(ctx context.Context) error {
			return proxy.SendReceive(ctx, "greet", &greeting{}, nil)
		})
		assert.ErrorIs(t, err, gerrors.ErrNotConnected)

		assert.ErrorIs(t, proxy.LinkToService(nil), gerrors.ErrInvalidArgument)
		assert.ErrorIs(t, proxy.LinkToRemoteService("http://localhost:80/greeter"), gerrors.ErrInvalidURI)
		assert.ErrorIs(t, proxy.LinkToServiceByName("", nil), gerrors.ErrNameRequired)
		assert.ErrorIs(t, proxy.LinkToServiceByName("greeter", nil), gerrors.ErrNotConnectedToCatalog)
		assert.Equal(t, PortStateUnlinked, proxy.State())
	})
	t.Run("With a second connect", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "greeter")
		proxy := linked(t, loop, service, "client")

		_, err := await(t, connect(t, loop, proxy))
		assert.ErrorIs(t, err, gerrors.ErrAlreadyConnecting)
		assert.ErrorIs(t, proxy.LinkToService(service), gerrors.ErrAlreadyConnecting)
	})
	t.Run("With a closed service", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "greeter")
		service.Disconnect()

		proxy := newProxy(t, "client")
		require.NoError(t, proxy.LinkToService(service))
		_, err := await(t, connect(t, loop, proxy))
		assert.Equal(t, ErrorCodeNotConnected, errorCode(t, err))
		assert.Equal(t, PortStateFaulted, proxy.State())
	})
	t.Run("With SetState", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "greeter")
		proxy := linked(t, loop, service, "client")

		onLoop(t, loop, func(ctx context.Context) error { return proxy.SetState(ctx, PortStateOk) })
		onLoop(t, loop, func(ctx context.Context) error { return proxy.SetState(ctx, PortStateDisconnected) })
		assert.Equal(t, PortStateDisconnected, proxy.State())

		onLoop(t, loop, func(ctx context.Context) error { return proxy.SetState(ctx, PortStateOk) })
		assert.Eventually(t, func() bool { return proxy.State() == PortStateOk }, awaitTimeout, 10*time.Millisecond)

		onLoop(t, loop, func(ctx context.Context) error { return proxy.SetState(ctx, PortStateFaulted) })
		assert.Equal(t, PortStateFaulted, proxy.State())

		err := loop.Invoke(context.Background(), func(ctx context.Context) error {
			return proxy.SetState(ctx, PortStateUnlinked)
		})
		assert.ErrorIs(t, err, gerrors.ErrInvalidArgument)
	})
}

func TestPortServiceClients(t *testing.T) {
	t.Run("With a notification to every client", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "news")

		var first, second recorder
		linked(t, loop, service, "first", WithDefaultHandler(first.handle))
		linked(t, loop, service, "second", WithDefaultHandler(second.handle))

		onLoop(t, loop, func(ctx context.Context) error {
			return service.Notify(ctx, "headline", &greeting{Text: "hi"})
		})

		for _, r := range []*recorder{&first, &second} {
			require.Eventually(t, func() bool { return len(r.all()) == 1 }, awaitTimeout, 10*time.Millisecond)
			msg := r.all()[0]
			assert.True(t, msg.IsNotification())
			assert.Equal(t, "headline", msg.DestinationMethod())
		}

		names := make([]string, 0, 2)
		for _, info := range service.Clients() {
			names = append(names, info.Name)
		}
		assert.Equal(t, []string{"first", "second"}, names)

		assert.ErrorIs(t, service.Notify(context.Background(), "headline", nil), gerrors.ErrNoSyncContext)
	})
	t.Run("With a session per client", func(t *testing.T) {
		d := NewDispatcher()
		require.NoError(t, Handle(d, "count", func(_ context.Context, _ *greeting, msg *Message) (any, error) {
			session, ok := Session[*counter](msg)
			if !ok {
				return nil, errors.New("no session")
			}
			session.calls++
			return &reply{Count: session.calls}, nil
		}))

		loop := newTestLoop(t, "main")
		service := openService(t, loop, "counter", WithDispatcher(d),
			WithSessionFactory(func(*ActorInfo) any { return new(counter) }))
		a := linked(t, loop, service, "a")
		b := linked(t, loop, service, "b")

		for _, want := range []int{1, 2} {
			out, err := ask[*reply](t, loop, a, "count", &greeting{})
			require.NoError(t, err)
			assert.Equal(t, want, out.Count)
		}
		out, err := ask[*reply](t, loop, b, "count", &greeting{})
		require.NoError(t, err)
		assert.Equal(t, 1, out.Count)
	})
	t.Run("With a response sent when a future completes", func(t *testing.T) {
		d := NewDispatcher()
		require.NoError(t, Handle(d, "later", func(ctx context.Context, in *greeting, msg *Message) (any, error) {
			RespondWhenDone(ctx, msg, future.New(func() (*reply, error) {
				if in.Text == "" {
					return nil, gerrors.ErrInvalidArgument
				}
				return &reply{Text: in.Text}, nil
			}))
			return nil, nil
		}))

		loop := newTestLoop(t, "main")
		service := openService(t, loop, "later", WithDispatcher(d))
		proxy := linked(t, loop, service, "client")

		out, err := ask[*reply](t, loop, proxy, "later", &greeting{Text: "done"})
		require.NoError(t, err)
		assert.Equal(t, "done", out.Text)

		_, err = ask[*reply](t, loop, proxy, "later", &greeting{})
		assert.Equal(t, ErrorCodeArgumentError, errorCode(t, err))
	})
}

func TestChannelTest(t *testing.T) {
	t.Run("With a silent service", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "holder", WithDispatcher(holder()))

		var handled recorder
		proxy := linked(t, loop, service, "client", WithTimeout(200*time.Millisecond), WithDefaultHandler(handled.handle))

		var f future.Future[*reply]
		onLoop(t, loop, func(ctx context.Context) error {
			f = SendReceiveAsync[*reply](ctx, proxy, "hold", &greeting{})
			return nil
		})

		_, err := await(t, f)
		assert.Equal(t, ErrorCodeNotConnected, errorCode(t, err))
		assert.Equal(t, PortStateFaulted, proxy.State())

		require.Eventually(t, func() bool { return len(handled.errors()) == 1 }, awaitTimeout, 10*time.Millisecond)
		assert.Equal(t, ErrorCodeReqOrRspTimeout, handled.errors()[0].Code)
	})
	t.Run("With a closed service", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "greeter")
		proxy := linked(t, loop, service, "client", WithTimeout(200*time.Millisecond))

		service.Disconnect()
		assert.Eventually(t, func() bool { return proxy.State() == PortStateFaulted }, awaitTimeout, 10*time.Millisecond)
	})
	t.Run("With an idle connection kept alive", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "greeter")
		proxy := linked(t, loop, service, "client", WithTimeout(200*time.Millisecond))

		time.Sleep(600 * time.Millisecond)
		assert.Equal(t, PortStateOk, proxy.State())
		assert.Greater(t, proxy.LastRequestIDSent(), RequestIDBaseline+1)
	})
}
