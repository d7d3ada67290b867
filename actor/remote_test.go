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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"

	"github.com/remactgo/remact/address"
	"github.com/remactgo/remact/log"
	"github.com/remactgo/remact/remote"
)

// note is not registered: it crosses the wire as a raw payload
type note struct {
	Body string
}

func newConfigurator(t *testing.T, opts ...remote.Option) *remote.Configurator {
	t.Helper()
	opts = append([]remote.Option{
		remote.WithLogger(log.DiscardLogger),
		remote.WithBindAddress("127.0.0.1", dynaport.Get(1)[0]),
		remote.WithAdvertisedHost("127.0.0.1"),
	}, opts...)
	configurator := remote.NewConfigurator(opts...)
	t.Cleanup(func() { _ = configurator.Close() })
	return configurator
}

func remoteGreeter() *Dispatcher {
	d := greeter()
	_ = Handle(d, "note", func(_ context.Context, in *note, _ *Message) (any, error) {
		return &note{Body: in.Body + "!"}, nil
	})
	return d
}

func TestRemote(t *testing.T) {
	for _, scheme := range []string{address.SchemeTCP, address.SchemeWS} {
		t.Run(fmt.Sprintf("With a round trip over %s", scheme), func(t *testing.T) {
			configurator := newConfigurator(t, remote.WithScheme(scheme), remote.WithCompression())
			serviceLoop := newTestLoop(t, "service")
			clientLoop := newTestLoop(t, "client")

			service := openService(t, serviceLoop, "greeter", WithDispatcher(remoteGreeter()), WithConfigurator(configurator))
			addr, err := address.Parse(service.URI())
			require.NoError(t, err)
			assert.Equal(t, scheme, addr.Scheme())
			assert.Equal(t, "greeter", addr.Service())

			var notified recorder
			proxy := newProxy(t, "client", WithConfigurator(configurator), WithDefaultHandler(notified.handle))
			require.NoError(t, proxy.LinkToRemoteService(service.URI()))

			info, err := await(t, connect(t, clientLoop, proxy))
			require.NoError(t, err)
			assert.Equal(t, 1, info.ClientID)
			assert.Equal(t, service.URI(), info.URI)

			out, err := ask[*reply](t, clientLoop, proxy, "greet", &greeting{Text: "bob"})
			require.NoError(t, err)
			assert.Equal(t, "hello bob", out.Text)

			raw, err := ask[*note](t, clientLoop, proxy, "note", &note{Body: "hey"})
			require.NoError(t, err)
			assert.Equal(t, "hey!", raw.Body)

			_, err = ask[*reply](t, clientLoop, proxy, "greet", 42)
			assert.Equal(t, ErrorCodeArgumentError, errorCode(t, err))

			onLoop(t, serviceLoop, func(ctx context.Context) error {
				return service.Notify(ctx, "headline", &greeting{Text: "news"})
			})
			require.Eventually(t, func() bool { return len(notified.all()) == 1 }, awaitTimeout, 10*time.Millisecond)
			headline, ok := ConvertPayload[*greeting](notified.all()[0])
			require.True(t, ok)
			assert.Equal(t, "news", headline.Text)
		})
	}

	t.Run("With a reconnect keeping the client id", func(t *testing.T) {
		configurator := newConfigurator(t)
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "greeter", WithDispatcher(greeter()), WithConfigurator(configurator))
		proxy := newProxy(t, "client", WithConfigurator(configurator))
		require.NoError(t, proxy.LinkToRemoteService(service.URI()))

		_, err := await(t, connect(t, loop, proxy))
		require.NoError(t, err)
		proxy.Disconnect()
		require.Eventually(t, func() bool { return service.ClientCount() == 0 }, awaitTimeout, 10*time.Millisecond)

		var f = proxy.Reconnect(context.Background())
		info, err := await(t, f)
		require.NoError(t, err)
		assert.Equal(t, 1, info.ClientID)

		out, err := ask[*reply](t, loop, proxy, "greet", &greeting{Text: "again"})
		require.NoError(t, err)
		assert.Equal(t, "hello again", out.Text)
	})
	t.Run("With the service going away", func(t *testing.T) {
		configurator := newConfigurator(t)
		loop := newTestLoop(t, "main")
		service := openService(t, loop, "greeter", WithConfigurator(configurator))

		var handled recorder
		proxy := newProxy(t, "client", WithConfigurator(configurator), WithDefaultHandler(handled.handle))
		require.NoError(t, proxy.LinkToRemoteService(service.URI()))
		_, err := await(t, connect(t, loop, proxy))
		require.NoError(t, err)

		service.Disconnect()
		require.Eventually(t, func() bool { return proxy.State() == PortStateFaulted }, awaitTimeout, 10*time.Millisecond)
		require.Eventually(t, func() bool { return len(handled.errors()) == 1 }, awaitTimeout, 10*time.Millisecond)
		assert.Equal(t, ErrorCodeNotConnected, handled.errors()[0].Code)
	})
	t.Run("With nobody listening", func(t *testing.T) {
		loop := newTestLoop(t, "main")
		configurator := remote.NewConfigurator(remote.WithLogger(log.DiscardLogger), remote.WithDialTimeout(time.Second))
		proxy := newProxy(t, "client", WithConfigurator(configurator))
		uri := fmt.Sprintf("tcp://127.0.0.1:%d/nobody", dynaport.Get(1)[0])
		require.NoError(t, proxy.LinkToRemoteService(uri))

		_, err := await(t, connect(t, loop, proxy))
		assert.Equal(t, ErrorCodeCouldNotStartConnect, errorCode(t, err))
		assert.Equal(t, PortStateFaulted, proxy.State())
	})
}
