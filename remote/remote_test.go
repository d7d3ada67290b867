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

package remote

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"
	"go.uber.org/goleak"

	"github.com/remactgo/remact/address"
	"github.com/remactgo/remact/codec"
	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// echoHandler answers every request with a response carrying the same payload
type echoHandler struct {
	mu       sync.Mutex
	received []*codec.Envelope
	closed   chan Session
}

func newEchoHandler() *echoHandler {
	return &echoHandler{closed: make(chan Session, 8)}
}

func (h *echoHandler) OnEnvelope(session Session, envelope *codec.Envelope) {
	h.mu.Lock()
	h.received = append(h.received, envelope)
	h.mu.Unlock()

	if envelope.Kind != codec.KindRequest {
		return
	}
	_ = session.SendToClient(context.Background(), &codec.Envelope{
		Kind:        codec.KindResponse,
		ClientID:    envelope.ClientID,
		RequestID:   envelope.RequestID,
		Source:      envelope.Destination,
		Destination: envelope.Source,
		PayloadType: envelope.PayloadType,
		Payload:     envelope.Payload,
	})
}

func (h *echoHandler) OnSessionClosed(session Session, _ error) {
	h.closed <- session
}

func (h *echoHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func testOptions(opts ...Option) []Option {
	port := dynaport.Get(1)[0]
	return append([]Option{
		WithLogger(log.DiscardLogger),
		WithBindAddress("127.0.0.1", port),
		WithAdvertisedHost("127.0.0.1"),
	}, opts...)
}

func roundTrip(t *testing.T, scheme string, opts ...Option) {
	ctx := context.Background()
	configurator := NewConfigurator(testOptions(append(opts, WithScheme(scheme))...)...)

	service, err := configurator.DoServiceConfiguration("Echo")
	require.NoError(t, err)
	handler := newEchoHandler()
	require.NoError(t, service.Serve(handler))

	addr, err := address.Parse(service.ServiceURI())
	require.NoError(t, err)
	assert.Equal(t, scheme, addr.Scheme())
	assert.Equal(t, "Echo", addr.Service())

	client, err := configurator.DoClientConfiguration(service.ServiceURI())
	require.NoError(t, err)
	assert.Equal(t, ReadyStateClosed, client.ReadyState())

	responses := make(chan *codec.Envelope, 4)
	require.NoError(t, client.Open(ctx, func(envelope *codec.Envelope) { responses <- envelope }, nil))
	assert.Equal(t, ReadyStateOpen, client.ReadyState())

	payload := bytes.Repeat([]byte("remact"), 200)
	for i := 1; i <= 3; i++ {
		require.NoError(t, client.SendToService(ctx, &codec.Envelope{
			Kind:        codec.KindRequest,
			ClientID:    7,
			RequestID:   i,
			Source:      "client",
			Method:      "Echo",
			PayloadType: "bytes",
			Payload:     payload,
		}))
	}

	for i := 1; i <= 3; i++ {
		select {
		case response := <-responses:
			assert.Equal(t, codec.KindResponse, response.Kind)
			assert.Equal(t, i, response.RequestID)
			assert.Equal(t, 7, response.ClientID)
			assert.Equal(t, payload, response.Payload)
		case <-time.After(3 * time.Second):
			t.Fatalf("no response for request %d", i)
		}
	}

	require.NoError(t, client.Close())
	select {
	case <-handler.closed:
	case <-time.After(3 * time.Second):
		t.Fatal("session not closed")
	}
	assert.Eventually(t, func() bool { return client.ReadyState() == ReadyStateClosed }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, service.Close())
	require.NoError(t, configurator.Close())
}

func TestTCPRoundTrip(t *testing.T) {
	roundTrip(t, address.SchemeTCP)
}

func TestTCPRoundTripWithCompression(t *testing.T) {
	roundTrip(t, address.SchemeTCP, WithCompression())
}

func TestWebsocketRoundTrip(t *testing.T) {
	roundTrip(t, address.SchemeWS)
}

func TestWebsocketRoundTripWithCompression(t *testing.T) {
	roundTrip(t, address.SchemeWS, WithCompression())
}

func TestSharedHost(t *testing.T) {
	ctx := context.Background()
	configurator := NewConfigurator(testOptions()...)

	first, err := configurator.DoServiceConfiguration("First")
	require.NoError(t, err)
	second, err := configurator.DoServiceConfiguration("Second")
	require.NoError(t, err)

	firstAddr, err := address.Parse(first.ServiceURI())
	require.NoError(t, err)
	secondAddr, err := address.Parse(second.ServiceURI())
	require.NoError(t, err)
	assert.Equal(t, firstAddr.Port(), secondAddr.Port())

	firstHandler := newEchoHandler()
	secondHandler := newEchoHandler()
	require.NoError(t, first.Serve(firstHandler))
	require.NoError(t, second.Serve(secondHandler))
	require.ErrorIs(t, second.Serve(secondHandler), ErrServiceAlreadyHosted)

	client, err := NewClient(second.ServiceURI(), WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	responses := make(chan *codec.Envelope, 1)
	require.NoError(t, client.Open(ctx, func(envelope *codec.Envelope) { responses <- envelope }, nil))

	// the destination is filled from the service uri
	require.NoError(t, client.SendToService(ctx, &codec.Envelope{Kind: codec.KindRequest, RequestID: 10}))
	select {
	case response := <-responses:
		assert.Equal(t, 10, response.RequestID)
	case <-time.After(3 * time.Second):
		t.Fatal("no response")
	}
	assert.Zero(t, firstHandler.count())
	assert.Equal(t, 1, secondHandler.count())

	// closing the first service keeps the host running for the second
	require.NoError(t, first.Close())
	require.NoError(t, client.SendToService(ctx, &codec.Envelope{Kind: codec.KindRequest, RequestID: 11}))
	select {
	case response := <-responses:
		assert.Equal(t, 11, response.RequestID)
	case <-time.After(3 * time.Second):
		t.Fatal("no response")
	}

		require.NoError(t, client.Close())
	require.NoError(t, second.Close())
	require.NoError(t, configurator.Close())
}

func TestServiceCloseNotifiesClient(t *testing.T) {
	ctx := context.Background()
	configurator := NewConfigurator(testOptions()...)

	service, err := configurator.DoServiceConfiguration("Closing")
	require.NoError(t, err)
	require.NoError(t, service.Serve(newEchoHandler()))

	client, err := configurator.DoClientConfiguration(service.ServiceURI())
	require.NoError(t, err)

	closed := make(chan error, 1)
	responses := make(chan *codec.Envelope, 1)
	require.NoError(t, client.Open(ctx, func(envelope *codec.Envelope) { responses <- envelope }, func(err error) { closed <- err }))

	// the tcp host only learns the service name from the first envelope
	require.NoError(t, client.SendToService(ctx, &codec.Envelope{Kind: codec.KindRequest, RequestID: 1}))
	select {
	case <-responses:
	case <-time.After(3 * time.Second):
		t.Fatal("no response")
	}

	require.NoError(t, service.Close())
	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("client was not notified")
	}
	assert.Equal(t, ReadyStateClosed, client.ReadyState())
	require.ErrorIs(t, client.SendToService(ctx, &codec.Envelope{Kind: codec.KindNotification}), gerrors.ErrTransportClosed)
	require.NoError(t, configurator.Close())
}

func TestUnknownService(t *testing.T) {
	ctx := context.Background()

	t.Run("tcp connection is closed", func(t *testing.T) {
		configurator := NewConfigurator(testOptions()...)
		service, err := configurator.DoServiceConfiguration("Known")
		require.NoError(t, err)
		require.NoError(t, service.Serve(newEchoHandler()))

		addr, err := address.Parse(service.ServiceURI())
		require.NoError(t, err)

		client, err := NewClient(addr.WithService("Unknown").String(), WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		closed := make(chan error, 1)
		require.NoError(t, client.Open(ctx, nil, func(err error) { closed <- err }))
		require.NoError(t, client.SendToService(ctx, &codec.Envelope{Kind: codec.KindRequest, RequestID: 1}))

		select {
		case <-closed:
		case <-time.After(3 * time.Second):
			t.Fatal("connection was not closed")
		}
		require.NoError(t, configurator.Close())
	})

	t.Run("websocket handshake is rejected", func(t *testing.T) {
		configurator := NewConfigurator(testOptions(WithScheme(address.SchemeWS))...)
		service, err := configurator.DoServiceConfiguration("Known")
		require.NoError(t, err)
		require.NoError(t, service.Serve(newEchoHandler()))

		addr, err := address.Parse(service.ServiceURI())
		require.NoError(t, err)

		client, err := NewClient(addr.WithService("Unknown").String(), WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		err = client.Open(ctx, nil, nil)
		require.ErrorIs(t, err, gerrors.ErrCouldNotStartConnect)
		assert.Equal(t, ReadyStateClosed, client.ReadyState())
		require.NoError(t, configurator.Close())
	})
}

func TestClientOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("with an invalid uri", func(t *testing.T) {
		_, err := NewClient("http://localhost:80/service")
		require.ErrorIs(t, err, gerrors.ErrInvalidURI)
	})

	t.Run("with nobody listening", func(t *testing.T) {
		port := dynaport.Get(1)[0]
		client, err := NewClient(fmt.Sprintf("tcp://127.0.0.1:%d/Nobody", port),
			WithLogger(log.DiscardLogger),
			WithDialRetries(2),
			WithDialTimeout(200*time.Millisecond))
		require.NoError(t, err)
		err = client.Open(ctx, nil, nil)
		require.ErrorIs(t, err, gerrors.ErrCouldNotStartConnect)
		assert.Equal(t, ReadyStateClosed, client.ReadyState())
		require.ErrorIs(t, client.SendToService(ctx, &codec.Envelope{}), gerrors.ErrTransportClosed)
		require.NoError(t, client.Close())
	})

	t.Run("twice", func(t *testing.T) {
		configurator := NewConfigurator(testOptions()...)
		service, err := configurator.DoServiceConfiguration("Twice")
		require.NoError(t, err)
		require.NoError(t, service.Serve(newEchoHandler()))

		client, err := configurator.DoClientConfiguration(service.ServiceURI())
		require.NoError(t, err)
		require.NoError(t, client.Open(ctx, nil, nil))
		require.ErrorIs(t, client.Open(ctx, nil, nil), gerrors.ErrAlreadyConnecting)
		require.NoError(t, client.Close())
		require.NoError(t, configurator.Close())
	})
}

func TestHost(t *testing.T) {
	t.Run("with unsupported scheme", func(t *testing.T) {
		_, err := NewHost("http", "127.0.0.1:0")
		require.ErrorIs(t, err, address.ErrUnsupportedScheme)
	})

	t.Run("with a busy port", func(t *testing.T) {
		host, err := NewHost(address.SchemeTCP, "127.0.0.1:0", WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		_, err = NewHost(address.SchemeTCP, net.JoinHostPort("127.0.0.1", strconv.Itoa(host.Port())))
		require.Error(t, err)
		require.NoError(t, host.Close(context.Background()))
	})

	t.Run("close is idempotent", func(t *testing.T) {
		host, err := NewHost(address.SchemeWS, "127.0.0.1:0", WithLogger(log.DiscardLogger))
		require.NoError(t, err)
		host.Start()
		host.Start()
		assert.Equal(t, address.SchemeWS, host.Scheme())
		require.NoError(t, host.Close(context.Background()))
		require.NoError(t, host.Close(context.Background()))
	})
}

func TestFrameCodec(t *testing.T) {
	envelope := &codec.Envelope{
		Kind:        codec.KindNotification,
		Source:      "a",
		Destination: "b",
		Payload:     bytes.Repeat([]byte{0x42}, 4096),
	}

	plain := newFrameCodec(nil, false, 0)
	frame, err := plain.encode(envelope)
	require.NoError(t, err)
	assert.Zero(t, frame[0]&flagCompressed)

	compressed := newFrameCodec(nil, true, 0)
	small, err := compressed.encode(&codec.Envelope{Kind: codec.KindNotification})
	require.NoError(t, err)
	assert.Zero(t, small[0]&flagCompressed)

	zframe, err := compressed.encode(envelope)
	require.NoError(t, err)
	assert.NotZero(t, zframe[0]&flagCompressed)
	assert.Less(t, len(zframe), len(frame))

	// a plain codec reads compressed frames and the other way round
	decoded, err := plain.decode(zframe)
	require.NoError(t, err)
	assert.Equal(t, envelope.Payload, decoded.Payload)
	decoded, err = compressed.decode(frame)
	require.NoError(t, err)
	assert.Equal(t, envelope.Destination, decoded.Destination)

	tiny := newFrameCodec(nil, false, 64)
	_, err = tiny.encode(envelope)
	require.ErrorIs(t, err, ErrFrameTooLarge)

	_, err = plain.decode(nil)
	require.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeLengthPrefixed(&buf, frame))
	read, err := readLengthPrefixed(&buf, DefaultMaxFrameSize)
	require.NoError(t, err)
	assert.Equal(t, frame, read)

	buf.Reset()
	require.NoError(t, writeLengthPrefixed(&buf, frame))
	_, err = readLengthPrefixed(&buf, 16)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestGetBindIP(t *testing.T) {
	ip, err := GetBindIP("10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", ip)

	assert.Equal(t, []string{"192.168.1.2"}, bindHosts("192.168.1.2"))
	hosts := bindHosts("0.0.0.0")
	require.NotEmpty(t, hosts)
	assert.Equal(t, "127.0.0.1", hosts[len(hosts)-1])

	assert.Equal(t, "advertised", advertisedHost(&config{advertisedHost: "advertised"}))
	assert.NotEmpty(t, advertisedHost(&config{bindHost: "0.0.0.0"}))
}
