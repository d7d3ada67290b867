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

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remactgo/remact/internal/types"
)

type ping struct {
	Text  string
	Count int
}

type pingReply struct {
	Text string
}

type otherShape struct {
	Other bool
}

func TestEnvelope(t *testing.T) {
	serializer := NewCBORSerializer(nil)
	envelope := &Envelope{
		Kind:        KindRequest,
		ClientID:    3,
		RequestID:   11,
		Source:      "client",
		Destination: "PingService",
		Method:      "Ping",
		PayloadType: "codec.ping",
		Payload:     []byte{0xa0},
	}

	data, err := serializer.Marshal(envelope)
	require.NoError(t, err)

	actual, err := serializer.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, envelope, actual)
	assert.Contains(t, actual.String(), "PingService/Ping")

	_, err = serializer.Unmarshal([]byte{0xff, 0x00})
	require.Error(t, err)
	_, err = serializer.Marshal(nil)
	require.Error(t, err)
}

func TestPayload(t *testing.T) {
	t.Run("registered type is decoded eagerly", func(t *testing.T) {
		registry := types.NewRegistry()
		registry.Register(new(ping))
		serializer := NewCBORSerializer(registry)

		name, data, err := serializer.EncodePayload(&ping{Text: "hi", Count: 2})
		require.NoError(t, err)
		assert.Equal(t, "codec.ping", name)

		decoded, err := serializer.DecodePayload(name, data)
		require.NoError(t, err)
		assert.Equal(t, &ping{Text: "hi", Count: 2}, decoded)
	})
	t.Run("unknown type is deferred", func(t *testing.T) {
		serializer := NewCBORSerializer(types.NewRegistry())
		name, data, err := serializer.EncodePayload(ping{Text: "hi"})
		require.NoError(t, err)

		decoded, err := serializer.DecodePayload(name, data)
		require.NoError(t, err)
		raw, ok := decoded.(*RawPayload)
		require.True(t, ok)
		assert.Contains(t, raw.String(), "codec.ping")

		var target ping
		require.NoError(t, raw.ReadAs(&target))
		assert.Equal(t, "hi", target.Text)

		var wrong pingReply
		require.ErrorIs(t, raw.ReadAs(&wrong), ErrTypeMismatch)
		require.ErrorIs(t, raw.ReadAs(target), ErrInvalidTarget)

		// forwarded raw payloads keep their encoding
		fname, fdata, err := serializer.EncodePayload(raw)
		require.NoError(t, err)
		assert.Equal(t, name, fname)
		assert.Equal(t, data, fdata)
	})
	t.Run("missing type name decodes structurally", func(t *testing.T) {
		_, data, err := NewCBORSerializer(nil).EncodePayload(pingReply{Text: "x"})
		require.NoError(t, err)

		raw := &RawPayload{Data: data}
		var reply pingReply
		require.NoError(t, raw.ReadAs(&reply))
		assert.Equal(t, "x", reply.Text)

		var other otherShape
		require.ErrorIs(t, raw.ReadAs(&other), ErrTypeMismatch)
	})
	t.Run("nil payload", func(t *testing.T) {
		serializer := NewCBORSerializer(nil)
		name, data, err := serializer.EncodePayload(nil)
		require.NoError(t, err)
		assert.Empty(t, name)
		assert.Nil(t, data)

		decoded, err := serializer.DecodePayload("", nil)
		require.NoError(t, err)
		assert.Nil(t, decoded)
	})
}
