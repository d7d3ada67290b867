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

package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		addr := New("TCP", "127.0.0.1", 40001, "PingService")
		assert.Equal(t, "tcp://127.0.0.1:40001/PingService", addr.String())
		assert.Equal(t, "127.0.0.1:40001", addr.HostPort())
		assert.NoError(t, addr.Validate())
	})
	t.Run("IPv6 host", func(t *testing.T) {
		addr := New(SchemeWS, "::1", 8080, "Catalog")
		assert.Equal(t, "ws://[::1]:8080/Catalog", addr.String())

		parsed, err := Parse(addr.String())
		require.NoError(t, err)
		assert.True(t, parsed.Equals(addr))
	})
	t.Run("Parse", func(t *testing.T) {
		addr, err := Parse("ws://Host1:40002/Remact.Catalog")
		require.NoError(t, err)
		assert.Equal(t, SchemeWS, addr.Scheme())
		assert.Equal(t, "Host1", addr.Host())
		assert.Equal(t, 40002, addr.Port())
		assert.Equal(t, "Remact.Catalog", addr.Service())
		assert.True(t, addr.Equals(New("ws", "host1", 40002, "Remact.Catalog")))
		assert.False(t, addr.Equals(nil))
	})
	t.Run("Parse errors", func(t *testing.T) {
		for _, uri := range []string{
			"",
			"tcp//host:1/svc",
			"tcp://host:1",
			"tcp://host:1/",
			"tcp://host:1/a/b",
			"tcp://host/svc",
			"tcp://host:abc/svc",
		} {
			_, err := Parse(uri)
			assert.Error(t, err, uri)
		}
		_, err := Parse("http://host:1/svc")
		assert.ErrorIs(t, err, ErrUnsupportedScheme)
	})
	t.Run("Validate", func(t *testing.T) {
		assert.Error(t, New("udp", "host", 1, "svc").Validate())
		assert.Error(t, New("tcp", "", 1, "svc").Validate())
		assert.Error(t, New("tcp", "host", 1, "-svc").Validate())
		assert.Error(t, (*Address)(nil).Validate())
	})
	t.Run("copies", func(t *testing.T) {
		addr := New(SchemeTCP, "localhost", 1, "a")
		assert.Equal(t, "tcp://10.0.0.1:1/a", addr.WithHost("10.0.0.1").String())
		assert.Equal(t, "tcp://localhost:1/b", addr.WithService("b").String())
		assert.Equal(t, "tcp://localhost:1/a", addr.String())
		assert.Equal(t, "b", ServiceOf("tcp://localhost:1/b"))
		assert.Empty(t, ServiceOf("garbage"))
	})
}
