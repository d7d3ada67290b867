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

package etcd

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"

	"github.com/remactgo/remact/discovery"
	"github.com/remactgo/remact/log"
)

func TestDiscovery(t *testing.T) {
	ctx := context.Background()

	t.Run("With ID", func(t *testing.T) {
		assert.Equal(t, discovery.ProviderEtcd, NewDiscovery(nil).ID())
	})
	t.Run("With invalid config", func(t *testing.T) {
		provider := NewDiscovery(&Config{}, WithLogger(log.DiscardLogger))
		require.ErrorIs(t, provider.Initialize(ctx), discovery.ErrInvalidConfig)
	})
	t.Run("With unreachable endpoint", func(t *testing.T) {
		port := dynaport.Get(1)[0]
		provider := NewDiscovery(&Config{
			Endpoints:   []string{fmt.Sprintf("127.0.0.1:%d", port)},
			DialTimeout: 200 * time.Millisecond,
		}, WithLogger(log.DiscardLogger))
		require.ErrorIs(t, provider.Initialize(ctx), discovery.ErrUnreachable)
	})
	t.Run("With not initialized", func(t *testing.T) {
		provider := NewDiscovery(&Config{})
		_, err := provider.Lookup(ctx, "PingService")
		require.ErrorIs(t, err, discovery.ErrNotInitialized)
		require.ErrorIs(t, provider.Register(ctx, &discovery.Service{}), discovery.ErrNotInitialized)
		require.ErrorIs(t, provider.Deregister(ctx, &discovery.Service{}), discovery.ErrNotInitialized)
		require.NoError(t, provider.Close())
	})
}

func TestMerge(t *testing.T) {
	_, err := merge("PingService", nil)
	require.ErrorIs(t, err, discovery.ErrServiceNotFound)

	first := &discovery.Service{Name: "PingService", URI: "tcp://host1:1/PingService", Addresses: []string{"tcp://10.0.0.1:1/PingService"}}
	second := &discovery.Service{Name: "PingService", URI: "tcp://host2:1/PingService", Addresses: []string{"tcp://host1:1/PingService"}}

	found, err := merge("PingService", []*discovery.Service{first, second})
	require.NoError(t, err)
	assert.Equal(t, first.URI, found.URI)
	assert.Equal(t, []string{"tcp://10.0.0.1:1/PingService", "tcp://host2:1/PingService"}, found.Addresses)
	// the inputs are left untouched
	assert.Len(t, first.Addresses, 1)
}

func TestConfig(t *testing.T) {
	config := &Config{Endpoints: []string{"127.0.0.1:2379"}}
	config.Sanitize()
	require.NoError(t, config.Validate())
	assert.Equal(t, "remact/catalog", config.Prefix)
	assert.EqualValues(t, 60, config.TTL)
	assert.NotNil(t, config.Context)
	assert.Error(t, (&Config{}).Validate())
	assert.Equal(t, "PingService/host1/2", serviceKey(&discovery.Service{Name: "PingService", HostName: "host1", AppInstance: 2}))
}
