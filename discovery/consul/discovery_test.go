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

package consul

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remactgo/remact/discovery"
	"github.com/remactgo/remact/log"
)

// fakeAgent serves the subset of the Consul agent HTTP API the provider uses
type fakeAgent struct {
	mu       sync.Mutex
	services map[string]*api.AgentServiceRegistration
}

func (f *fakeAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Consul-Index", "1")
	w.Header().Set("X-Consul-LastContact", "0")
	w.Header().Set("X-Consul-KnownLeader", "true")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/agent/self":
		_ = json.NewEncoder(w).Encode(map[string]map[string]any{"Config": {"NodeName": "fake"}})
	case r.Method == http.MethodPut && r.URL.Path == "/v1/agent/service/register":
		registration := new(api.AgentServiceRegistration)
		if err := json.NewDecoder(r.Body).Decode(registration); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.services[registration.ID] = registration
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/v1/agent/service/deregister/"):
		delete(f.services, strings.TrimPrefix(r.URL.Path, "/v1/agent/service/deregister/"))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/health/service/"):
		name := strings.TrimPrefix(r.URL.Path, "/v1/health/service/")
		entries := make([]*api.ServiceEntry, 0)
		for _, registration := range f.services {
			if registration.Name != name {
				continue
			}
			entries = append(entries, &api.ServiceEntry{
				Node: &api.Node{Node: "fake", Address: "127.0.0.1"},
				Service: &api.AgentService{
					ID:      registration.ID,
					Service: registration.Name,
					Tags:    registration.Tags,
					Meta:    registration.Meta,
					Address: registration.Address,
					Port:    registration.Port,
				},
				Checks: api.HealthChecks{},
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Service.ID < entries[j].Service.ID })
		_ = json.NewEncoder(w).Encode(entries)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAgent) registered(id string) (*api.AgentServiceRegistration, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.services[id], len(f.services)
}

func startFakeAgent(t *testing.T) (*fakeAgent, *httptest.Server) {
	t.Helper()
	agent := &fakeAgent{services: make(map[string]*api.AgentServiceRegistration)}
	server := httptest.NewServer(agent)
	t.Cleanup(server.Close)
	return agent, server
}

func newProvider(server *httptest.Server) *Discovery {
	return NewDiscovery(&Config{
		Address: strings.TrimPrefix(server.URL, "http://"),
		Timeout: time.Second,
	}, WithLogger(log.DiscardLogger))
}

func TestDiscovery(t *testing.T) {
	ctx := context.Background()

	t.Run("With ID assertion", func(t *testing.T) {
		provider := NewDiscovery(nil)
		assert.Equal(t, discovery.ProviderConsul, provider.ID())
	})
	t.Run("With Initialize", func(t *testing.T) {
		_, server := startFakeAgent(t)
		provider := newProvider(server)
		require.NoError(t, provider.Initialize(ctx))
		require.ErrorIs(t, provider.Initialize(ctx), discovery.ErrAlreadyInitialized)
		require.NoError(t, provider.Close())
	})
	t.Run("With unreachable agent", func(t *testing.T) {
		_, server := startFakeAgent(t)
		provider := newProvider(server)
		server.Close()
		require.ErrorIs(t, provider.Initialize(ctx), discovery.ErrUnreachable)
	})
	t.Run("With not initialized", func(t *testing.T) {
		provider := NewDiscovery(&Config{})
		_, err := provider.Lookup(ctx, "PingService")
		require.ErrorIs(t, err, discovery.ErrNotInitialized)
		require.ErrorIs(t, provider.Register(ctx, &discovery.Service{}), discovery.ErrNotInitialized)
		require.ErrorIs(t, provider.Deregister(ctx, &discovery.Service{}), discovery.ErrNotInitialized)
	})
	t.Run("With Register, Lookup and Deregister", func(t *testing.T) {
		agent, server := startFakeAgent(t)
		provider := newProvider(server)
		require.NoError(t, provider.Initialize(ctx))

		first := &discovery.Service{
			Name:           "PingService",
			AppName:        "ping",
			AppInstance:    1,
			HostName:       "host1",
			URI:            "tcp://host1:40001/PingService",
			Addresses:      []string{"tcp://10.0.0.1:40001/PingService"},
			TimeoutSeconds: 30,
		}
		second := &discovery.Service{
			Name:        "PingService",
			AppInstance: 2,
			HostName:    "host2",
			URI:         "tcp://host2:40001/PingService",
		}

		require.NoError(t, provider.Register(ctx, first))
		require.NoError(t, provider.Register(ctx, second))
		registration, count := agent.registered("PingService@host1/1")
		require.Equal(t, 2, count)
		require.NotNil(t, registration)
		assert.Equal(t, "host1", registration.Address)
		assert.Equal(t, 40001, registration.Port)

		found, err := provider.Lookup(ctx, "PingService")
		require.NoError(t, err)
		assert.Equal(t, first.URI, found.URI)
		assert.Equal(t, "ping", found.AppName)
		assert.Equal(t, 30, found.TimeoutSeconds)
		assert.Equal(t, []string{"tcp://10.0.0.1:40001/PingService", "tcp://host2:40001/PingService"}, found.Addresses)

		_, err = provider.Lookup(ctx, "Unknown")
		require.ErrorIs(t, err, discovery.ErrServiceNotFound)

		require.NoError(t, provider.Deregister(ctx, first))
		require.NoError(t, provider.Deregister(ctx, second))
		_, err = provider.Lookup(ctx, "PingService")
		require.ErrorIs(t, err, discovery.ErrServiceNotFound)

		require.ErrorIs(t, provider.Register(ctx, &discovery.Service{Name: "x"}), discovery.ErrInvalidConfig)
		require.NoError(t, provider.Close())
	})
}

func TestConfig(t *testing.T) {
	config := &Config{}
	config.Sanitize()
	require.NoError(t, config.Validate())
	assert.Equal(t, "127.0.0.1:8500", config.Address)
	assert.Equal(t, "remact", config.Tag)
	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.NotNil(t, config.QueryOptions)
	assert.Error(t, (&Config{}).Validate())
}
