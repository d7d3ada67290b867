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

// Package consul implements a catalog on top of the Consul agent service registry.
// Services are stored with their identity snapshot flattened in the service metadata.
package consul

import (
	"context"
	"fmt"
	"sync"

	goset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/consul/api"
	"go.uber.org/atomic"

	"github.com/remactgo/remact/address"
	"github.com/remactgo/remact/discovery"
	"github.com/remactgo/remact/log"
)

// Discovery represents the Consul discovery provider.
type Discovery struct {
	client      *api.Client
	config      *Config
	initialized *atomic.Bool
	mu          *sync.RWMutex
	logger      log.Logger
}

var _ discovery.Provider = (*Discovery)(nil)

// NewDiscovery creates a new instance of the Consul discovery provider.
func NewDiscovery(config *Config, opts ...Option) *Discovery {
	if config == nil {
		config = new(Config)
	}

	d := &Discovery{
		config:      config,
		initialized: atomic.NewBool(false),
		mu:          &sync.RWMutex{},
		logger:      log.DefaultLogger,
	}

	for _, opt := range opts {
		opt.Apply(d)
	}
	return d
}

// ID returns the discovery provider id
func (x *Discovery) ID() string {
	return discovery.ProviderConsul
}

// Initialize creates the consul client and checks the agent answers.
func (x *Discovery) Initialize(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.initialized.Load() {
		return discovery.ErrAlreadyInitialized
	}

	x.config.Sanitize()
	if err := x.config.Validate(); err != nil {
		return fmt.Errorf("consul discovery config is invalid: %w", err)
	}

	consulConfig := api.DefaultConfig()
	consulConfig.Address = x.config.Address
	consulConfig.Scheme = x.config.Scheme
	consulConfig.Datacenter = x.config.Datacenter
	consulConfig.Token = x.config.Token
	consulConfig.WaitTime = x.config.Timeout

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return fmt.Errorf("failed to create consul client: %w", err)
	}

	if _, err = client.Agent().Self(); err != nil {
		return fmt.Errorf("%w: failed to connect to consul: %w", discovery.ErrUnreachable, err)
	}

	x.client = client
	x.initialized.Store(true)
	return nil
}

// Register announces the service to the local agent.
func (x *Discovery) Register(ctx context.Context, service *discovery.Service) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.initialized.Load() {
		return discovery.ErrNotInitialized
	}

	if err := service.Validate(); err != nil {
		return fmt.Errorf("%w: %w", discovery.ErrInvalidConfig, err)
	}

	registration := &api.AgentServiceRegistration{
		ID:   serviceID(service),
		Name: service.Name,
		Tags: []string{x.config.Tag},
		Meta: service.Meta(),
	}

	if addr, err := address.Parse(service.URI); err == nil {
		registration.Address = addr.Host()
		registration.Port = addr.Port()
	}

	if err := x.client.Agent().ServiceRegisterOpts(registration, api.ServiceRegisterOpts{}.WithContext(x.requestContext(ctx))); err != nil {
		return fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}
	return nil
}

// Deregister removes the service from the local agent.
func (x *Discovery) Deregister(ctx context.Context, service *discovery.Service) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.initialized.Load() {
		return discovery.ErrNotInitialized
	}

	q := &api.QueryOptions{}
	if err := x.client.Agent().ServiceDeregisterOpts(serviceID(service), q.WithContext(x.requestContext(ctx))); err != nil {
		return fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}
	return nil
}

// Lookup returns the first service registered under name.
// Addresses of the other instances are appended to its address list.
func (x *Discovery) Lookup(ctx context.Context, name string) (*discovery.Service, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.initialized.Load() {
		return nil, discovery.ErrNotInitialized
	}

	queryOpts := &api.QueryOptions{
		AllowStale: x.config.QueryOptions.AllowStale,
		Datacenter: x.config.QueryOptions.Datacenter,
	}

	entries, _, err := x.client.Health().Service(name, x.config.Tag, x.config.QueryOptions.OnlyPassing,
		queryOpts.WithContext(x.requestContext(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}

	var found *discovery.Service
	addresses := goset.NewThreadUnsafeSet[string]()
	ordered := make([]string, 0, len(entries))
	add := func(uri string) {
		if uri != "" && addresses.Add(uri) {
			ordered = append(ordered, uri)
		}
	}

	for _, entry := range entries {
		if entry == nil || entry.Service == nil {
			continue
		}

		service, err := discovery.ServiceFromMeta(name, entry.Service.Meta)
		if err != nil {
			x.logger.Warnf("skipping consul entry %s: %v", entry.Service.ID, err)
			continue
		}

		if found == nil {
			found = service
			addresses.Add(service.URI)
		} else {
			add(service.URI)
		}

		for _, uri := range service.Addresses {
			add(uri)
		}

		// the address the agent sees may differ from the announced host name
		if entry.Service.Address != "" && entry.Service.Port > 0 {
			if addr, err := address.Parse(service.URI); err == nil {
				add(addr.WithHost(entry.Service.Address).String())
			}
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %s", discovery.ErrServiceNotFound, name)
	}

	found.Addresses = ordered
	return found, nil
}

// Close cleans up the discovery provider.
func (x *Discovery) Close() error {
	x.mu.Lock()
	x.initialized.Store(false)
	x.client = nil
	x.mu.Unlock()
	return nil
}

func (x *Discovery) requestContext(ctx context.Context) context.Context {
	if ctx == nil {
		return x.config.Context
	}
	return ctx
}

func serviceID(service *discovery.Service) string {
	return fmt.Sprintf("%s@%s/%d", service.Name, service.HostName, service.AppInstance)
}
