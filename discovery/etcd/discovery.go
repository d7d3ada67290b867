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

// Package etcd implements a catalog on top of etcd. Every registration is a key
// bound to a lease kept alive for as long as the service is registered.
package etcd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goset "github.com/deckarep/golang-set/v2"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"
	"go.uber.org/atomic"

	"github.com/remactgo/remact/discovery"
	"github.com/remactgo/remact/log"
)

// lease is the keep-alive state of one registration
type lease struct {
	id     clientv3.LeaseID
	cancel context.CancelFunc
}

// Discovery is the etcd service discovery implementation.
type Discovery struct {
	config      *Config
	initialized *atomic.Bool
	mu          *sync.RWMutex
	client      *clientv3.Client
	kv          clientv3.KV
	lease       clientv3.Lease
	leases      map[string]*lease
	logger      log.Logger
}

var _ discovery.Provider = (*Discovery)(nil)

// NewDiscovery creates a new instance of Discovery with the provided configuration.
func NewDiscovery(config *Config, opts ...Option) *Discovery {
	if config == nil {
		config = new(Config)
	}
	d := &Discovery{
		config:      config,
		initialized: atomic.NewBool(false),
		mu:          &sync.RWMutex{},
		leases:      make(map[string]*lease),
		logger:      log.DefaultLogger,
	}
	for _, opt := range opts {
		opt.Apply(d)
	}
	return d
}

// ID implements discovery.Provider.
func (x *Discovery) ID() string {
	return discovery.ProviderEtcd
}

// Initialize implements discovery.Provider.
func (x *Discovery) Initialize(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.initialized.Load() {
		return discovery.ErrAlreadyInitialized
	}

	x.config.Sanitize()
	if err := x.config.Validate(); err != nil {
		return errors.Join(discovery.ErrInvalidConfig, err)
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   x.config.Endpoints,
		DialTimeout: x.config.DialTimeout,
		TLS:         x.config.TLS,
		Username:    x.config.Username,
		Password:    x.config.Password,
		Context:     x.config.Context,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}

	statusCtx, cancel := context.WithTimeout(ctx, x.config.DialTimeout)
	defer cancel()

	if _, err = client.Status(statusCtx, x.config.Endpoints[0]); err != nil {
		if cerr := client.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close etcd client: %w", cerr))
		}
		return fmt.Errorf("%w: failed to connect to etcd: %w", discovery.ErrUnreachable, err)
	}

	prefix := strings.TrimSuffix(x.config.Prefix, "/") + "/"
	x.client = client
	x.kv = namespace.NewKV(client.KV, prefix)
	x.lease = namespace.NewLease(client.Lease, prefix)
	x.initialized.Store(true)
	return nil
}

// Register implements discovery.Provider. Registering an already registered
// service overwrites its value under the existing lease.
func (x *Discovery) Register(ctx context.Context, service *discovery.Service) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.initialized.Load() {
		return discovery.ErrNotInitialized
	}

	if err := service.Validate(); err != nil {
		return fmt.Errorf("%w: %w", discovery.ErrInvalidConfig, err)
	}

	value, err := service.MarshalBinary()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, x.config.Timeout)
	defer cancel()

	key := serviceKey(service)
	if current, ok := x.leases[key]; ok {
		if _, err := x.kv.Put(ctx, key, string(value), clientv3.WithLease(current.id)); err != nil {
			return fmt.Errorf("%w: failed to refresh service: %w", discovery.ErrUnreachable, err)
		}
		return nil
	}

	grant, err := x.lease.Grant(ctx, x.config.TTL)
	if err != nil {
		return fmt.Errorf("%w: failed to create lease: %w", discovery.ErrUnreachable, err)
	}

	if _, err = x.kv.Put(ctx, key, string(value), clientv3.WithLease(grant.ID)); err != nil {
		return fmt.Errorf("%w: failed to register service: %w", discovery.ErrUnreachable, err)
	}

	keepAliveCtx, keepAliveCancel := context.WithCancel(x.config.Context)
	ch, err := x.client.KeepAlive(keepAliveCtx, grant.ID)
	if err != nil {
		keepAliveCancel()
		return fmt.Errorf("failed to start keep-alive: %w", err)
	}

	// drain the keep-alive responses so that the channel never blocks
	go func() {
		for range ch {
		}
	}()

	x.leases[key] = &lease{id: grant.ID, cancel: keepAliveCancel}
	return nil
}

// Deregister implements discovery.Provider.
func (x *Discovery) Deregister(ctx context.Context, service *discovery.Service) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.initialized.Load() {
		return discovery.ErrNotInitialized
	}

	key := serviceKey(service)
	current, ok := x.leases[key]
	if !ok {
		return nil
	}
	delete(x.leases, key)
	current.cancel()

	ctx, cancel := context.WithTimeout(ctx, x.config.Timeout)
	defer cancel()

	// the lease expires by itself when the revoke fails
	if _, err := x.lease.Revoke(ctx, current.id); err != nil {
		x.logger.Warnf("failed to revoke etcd lease of %s: %v", key, err)
	}
	return nil
}

// Lookup implements discovery.Provider.
func (x *Discovery) Lookup(ctx context.Context, name string) (*discovery.Service, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.initialized.Load() {
		return nil, discovery.ErrNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, x.config.Timeout)
	defer cancel()

	resp, err := x.kv.Get(ctx, name+"/", clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to lookup %s: %w", discovery.ErrUnreachable, name, err)
	}

	services := make([]*discovery.Service, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		service := new(discovery.Service)
		if err := service.UnmarshalBinary(kv.Value); err != nil {
			x.logger.Warnf("skipping invalid etcd entry %s: %v", string(kv.Key), err)
			continue
		}
		services = append(services, service)
	}

	return merge(name, services)
}

// Close implements discovery.Provider.
func (x *Discovery) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for key, current := range x.leases {
		current.cancel()
		delete(x.leases, key)
	}

	if x.client != nil {
		if err := x.client.Close(); err != nil {
			return fmt.Errorf("failed to close etcd client: %w", err)
		}
		x.client = nil
	}

	x.initialized.Store(false)
	return nil
}

// merge returns the first service with the URIs of the others appended to its address list
func merge(name string, services []*discovery.Service) (*discovery.Service, error) {
	if len(services) == 0 {
		return nil, fmt.Errorf("%w: %s", discovery.ErrServiceNotFound, name)
	}

	found := services[0].Clone()
	seen := goset.NewThreadUnsafeSet(found.URI)
	addresses := make([]string, 0, len(found.Addresses))
	for _, service := range services {
		if service != services[0] && seen.Add(service.URI) {
			addresses = append(addresses, service.URI)
		}
		for _, uri := range service.Addresses {
			if seen.Add(uri) {
				addresses = append(addresses, uri)
			}
		}
	}
	found.Addresses = addresses
	return found, nil
}

func serviceKey(service *discovery.Service) string {
	return fmt.Sprintf("%s/%s/%d", service.Name, service.HostName, service.AppInstance)
}
