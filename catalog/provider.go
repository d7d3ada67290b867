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

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/remactgo/remact/actor"
	"github.com/remactgo/remact/address"
	"github.com/remactgo/remact/discovery"
	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/future"
	"github.com/remactgo/remact/log"
)

// DefaultProviderTimeout bounds a catalog request
const DefaultProviderTimeout = 5 * time.Second

// Provider is the discovery provider backed by a catalog service.
// It talks to the catalog through a proxy running on a loop of its own.
type Provider struct {
	uri          string
	logger       log.Logger
	configurator actor.Configurator
	timeout      time.Duration
	initialized  *atomic.Bool

	mu    sync.Mutex
	loop  *actor.Loop
	proxy *actor.PortProxy
	// reconnects one call at a time
	reconnecting sync.Mutex
}

// enforce compilation error
var _ discovery.Provider = (*Provider)(nil)

// NewProvider creates a provider for the catalog service listening at uri
func NewProvider(uri string, opts ...ProviderOption) *Provider {
	p := &Provider{
		uri:         uri,
		logger:      log.DefaultLogger,
		timeout:     DefaultProviderTimeout,
		initialized: atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt.Apply(p)
	}
	return p
}

// ID returns the discovery provider id
func (p *Provider) ID() string {
	return discovery.ProviderCatalog
}

// Initialize connects to the catalog service
func (p *Provider) Initialize(ctx context.Context) error {
	if !p.initialized.CompareAndSwap(false, true) {
		return discovery.ErrAlreadyInitialized
	}

	if _, err := address.Parse(p.uri); err != nil {
		p.initialized.Store(false)
		return fmt.Errorf("%w: %w", discovery.ErrInvalidConfig, err)
	}

	var opts []actor.Option
	opts = append(opts, actor.WithLogger(p.logger), actor.WithTimeout(p.timeout))
	if p.configurator != nil {
		opts = append(opts, actor.WithConfigurator(p.configurator))
	}

	loop := actor.StartLoop(discovery.ProviderCatalog, actor.WithLoopLogger(p.logger))
	proxy := actor.NewPortProxy("", opts...)
	if err := proxy.LinkToRemoteService(p.uri); err != nil {
		_ = loop.Stop(ctx)
		p.initialized.Store(false)
		return fmt.Errorf("%w: %w", discovery.ErrInvalidConfig, err)
	}

	if err := p.connect(ctx, loop, proxy, proxy.ConnectAsync); err != nil {
		proxy.Disconnect()
		_ = loop.Stop(ctx)
		p.initialized.Store(false)
		return fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}

	p.mu.Lock()
	p.loop = loop
	p.proxy = proxy
	p.mu.Unlock()
	p.logger.Infof("connected to catalog %s", p.uri)
	return nil
}

// Register announces the service to the catalog
func (p *Provider) Register(ctx context.Context, service *discovery.Service) error {
	if err := service.Validate(); err != nil {
		return fmt.Errorf("%w: %w", discovery.ErrInvalidConfig, err)
	}
	_, err := p.call(ctx, MethodEnable, actor.ActorInfoFromService(service, actor.ServiceEnableRequest))
	return err
}

// Deregister removes the service from the catalog
func (p *Provider) Deregister(ctx context.Context, service *discovery.Service) error {
	_, err := p.call(ctx, MethodDisable, actor.ActorInfoFromService(service, actor.ServiceDisableRequest))
	return err
}

// Lookup resolves name with the catalog
func (p *Provider) Lookup(ctx context.Context, name string) (*discovery.Service, error) {
	info, err := p.call(ctx, MethodAddress, &actor.ActorInfo{
		Usage:         actor.ServiceAddressRequest,
		Name:          name,
		IsServiceName: true,
	})
	if err != nil {
		return nil, err
	}
	return info.ToService(), nil
}

// Close disconnects from the catalog and stops the loop of the provider
func (p *Provider) Close() error {
	if !p.initialized.CompareAndSwap(true, false) {
		return nil
	}

	p.mu.Lock()
	loop, proxy := p.loop, p.proxy
	p.loop, p.proxy = nil, nil
	p.mu.Unlock()

	if proxy != nil {
		proxy.Disconnect()
	}
	if loop == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return loop.Stop(ctx)
}

func (p *Provider) call(ctx context.Context, method string, info *actor.ActorInfo) (*actor.ActorInfo, error) {
	p.mu.Lock()
	loop, proxy := p.loop, p.proxy
	p.mu.Unlock()
	if !p.initialized.Load() || proxy == nil {
		return nil, discovery.ErrNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.ensureConnected(ctx, loop, proxy); err != nil {
		return nil, fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}

	var reply future.Future[*actor.ActorInfo]
	if err := loop.Invoke(ctx, func(ctx context.Context) error {
		reply = actor.SendReceiveAsync[*actor.ActorInfo](ctx, proxy, method, info)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}

	out, err := reply.Await(ctx)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, gerrors.ErrServiceNotRunning):
		return nil, fmt.Errorf("%w: %s", discovery.ErrServiceNotFound, info.Name)
	case errors.Is(err, gerrors.ErrInvalidArgument):
		return nil, fmt.Errorf("%w: %w", discovery.ErrInvalidConfig, err)
	default:
		return nil, fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}
}

func (p *Provider) ensureConnected(ctx context.Context, loop *actor.Loop, proxy *actor.PortProxy) error {
	p.reconnecting.Lock()
	defer p.reconnecting.Unlock()
	if proxy.State() == actor.PortStateOk {
		return nil
	}
	return p.connect(ctx, loop, proxy, proxy.Reconnect)
}

// connect runs start on the loop and waits for the connection
func (p *Provider) connect(ctx context.Context, loop *actor.Loop, proxy *actor.PortProxy,
	start func(context.Context) future.Future[*actor.ActorInfo]) error {
	var connected future.Future[*actor.ActorInfo]
	if err := loop.Invoke(ctx, func(ctx context.Context) error {
		connected = start(ctx)
		return nil
	}); err != nil {
		return err
	}
	info, err := connected.Await(ctx)
	if err != nil {
		return err
	}
	log.Trace(p.logger, log.MarkConnect, "%s connected to %s", proxy, info.Name)
	return nil
}
