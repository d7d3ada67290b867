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
	"fmt"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/remactgo/remact/discovery"
	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/internal/ticker"
	"github.com/remactgo/remact/log"
)

// CatalogClient announces the remote services of the process to a catalog
// and looks services up by name.
//
// The catalog may come and go: announcements are retried on every tick with
// a capped exponential backoff and repeated periodically, so that a catalog
// restarted empty learns the services again.
type CatalogClient struct {
	provider   discovery.Provider
	logger     log.Logger
	tick       time.Duration
	reannounce time.Duration
	maxBackoff time.Duration
	timeout    time.Duration
	retries    int

	started     *atomic.Bool
	initialized *atomic.Bool

	// round serializes the announcement rounds with Stop and RemoveService
	round sync.Mutex

	mu       sync.Mutex
	services map[*PortService]*announcement
	clients  map[*PortProxy]struct{}
	stopTick func()
}

type announcement struct {
	service       *discovery.Service
	registered    bool
	lastAnnounced time.Time
	failures      int
	nextAttempt   time.Time
}

// NewCatalogClient creates a catalog client using provider
func NewCatalogClient(provider discovery.Provider, opts ...CatalogOption) *CatalogClient {
	c := &CatalogClient{
		provider:    provider,
		logger:      log.DefaultLogger,
		tick:        DefaultCatalogTick,
		reannounce:  DefaultReannounceInterval,
		maxBackoff:  DefaultMaxAnnounceBackoff,
		timeout:     5 * time.Second,
		retries:     2,
		started:     atomic.NewBool(false),
		initialized: atomic.NewBool(false),
		services:    make(map[*PortService]*announcement),
		clients:     make(map[*PortProxy]struct{}),
	}
	for _, opt := range opts {
		opt.Apply(c)
	}
	return c
}

// Start starts announcing services. An unreachable catalog is not an error.
func (c *CatalogClient) Start(ctx context.Context) error {
	if c.provider == nil {
		return fmt.Errorf("%w: catalog client has no provider", gerrors.ErrInvalidArgument)
	}
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}

	c.initialize(ctx)
	stop := ticker.Every(c.tick, c.announce)
	c.mu.Lock()
	c.stopTick = stop
	c.mu.Unlock()

	log.Trace(c.logger, log.MarkCatalog, "catalog client started with the %s provider", c.provider.ID())
	return nil
}

// Stop disconnects the services and proxies of the catalog client, then
// withdraws the services from the catalog and releases the provider.
func (c *CatalogClient) Stop(ctx context.Context) error {
	if !c.started.CompareAndSwap(true, false) {
		return nil
	}

	c.mu.Lock()
	stop := c.stopTick
	c.stopTick = nil
	c.mu.Unlock()
	if stop != nil {
		stop()
	}

	// wait for a running round
	c.round.Lock()
	c.mu.Lock()
	services := make([]*PortService, 0, len(c.services))
	entries := make([]*announcement, 0, len(c.services))
	for service, entry := range c.services {
		services = append(services, service)
		if entry.registered {
			entries = append(entries, entry)
		}
	}
	clients := make([]*PortProxy, 0, len(c.clients))
	for proxy := range c.clients {
		clients = append(clients, proxy)
	}
	c.clients = make(map[*PortProxy]struct{})
	c.mu.Unlock()
	c.round.Unlock()

	for _, proxy := range clients {
		proxy.Disconnect()
	}
	for _, service := range services {
		service.Disconnect()
	}

	// let the last messages of the services leave
	wait := min(time.Duration(len(services))*DisconnectGrace, time.Second)
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		eg.Go(func() error {
			return c.provider.Deregister(egCtx, entry.service)
		})
	}

	err := eg.Wait()
	if c.initialized.CompareAndSwap(true, false) {
		err = multierr.Append(err, c.provider.Close())
	}

	log.Trace(c.logger, log.MarkCatalog, "catalog client stopped")
	return err
}

// Started returns true between Start and Stop
func (c *CatalogClient) Started() bool {
	return c.started.Load()
}

// AddService announces service at the next tick
func (c *CatalogClient) AddService(service *PortService) {
	info := service.Info().WithUsage(ServiceEnableRequest)
	c.mu.Lock()
	c.services[service] = &announcement{service: info.ToService()}
	c.mu.Unlock()
}

// RemoveService withdraws service from the catalog
func (c *CatalogClient) RemoveService(service *PortService) {
	c.round.Lock()
	defer c.round.Unlock()

	c.mu.Lock()
	entry, ok := c.services[service]
	registered := ok && entry.registered
	delete(c.services, service)
	c.mu.Unlock()

	if !registered || !c.started.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.provider.Deregister(ctx, entry.service); err != nil {
		log.Trace(c.logger, log.MarkWarning, "could not withdraw %s from the catalog: %v", entry.service.Name, err)
	}
}

// IsRegistered returns true when service was announced successfully and the
// catalog did not fail since
func (c *CatalogClient) IsRegistered(service *PortService) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.services[service]
	return ok && entry.registered
}

// Lookup returns the identity and addresses of the service registered under name.
// The error is an *ErrorMessage with code ServiceNotRunning when the service is
// unknown and CatalogNotRunning when the catalog cannot answer.
func (c *CatalogClient) Lookup(ctx context.Context, name string) (*ActorInfo, error) {
	if !c.started.Load() {
		return nil, NewErrorMessage(ErrorCodeCatalogNotRunning, "catalog client is not started")
	}
	if !c.initialize(ctx) {
		return nil, NewErrorMessage(ErrorCodeCatalogNotRunning, "catalog %s is not reachable", c.provider.ID())
	}

	service, err := c.provider.Lookup(ctx, name)
	switch {
	case errors.Is(err, discovery.ErrServiceNotFound):
		return nil, NewErrorMessage(ErrorCodeServiceNotRunning, "service %s is not registered", name)
	case err != nil:
		return nil, NewErrorMessage(ErrorCodeCatalogNotRunning, "catalog lookup of %s failed: %v", name, err)
	}

	log.Trace(c.logger, log.MarkCatalog, "%s found at %s", name, service.URI)
	return ActorInfoFromService(service, ServiceAddressResponse), nil
}

func (c *CatalogClient) addClient(proxy *PortProxy) {
	c.mu.Lock()
	c.clients[proxy] = struct{}{}
	c.mu.Unlock()
}

func (c *CatalogClient) removeClient(proxy *PortProxy) {
	c.mu.Lock()
	delete(c.clients, proxy)
	c.mu.Unlock()
}

func (c *CatalogClient) initialize(ctx context.Context) bool {
	if c.initialized.Load() {
		return true
	}

	err := c.provider.Initialize(ctx)
	if err != nil && !errors.Is(err, discovery.ErrAlreadyInitialized) {
		log.Trace(c.logger, log.MarkWarning, "catalog %s is not reachable: %v", c.provider.ID(), err)
		return false
	}
	c.initialized.Store(true)
	return true
}

// announce registers the services that are due, on every tick
func (c *CatalogClient) announce() {
	c.round.Lock()
	defer c.round.Unlock()
	if !c.started.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	now := time.Now()
	if !c.initialize(ctx) {
		c.unregisterAll(now)
		return
	}

	for _, entry := range c.due(now) {
		retrier := retry.NewRetrier(c.retries, c.tick/10, c.tick)
		err := retrier.RunContext(ctx, func(ctx context.Context) error {
			return c.provider.Register(ctx, entry.service)
		})
		if err != nil {
			log.Trace(c.logger, log.MarkWarning, "could not announce %s: %v", entry.service.Name, err)
			c.unregisterAll(now)
			return
		}

		c.mu.Lock()
		if !entry.registered {
			log.Trace(c.logger, log.MarkCatalog, "%s announced at %s", entry.service.Name, entry.service.URI)
		}
		entry.registered = true
		entry.lastAnnounced = now
		entry.failures = 0
		c.mu.Unlock()
	}
}

// due returns the services to announce now
func (c *CatalogClient) due(now time.Time) []*announcement {
	c.mu.Lock()
	defer c.mu.Unlock()

	var entries []*announcement
	for _, entry := range c.services {
		switch {
		case !entry.registered && !now.Before(entry.nextAttempt):
			entries = append(entries, entry)
		case entry.registered && now.Sub(entry.lastAnnounced) >= c.reannounce:
			entries = append(entries, entry)
		}
	}
	return entries
}

// unregisterAll marks every service unregistered after a catalog failure
// and delays the next announcement
func (c *CatalogClient) unregisterAll(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.services {
		entry.registered = false
		entry.failures++
		entry.nextAttempt = now.Add(c.backoff(entry.failures))
	}
}

// backoff doubles the tick for every failure, up to maxBackoff
func (c *CatalogClient) backoff(failures int) time.Duration {
	delay := c.tick
	for i := 1; i < failures && delay < c.maxBackoff; i++ {
		delay *= 2
	}
	return min(delay, c.maxBackoff)
}

// CatalogOption configures a CatalogClient
type CatalogOption interface {
	// Apply sets the Option value of a catalog client.
	Apply(c *CatalogClient)
}

var _ CatalogOption = CatalogOptionFunc(nil)

// CatalogOptionFunc implements the CatalogOption interface.
type CatalogOptionFunc func(c *CatalogClient)

// Apply applies the option
func (f CatalogOptionFunc) Apply(c *CatalogClient) {
	f(c)
}

// WithCatalogLogger sets the catalog client logger
func WithCatalogLogger(logger log.Logger) CatalogOption {
	return CatalogOptionFunc(func(c *CatalogClient) {
		c.logger = logger
	})
}

// WithTick sets the period of the announcement timer
func WithTick(tick time.Duration) CatalogOption {
	return CatalogOptionFunc(func(c *CatalogClient) {
		if tick > 0 {
			c.tick = tick
		}
	})
}

// WithReannounceInterval sets how often registered services are announced again
func WithReannounceInterval(interval time.Duration) CatalogOption {
	return CatalogOptionFunc(func(c *CatalogClient) {
		if interval > 0 {
			c.reannounce = interval
		}
	})
}

// WithMaxBackoff caps the delay between announcements to an unreachable catalog
func WithMaxBackoff(backoff time.Duration) CatalogOption {
	return CatalogOptionFunc(func(c *CatalogClient) {
		if backoff > 0 {
			c.maxBackoff = backoff
		}
	})
}

// WithCatalogTimeout bounds every call to the catalog
func WithCatalogTimeout(timeout time.Duration) CatalogOption {
	return CatalogOptionFunc(func(c *CatalogClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	})
}

// WithAnnounceRetries sets how many times an announcement is tried per tick
func WithAnnounceRetries(retries int) CatalogOption {
	return CatalogOptionFunc(func(c *CatalogClient) {
		if retries > 0 {
			c.retries = retries
		}
	})
}
