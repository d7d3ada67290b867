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

// Package catalog provides the catalog service port, where services announce
// themselves and are looked up by name, and a discovery provider speaking to it.
package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/remactgo/remact/actor"
	"github.com/remactgo/remact/internal/ticker"
	"github.com/remactgo/remact/log"
	"github.com/remactgo/remact/remote"
)

const (
	// DefaultServiceName is the name of the catalog service port
	DefaultServiceName = "RemactCatalog"
	// DefaultPort is the port the catalog listens on
	DefaultPort = 40000
	// DefaultSweepInterval is how often expired registrations are forgotten
	DefaultSweepInterval = 10 * time.Second

	// MethodEnable registers a service
	MethodEnable = "ServiceEnable"
	// MethodDisable removes a service
	MethodDisable = "ServiceDisable"
	// MethodAddress resolves a service by name
	MethodAddress = "ServiceAddress"
)

// Service is the catalog service port. It runs on a loop of its own.
type Service struct {
	name          string
	logger        log.Logger
	configurator  actor.Configurator
	owned         *remote.Configurator
	sweepInterval time.Duration
	registry      *registry
	clock         func() time.Time

	mu        sync.Mutex
	loop      *actor.Loop
	port      *actor.PortService
	stopSweep func()
}

// NewService creates a closed catalog service. Without WithConfigurator it
// listens on DefaultPort of every interface.
func NewService(opts ...Option) *Service {
	s := &Service{
		name:          DefaultServiceName,
		logger:        log.DefaultLogger,
		sweepInterval: DefaultSweepInterval,
		registry:      newRegistry(),
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt.Apply(s)
	}
	return s
}

// Open starts the loop of the service and opens its port
func (s *Service) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}

	configurator := s.configurator
	if configurator == nil {
		s.owned = remote.NewConfigurator(
			remote.WithLogger(s.logger),
			remote.WithBindAddress("0.0.0.0", DefaultPort))
		configurator = s.owned
	}

	port, err := actor.NewPortService(s.name,
		actor.WithLogger(s.logger),
		actor.WithConfigurator(configurator),
		actor.WithDispatcher(s.dispatcher()))
	if err != nil {
		return s.closeOwned(err)
	}

	loop := actor.StartLoop(s.name, actor.WithLoopLogger(s.logger))
	if err := loop.Invoke(ctx, port.Open); err != nil {
		return s.closeOwned(multierr.Append(err, loop.Stop(ctx)))
	}

	s.loop = loop
	s.port = port
	s.stopSweep = ticker.Every(s.sweepInterval, s.sweep)
	s.logger.Infof("catalog %s listening at %s", s.name, port.URI())
	return nil
}

// Close closes the port and stops the loop of the service
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}

	s.stopSweep()
	port := s.port
	err := s.loop.Invoke(ctx, func(context.Context) error {
		port.Close()
		return nil
	})
	err = multierr.Append(err, s.loop.Stop(ctx))
	s.port = nil
	s.loop = nil
	s.stopSweep = nil
	return s.closeOwned(err)
}

// URI returns the URI of the open service, empty when closed
func (s *Service) URI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return ""
	}
	return s.port.URI()
}

// Services returns the registered services sorted by name
func (s *Service) Services() []*actor.ActorInfo {
	return s.registry.list()
}

func (s *Service) closeOwned(err error) error {
	if s.owned != nil {
		err = multierr.Append(err, s.owned.Close())
		s.owned = nil
	}
	return err
}

func (s *Service) sweep() {
	if removed := s.registry.sweep(s.clock()); removed > 0 {
		s.logger.Debugf("catalog %s forgot %d expired services", s.name, removed)
	}
}

func (s *Service) dispatcher() *actor.Dispatcher {
	d := actor.NewDispatcher()
	_ = actor.Handle(d, MethodEnable, s.enable)
	_ = actor.Handle(d, MethodDisable, s.disable)
	_ = actor.Handle(d, MethodAddress, s.address)
	return d
}

func (s *Service) enable(_ context.Context, info *actor.ActorInfo, _ *actor.Message) (any, error) {
	if err := info.ToService().Validate(); err != nil {
		return nil, actor.NewErrorMessage(actor.ErrorCodeArgumentError, "cannot enable %s: %v", info.Name, err)
	}
	stored := s.registry.enable(info, s.clock())
	log.Trace(s.logger, log.MarkCatalog, "%s enabled at %s", stored.Name, stored.URI)
	return stored.WithUsage(actor.ServiceEnableResponse), nil
}

func (s *Service) disable(_ context.Context, info *actor.ActorInfo, _ *actor.Message) (any, error) {
	if s.registry.disable(info) {
		log.Trace(s.logger, log.MarkCatalog, "%s disabled", info.Name)
	}
	return info.WithUsage(actor.ServiceDisableResponse), nil
}

func (s *Service) address(_ context.Context, info *actor.ActorInfo, _ *actor.Message) (any, error) {
	found, ok := s.registry.lookup(info.Name, s.clock())
	if !ok {
		return nil, actor.NewErrorMessage(actor.ErrorCodeServiceNotRunning, "service %s is not registered", info.Name)
	}
	return found.WithUsage(actor.ServiceAddressResponse), nil
}
