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
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/remactgo/remact/address"
)

// Configurator creates the transports of the ports of a process.
// All services configured by one Configurator share a single Host.
type Configurator struct {
	opts []Option
	cfg  *config

	mu   sync.Mutex
	host *Host
	refs int
}

// NewConfigurator creates a Configurator
func NewConfigurator(opts ...Option) *Configurator {
	return &Configurator{
		opts: opts,
		cfg:  newConfig(opts...),
	}
}

// DoServiceConfiguration creates the transport of service serviceName
func (c *Configurator) DoServiceConfiguration(serviceName string) (ServiceTransport, error) {
	host, err := c.acquire()
	if err != nil {
		return nil, err
	}

	port := host.Port()
	uri := address.New(c.cfg.scheme, advertisedHost(c.cfg), port, serviceName).String()

	addresses := make([]string, 0, 2)
	for _, h := range bindHosts(c.cfg.bindHost) {
		alt := address.New(c.cfg.scheme, h, port, serviceName).String()
		if alt != uri {
			addresses = append(addresses, alt)
		}
	}

	return &hostedService{
		name:      serviceName,
		uri:       uri,
		addresses: addresses,
		host:      host,
		release:   c.release,
		served:    atomic.NewBool(false),
		closed:    atomic.NewBool(false),
	}, nil
}

// DoClientConfiguration creates the transport of a client connecting to serviceURI
func (c *Configurator) DoClientConfiguration(serviceURI string) (ClientTransport, error) {
	return NewClient(serviceURI, c.opts...)
}

// Close closes the shared host whatever the number of services still served
func (c *Configurator) Close() error {
	c.mu.Lock()
	host := c.host
	c.host = nil
	c.refs = 0
	c.mu.Unlock()

	if host == nil {
		return nil
	}
	return closeHost(host)
}

func (c *Configurator) acquire() (*Host, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.host == nil {
		listenAddr := net.JoinHostPort(c.cfg.bindHost, strconv.Itoa(c.cfg.port))
		host, err := NewHost(c.cfg.scheme, listenAddr, c.opts...)
		if err != nil {
			return nil, err
		}
		host.Start()
		c.host = host
	}
	c.refs++
	return c.host, nil
}

func (c *Configurator) release(host *Host) {
	c.mu.Lock()
	if c.host != host {
		c.mu.Unlock()
		return
	}
	c.refs--
	if c.refs > 0 {
		c.mu.Unlock()
		return
	}
	c.host = nil
	c.mu.Unlock()

	if err := closeHost(host); err != nil {
		c.cfg.logger.Warnf("failed to close host %s: %v", host.Addr(), err)
	}
}

func closeHost(host *Host) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return host.Close(ctx)
}

// hostedService is a service registered on a shared Host
type hostedService struct {
	name      string
	uri       string
	addresses []string
	host      *Host
	release   func(*Host)
	served    *atomic.Bool
	closed    *atomic.Bool
}

var _ ServiceTransport = (*hostedService)(nil)

// ServiceURI implements ServiceTransport
func (s *hostedService) ServiceURI() string {
	return s.uri
}

// Addresses implements ServiceTransport
func (s *hostedService) Addresses() []string {
	return s.addresses
}

// Serve implements ServiceTransport
func (s *hostedService) Serve(handler SessionHandler) error {
	if !s.served.CompareAndSwap(false, true) {
		return ErrServiceAlreadyHosted
	}
	if err := s.host.Register(s.name, handler); err != nil {
		s.served.Store(false)
		return err
	}
	return nil
}

// Close implements ServiceTransport
func (s *hostedService) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.served.Load() {
		s.host.Deregister(s.name)
	}
	s.release(s.host)
	return nil
}
