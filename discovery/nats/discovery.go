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

// Package nats implements a catalog without any central store: every process
// answers the lookups of the services it registered over NATS request/reply.
package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goset "github.com/deckarep/golang-set/v2"
	"github.com/flowchartsman/retry"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"

	"github.com/remactgo/remact/discovery"
	"github.com/remactgo/remact/log"
)

// registration is one service answered by this process
type registration struct {
	service      *discovery.Service
	subscription *nats.Subscription
}

// Discovery represents the NATS discovery provider
type Discovery struct {
	config *Config
	mu     sync.Mutex

	initialized *atomic.Bool

	connection    *nats.Conn
	registrations map[string]*registration

	logger log.Logger
}

// enforce compilation error
var _ discovery.Provider = (*Discovery)(nil)

// NewDiscovery returns an instance of the NATS discovery provider
func NewDiscovery(config *Config, opts ...Option) *Discovery {
	if config == nil {
		config = new(Config)
	}
	d := &Discovery{
		config:        config,
		initialized:   atomic.NewBool(false),
		registrations: make(map[string]*registration),
		logger:        log.DefaultLogger,
	}

	for _, opt := range opts {
		opt.Apply(d)
	}
	return d
}

// ID returns the discovery provider id
func (d *Discovery) ID() string {
	return discovery.ProviderNats
}

// Initialize connects to the NATS server
func (d *Discovery) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized.Load() {
		return discovery.ErrAlreadyInitialized
	}

	d.config.Sanitize()
	if err := d.config.Validate(); err != nil {
		return errors.Join(discovery.ErrInvalidConfig, err)
	}

	opts := nats.GetDefaultOptions()
	opts.Url = d.config.NatsServer
	opts.Name = "remact-" + uuid.NewString()
	opts.ReconnectWait = 2 * time.Second
	opts.MaxReconnect = -1

	var connection *nats.Conn
	// retry with an initial delay of 100ms, capped at the reconnect wait
	retrier := retry.NewRetrier(d.config.MaxConnectRetries, 100*time.Millisecond, opts.ReconnectWait)
	err := retrier.RunContext(ctx, func(context.Context) error {
		var err error
		connection, err = opts.Connect()
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}

	d.connection = connection
	d.initialized.Store(true)
	return nil
}

// Register answers the lookups of the given service from now on
func (d *Discovery) Register(_ context.Context, service *discovery.Service) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized.Load() {
		return discovery.ErrNotInitialized
	}

	if err := service.Validate(); err != nil {
		return fmt.Errorf("%w: %w", discovery.ErrInvalidConfig, err)
	}

	key := registrationKey(service)
	if current, ok := d.registrations[key]; ok {
		current.service = service.Clone()
		return nil
	}

	current := &registration{service: service.Clone()}
	subscription, err := d.connection.Subscribe(d.subject(service.Name), func(msg *nats.Msg) {
		d.mu.Lock()
		data, err := current.service.MarshalBinary()
		d.mu.Unlock()
		if err != nil {
			d.logger.Errorf("failed to encode service %s: %v", service.Name, err)
			return
		}
		if err := msg.Respond(data); err != nil {
			d.logger.Warnf("failed to answer lookup of %s: %v", service.Name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}

	// make sure the server knows the subscription before announcing success
	if err := d.connection.Flush(); err != nil {
		_ = subscription.Unsubscribe()
		return fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}

	current.subscription = subscription
	d.registrations[key] = current
	return nil
}

// Deregister stops answering the lookups of the given service
func (d *Discovery) Deregister(_ context.Context, service *discovery.Service) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized.Load() {
		return discovery.ErrNotInitialized
	}

	key := registrationKey(service)
	current, ok := d.registrations[key]
	if !ok {
		return nil
	}
	delete(d.registrations, key)
	if current.subscription != nil && current.subscription.IsValid() {
		return current.subscription.Unsubscribe()
	}
	return nil
}

// Lookup publishes a lookup request and collects the answers
func (d *Discovery) Lookup(ctx context.Context, name string) (*discovery.Service, error) {
	d.mu.Lock()
	if !d.initialized.Load() {
		d.mu.Unlock()
		return nil, discovery.ErrNotInitialized
	}
	connection := d.connection
	d.mu.Unlock()

	inbox := connection.NewRespInbox()
	subscription, err := connection.SubscribeSync(inbox)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}
	defer func() { _ = subscription.Unsubscribe() }()

	if err := connection.PublishRequest(d.subject(name), inbox, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	msg, err := subscription.NextMsgWithContext(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", discovery.ErrServiceNotFound, name)
		}
		return nil, fmt.Errorf("%w: %w", discovery.ErrUnreachable, err)
	}

	found := new(discovery.Service)
	if err := found.UnmarshalBinary(msg.Data); err != nil {
		return nil, fmt.Errorf("invalid lookup answer for %s: %w", name, err)
	}

	seen := goset.NewThreadUnsafeSet(found.URI)
	addresses := make([]string, 0, len(found.Addresses))
	add := func(uri string) {
		if uri != "" && seen.Add(uri) {
			addresses = append(addresses, uri)
		}
	}
	for _, uri := range found.Addresses {
		add(uri)
	}

	// other instances of the same service
	for {
		msg, err := subscription.NextMsg(d.config.GatherWindow)
		if err != nil {
			break
		}
		other := new(discovery.Service)
		if err := other.UnmarshalBinary(msg.Data); err != nil {
			d.logger.Warnf("skipping invalid lookup answer for %s: %v", name, err)
			continue
		}
		add(other.URI)
		for _, uri := range other.Addresses {
			add(uri)
		}
	}

	found.Addresses = addresses
	return found, nil
}

// Close drops the registrations and the NATS connection
func (d *Discovery) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, current := range d.registrations {
		if current.subscription != nil && current.subscription.IsValid() {
			_ = current.subscription.Unsubscribe()
		}
		delete(d.registrations, key)
	}

	if d.connection != nil {
		d.connection.Close()
		d.connection = nil
	}
	d.initialized.Store(false)
	return nil
}

func (d *Discovery) subject(name string) string {
	return d.config.NatsSubject + "." + name
}

func registrationKey(service *discovery.Service) string {
	return fmt.Sprintf("%s@%s/%d", service.Name, service.HostName, service.AppInstance)
}
