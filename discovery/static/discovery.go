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

package static

import (
	"context"
	"fmt"

	"go.uber.org/atomic"

	"github.com/remactgo/remact/discovery"
	"github.com/remactgo/remact/log"
)

// Discovery is the in-memory discovery provider
type Discovery struct {
	directory   *Directory
	initialized *atomic.Bool
	logger      log.Logger
}

// enforce compilation error
var _ discovery.Provider = (*Discovery)(nil)

// NewDiscovery creates a provider backed by directory. A nil directory gives
// the provider a private one.
func NewDiscovery(directory *Directory, opts ...Option) *Discovery {
	if directory == nil {
		directory = NewDirectory()
	}
	d := &Discovery{
		directory:   directory,
		initialized: atomic.NewBool(false),
		logger:      log.DefaultLogger,
	}
	for _, opt := range opts {
		opt.Apply(d)
	}
	return d
}

// ID returns the discovery provider id
func (d *Discovery) ID() string {
	return discovery.ProviderStatic
}

// Directory returns the backing directory
func (d *Discovery) Directory() *Directory {
	return d.directory
}

// Initialize implements discovery.Provider
func (d *Discovery) Initialize(context.Context) error {
	if !d.initialized.CompareAndSwap(false, true) {
		return discovery.ErrAlreadyInitialized
	}
	return nil
}

// Register implements discovery.Provider
func (d *Discovery) Register(_ context.Context, service *discovery.Service) error {
	if err := d.check(); err != nil {
		return err
	}
	if err := service.Validate(); err != nil {
		return fmt.Errorf("%w: %w", discovery.ErrInvalidConfig, err)
	}
	d.directory.put(service)
	d.logger.Debugf("static catalog registered %s", service)
	return nil
}

// Deregister implements discovery.Provider
func (d *Discovery) Deregister(_ context.Context, service *discovery.Service) error {
	if err := d.check(); err != nil {
		return err
	}
	d.directory.remove(service)
	return nil
}

// Lookup implements discovery.Provider
func (d *Discovery) Lookup(_ context.Context, name string) (*discovery.Service, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	service, ok := d.directory.get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", discovery.ErrServiceNotFound, name)
	}
	return service, nil
}

// Close implements discovery.Provider
func (d *Discovery) Close() error {
	d.initialized.Store(false)
	return nil
}

func (d *Discovery) check() error {
	if !d.initialized.Load() {
		return discovery.ErrNotInitialized
	}
	if !d.directory.Reachable() {
		return discovery.ErrUnreachable
	}
	return nil
}
