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
	"time"

	"github.com/remactgo/remact/actor"
	"github.com/remactgo/remact/log"
)

// Option is the interface that applies a configuration option to a Service.
type Option interface {
	// Apply sets the Option value of a Service.
	Apply(s *Service)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(s *Service)

// Apply applies the option
func (f OptionFunc) Apply(s *Service) {
	f(s)
}

// WithLogger sets the logger of the service
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(s *Service) {
		s.logger = logger
	})
}

// WithName sets the name of the catalog service port
func WithName(name string) Option {
	return OptionFunc(func(s *Service) {
		if name != "" {
			s.name = name
		}
	})
}

// WithConfigurator sets the configurator hosting the service.
// The service does not close a configurator it was given.
func WithConfigurator(configurator actor.Configurator) Option {
	return OptionFunc(func(s *Service) {
		s.configurator = configurator
	})
}

// WithSweepInterval sets how often expired registrations are forgotten
func WithSweepInterval(interval time.Duration) Option {
	return OptionFunc(func(s *Service) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	})
}

// ProviderOption is the interface that applies a configuration option to a Provider.
type ProviderOption interface {
	// Apply sets the ProviderOption value of a Provider.
	Apply(p *Provider)
}

var _ ProviderOption = ProviderOptionFunc(nil)

// ProviderOptionFunc implements the ProviderOption interface.
type ProviderOptionFunc func(p *Provider)

// Apply applies the option
func (f ProviderOptionFunc) Apply(p *Provider) {
	f(p)
}

// WithProviderLogger sets the logger of the provider
func WithProviderLogger(logger log.Logger) ProviderOption {
	return ProviderOptionFunc(func(p *Provider) {
		p.logger = logger
	})
}

// WithProviderConfigurator sets the configurator used to reach the catalog
func WithProviderConfigurator(configurator actor.Configurator) ProviderOption {
	return ProviderOptionFunc(func(p *Provider) {
		p.configurator = configurator
	})
}

// WithProviderTimeout bounds every catalog request
func WithProviderTimeout(timeout time.Duration) ProviderOption {
	return ProviderOptionFunc(func(p *Provider) {
		if timeout > 0 {
			p.timeout = timeout
		}
	})
}
