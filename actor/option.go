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
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/remactgo/remact/codec"
	"github.com/remactgo/remact/log"
)

// SessionFactory creates the session state of a client connecting to a service.
// The value is kept on the client stub for the lifetime of the connection.
type SessionFactory func(client *ActorInfo) any

// portConfig holds the settings of proxies and services
type portConfig struct {
	logger         log.Logger
	appName        string
	appInstance    int
	hostName       string
	multithreaded  bool
	timeout        time.Duration
	meterProvider  metric.MeterProvider
	defaultHandler MessageHandler
	dispatcher     *Dispatcher
	configurator   Configurator
	catalog        *CatalogClient
	sessionFactory SessionFactory
	serializer     codec.Serializer
	checkOwner     bool
}

func newPortConfig(opts ...Option) *portConfig {
	cfg := &portConfig{
		logger:      log.DefaultLogger,
		appName:     defaultAppName(),
		appInstance: os.Getpid(),
		hostName:    defaultHostName(),
		timeout:     DefaultTimeout,
		serializer:  defaultSerializer(),
	}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	return cfg
}

// Option is the interface that applies a port configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(cfg *portConfig)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(cfg *portConfig)

// Apply applies the option
func (f OptionFunc) Apply(cfg *portConfig) {
	f(cfg)
}

// WithLogger sets the port logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.logger = logger
	})
}

// WithAppName sets the application name of the port identity
func WithAppName(name string) Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.appName = name
	})
}

// WithAppInstance sets the application instance of the port identity.
// It defaults to the process id.
func WithAppInstance(instance int) Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.appInstance = instance
	})
}

// WithHostName sets the host name of the port identity
func WithHostName(hostName string) Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.hostName = hostName
	})
}

// WithMultithreaded lets the port be used from any goroutine.
// Messages are then dispatched on the goroutine posting them.
func WithMultithreaded() Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.multithreaded = true
	})
}

// WithTimeout sets the channel test timeout
func WithTimeout(timeout time.Duration) Option {
	return OptionFunc(func(cfg *portConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	})
}

// WithMeterProvider sets the OpenTelemetry meter provider.
// The global provider is used otherwise.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.meterProvider = provider
	})
}

// WithDefaultHandler sets the handler of the messages no continuation or
// dispatcher method handled.
func WithDefaultHandler(handler MessageHandler) Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.defaultHandler = handler
	})
}

// WithDispatcher sets the dispatcher routing messages by method name
func WithDispatcher(dispatcher *Dispatcher) Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.dispatcher = dispatcher
	})
}

// WithConfigurator sets the transport factory used for remote connections
func WithConfigurator(configurator Configurator) Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.configurator = configurator
	})
}

// WithCatalog registers the port with a catalog client.
// Services are announced, proxies are disconnected when the catalog client stops.
func WithCatalog(catalog *CatalogClient) Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.catalog = catalog
	})
}

// WithSessionFactory sets the factory of the per client session state of a service
func WithSessionFactory(factory SessionFactory) Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.sessionFactory = factory
	})
}

// WithSerializer sets the payload serializer used for remote messages
func WithSerializer(serializer codec.Serializer) Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.serializer = serializer
	})
}

// WithOwnerCheck makes SendResponse fail with ErrWrongSyncContext when a
// request is answered outside the loop that dispatched it. Deferred answers
// must then be posted back to that loop.
func WithOwnerCheck() Option {
	return OptionFunc(func(cfg *portConfig) {
		cfg.checkOwner = true
	})
}

// LoopOption configures a Loop
type LoopOption interface {
	// Apply sets the Option value of a loop.
	Apply(loop *Loop)
}

var _ LoopOption = LoopOptionFunc(nil)

// LoopOptionFunc implements the LoopOption interface.
type LoopOptionFunc func(loop *Loop)

// Apply applies the option
func (f LoopOptionFunc) Apply(loop *Loop) {
	f(loop)
}

// WithLoopLogger sets the loop logger
func WithLoopLogger(logger log.Logger) LoopOption {
	return LoopOptionFunc(func(loop *Loop) {
		loop.logger = logger
	})
}

func defaultAppName() string {
	if len(os.Args) == 0 {
		return "remact"
	}
	return filepath.Base(os.Args[0])
}

func defaultHostName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "localhost"
	}
	return name
}
