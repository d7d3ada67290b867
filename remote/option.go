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
	"time"

	"github.com/remactgo/remact/address"
	"github.com/remactgo/remact/codec"
	"github.com/remactgo/remact/log"
)

// config holds the settings shared by hosts, clients and configurators
type config struct {
	logger         log.Logger
	serializer     codec.Serializer
	compress       bool
	maxFrameSize   int
	writeTimeout   time.Duration
	dialTimeout    time.Duration
	dialRetries    int
	scheme         string
	bindHost       string
	port           int
	advertisedHost string
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		logger:       log.DefaultLogger,
		serializer:   codec.NewCBORSerializer(nil),
		maxFrameSize: DefaultMaxFrameSize,
		writeTimeout: 5 * time.Second,
		dialTimeout:  5 * time.Second,
		dialRetries:  1,
		scheme:       address.SchemeTCP,
		bindHost:     "0.0.0.0",
	}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	return cfg
}

func (c *config) newCodec() *frameCodec {
	return newFrameCodec(c.serializer, c.compress, c.maxFrameSize)
}

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(cfg *config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(cfg *config)

// Apply applies the option
func (f OptionFunc) Apply(cfg *config) {
	f(cfg)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(cfg *config) {
		cfg.logger = logger
	})
}

// WithSerializer sets the envelope serializer
func WithSerializer(serializer codec.Serializer) Option {
	return OptionFunc(func(cfg *config) {
		cfg.serializer = serializer
	})
}

// WithCompression compresses outgoing frames with zstd.
// Incoming frames are always accepted compressed or not.
func WithCompression() Option {
	return OptionFunc(func(cfg *config) {
		cfg.compress = true
	})
}

// WithMaxFrameSize bounds the size of a frame
func WithMaxFrameSize(size int) Option {
	return OptionFunc(func(cfg *config) {
		if size > 0 {
			cfg.maxFrameSize = size
		}
	})
}

// WithWriteTimeout bounds a single frame write
func WithWriteTimeout(timeout time.Duration) Option {
	return OptionFunc(func(cfg *config) {
		cfg.writeTimeout = timeout
	})
}

// WithDialTimeout bounds a connection attempt
func WithDialTimeout(timeout time.Duration) Option {
	return OptionFunc(func(cfg *config) {
		cfg.dialTimeout = timeout
	})
}

// WithDialRetries sets how many times a failing dial is attempted
func WithDialRetries(retries int) Option {
	return OptionFunc(func(cfg *config) {
		if retries > 0 {
			cfg.dialRetries = retries
		}
	})
}

// WithScheme sets the scheme services are hosted with: tcp or ws
func WithScheme(scheme string) Option {
	return OptionFunc(func(cfg *config) {
		cfg.scheme = scheme
	})
}

// WithBindAddress sets the host and port services listen on. Port 0 picks a free port.
func WithBindAddress(host string, port int) Option {
	return OptionFunc(func(cfg *config) {
		cfg.bindHost = host
		cfg.port = port
	})
}

// WithAdvertisedHost sets the host name used in service URIs.
// The default is the machine host name.
func WithAdvertisedHost(host string) Option {
	return OptionFunc(func(cfg *config) {
		cfg.advertisedHost = host
	})
}
