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

package consul

import (
	"context"
	"time"

	"github.com/remactgo/remact/internal/validation"
)

// Config defines the configuration options for the Consul provider.
type Config struct {
	// Context specifies the execution context for Consul operations.
	// If nil, context.Background() will be used.
	Context context.Context
	// Address is the address of the Consul agent to connect to.
	// Default: "127.0.0.1:8500"
	Address string
	// Scheme is the URI scheme of the agent. Default: "http"
	Scheme string
	// Datacenter specifies the Consul datacenter to use.
	// If empty, the agent's default datacenter is used.
	Datacenter string
	// Token is the Consul ACL token used for authenticated requests.
	Token string
	// Timeout specifies the maximum duration for Consul requests.
	// Default: 10s
	Timeout time.Duration
	// Tag is attached to every registered service and used to filter lookups.
	// Default: "remact"
	Tag string
	// QueryOptions specifies advanced options for Consul queries.
	// May be nil for default behavior.
	QueryOptions *QueryOptions
}

var _ validation.Validator = (*Config)(nil)

// Sanitize sets the defaults.
func (config *Config) Sanitize() {
	if config.Context == nil {
		config.Context = context.Background()
	}

	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}

	if config.Scheme == "" {
		config.Scheme = "http"
	}

	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	if config.Tag == "" {
		config.Tag = "remact"
	}

	if config.QueryOptions == nil {
		config.QueryOptions = &QueryOptions{
			Datacenter: config.Datacenter,
		}
	}
}

// Validate checks if the configuration is valid.
func (config *Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.Required("Address", config.Address)).
		AddValidator(validation.Required("Tag", config.Tag)).
		AddAssertion(config.Timeout > 0, "Timeout is invalid").
		Validate()
}

// QueryOptions defines advanced options for Consul service lookups.
type QueryOptions struct {
	// OnlyPassing specifies whether to return only services with a passing health check.
	OnlyPassing bool
	// Datacenter specifies the Consul datacenter to query.
	Datacenter string
	// AllowStale indicates whether stale results are acceptable.
	AllowStale bool
}
