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

package nats

import (
	"time"

	"github.com/remactgo/remact/internal/validation"
)

// Config represents the nats provider configuration
type Config struct {
	// NatsServer defines the nats server in the format nats://host:port
	NatsServer string
	// NatsSubject is the subject prefix lookups are published under.
	// Default: "remact.catalog"
	NatsSubject string
	// Timeout bounds a lookup. Default: 1s
	Timeout time.Duration
	// GatherWindow is how long a lookup keeps collecting the answers of other
	// instances once the first answer arrived. Default: 20ms
	GatherWindow time.Duration
	// MaxConnectRetries bounds the initial connection attempts. Default: 5
	MaxConnectRetries int
}

// Sanitize sets the defaults
func (x *Config) Sanitize() {
	if x.NatsSubject == "" {
		x.NatsSubject = "remact.catalog"
	}
	if x.Timeout <= 0 {
		x.Timeout = time.Second
	}
	if x.GatherWindow <= 0 {
		x.GatherWindow = 20 * time.Millisecond
	}
	if x.MaxConnectRetries <= 0 {
		x.MaxConnectRetries = 5
	}
}

// Validate checks whether the given discovery configuration is valid
func (x *Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.Required("NatsServer", x.NatsServer)).
		AddValidator(validation.Required("NatsSubject", x.NatsSubject)).
		AddValidator(validation.Matches(`^[a-zA-Z0-9_\-]+(\.[a-zA-Z0-9_\-]+)*$`, x.NatsSubject, nil)).
		Validate()
}
