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

// Package address provides the canonical representation of the URI a
// service port is reachable at.
//
// An address is made of the following parts:
//
//   - Scheme: transport used to reach the service (tcp or ws)
//   - Host: network host or IP where the service is reachable
//   - Port: TCP port where the service is reachable
//   - Service: the service port name
//
// The canonical textual representation of an Address is:
//
//	<scheme>://<host>:<port>/<service>
//
// Addresses are immutable once created.
package address

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/remactgo/remact/internal/validation"
)

const (
	// SchemeTCP is the scheme of length-prefixed frames over TCP
	SchemeTCP = "tcp"
	// SchemeWS is the scheme of websocket connections
	SchemeWS = "ws"
)

// namePattern constrains service names
const namePattern = "^[a-zA-Z0-9][a-zA-Z0-9-_\\.]*$"

var (
	// ErrInvalidFormat is returned when a URI cannot be parsed
	ErrInvalidFormat = errors.New("address format is invalid")
	// ErrUnsupportedScheme is returned when the URI scheme is neither tcp nor ws
	ErrUnsupportedScheme = errors.New("address protocol is not supported")
)

// Address represents the URI of a service port
type Address struct {
	scheme  string
	host    string
	port    int
	service string
}

var _ validation.Validator = (*Address)(nil)

// New creates a new Address. New does not validate the inputs; call Validate
// to verify the resulting address.
func New(scheme, host string, port int, service string) *Address {
	return &Address{
		scheme:  strings.ToLower(scheme),
		host:    host,
		port:    port,
		service: service,
	}
}

// Scheme returns the transport scheme
func (x *Address) Scheme() string {
	return x.scheme
}

// Host returns the host
func (x *Address) Host() string {
	return x.host
}

// Port returns the port number
func (x *Address) Port() int {
	return x.port
}

// Service returns the service name
func (x *Address) Service() string {
	return x.service
}

// HostPort returns the host:port part, bracketing IPv6 literals
func (x *Address) HostPort() string {
	return net.JoinHostPort(x.host, strconv.Itoa(x.port))
}

// WithHost returns a copy of the address with another host.
func (x *Address) WithHost(host string) *Address {
	return New(x.scheme, host, x.port, x.service)
}

// WithService returns a copy of the address pointing at another service.
func (x *Address) WithService(service string) *Address {
	return New(x.scheme, x.host, x.port, service)
}

// String returns the canonical form of the address
func (x *Address) String() string {
	if x == nil {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(x.scheme) + len(x.host) + len(x.service) + 12)
	builder.WriteString(x.scheme)
	builder.WriteString("://")
	builder.WriteString(x.HostPort())
	builder.WriteByte('/')
	builder.WriteString(x.service)
	return builder.String()
}

// Equals reports whether x and y represent the same address.
// Scheme and host are compared case-insensitively.
func (x *Address) Equals(y *Address) bool {
	if x == nil || y == nil {
		return false
	}
	return strings.EqualFold(x.scheme, y.scheme) &&
		strings.EqualFold(x.host, y.host) &&
		x.port == y.port &&
		x.service == y.service
}

// Validate checks whether the Address is well-formed.
func (x *Address) Validate() error {
	if x == nil {
		return ErrInvalidFormat
	}
	customErr := errors.New("service name must contain only word characters (i.e. [a-zA-Z0-9] plus non-leading '-', '_' or '.')")
	return validation.
		New(validation.FailFast()).
		AddAssertion(x.scheme == SchemeTCP || x.scheme == SchemeWS, ErrUnsupportedScheme.Error()).
		AddValidator(validation.HostPort(x.HostPort())).
		AddValidator(validation.Required("service", x.service)).
		AddAssertion(len(x.service) <= 255, "service name is too long. Maximum length is 255").
		AddValidator(validation.Matches(namePattern, x.service, customErr)).
		Validate()
}

// Parse parses a canonical URI string into an Address.
//
// Accepted format:
//
//	<scheme>://<host>:<port>/<service>
//
// IPv6 hosts must be bracketed. Parse does not validate the service name;
// call Validate on the result.
func Parse(uri string) (*Address, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("address is required")
	}

	schemePart, rest, ok := strings.Cut(uri, "://")
	if !ok || strings.Contains(rest, "://") {
		return nil, ErrInvalidFormat
	}

	schemePart = strings.ToLower(schemePart)
	if schemePart != SchemeTCP && schemePart != SchemeWS {
		return nil, ErrUnsupportedScheme
	}

	hostPort, service, ok := strings.Cut(rest, "/")
	if !ok || service == "" || strings.Contains(service, "/") {
		return nil, ErrInvalidFormat
	}

	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return nil, errors.Join(ErrInvalidFormat, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, errors.Join(ErrInvalidFormat, err)
	}

	return New(schemePart, host, port, service), nil
}

// ServiceOf returns the service name of uri, or an empty string when uri cannot be parsed
func ServiceOf(uri string) string {
	addr, err := Parse(uri)
	if err != nil {
		return ""
	}
	return addr.Service()
}
