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

package discovery

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/remactgo/remact/internal/validation"
)

// Service is the identity snapshot of a service port as known by a catalog
type Service struct {
	// Name is the service port name used for lookups
	Name string `cbor:"1,keyasint"`
	// AppName is the name of the application hosting the service
	AppName string `cbor:"2,keyasint,omitempty"`
	// AppInstance distinguishes several instances of the same application on one host
	AppInstance int `cbor:"3,keyasint,omitempty"`
	// ProcessID of the hosting process
	ProcessID int `cbor:"4,keyasint,omitempty"`
	// HostName of the hosting machine
	HostName string `cbor:"5,keyasint,omitempty"`
	// URI is the service URI, built from the host name
	URI string `cbor:"6,keyasint"`
	// Addresses are alternative URIs, tried in order when URI cannot be reached
	Addresses []string `cbor:"7,keyasint,omitempty"`
	// TimeoutSeconds is the channel test period of the service
	TimeoutSeconds int `cbor:"8,keyasint,omitempty"`
}

var _ validation.Validator = (*Service)(nil)

// Validate checks the service has a name and a URI
func (x *Service) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.Required("Name", x.Name)).
		AddValidator(validation.Required("URI", x.URI)).
		AddAssertion(x.TimeoutSeconds >= 0, "TimeoutSeconds is invalid").
		Validate()
}

// Clone returns a deep copy of the service
func (x *Service) Clone() *Service {
	if x == nil {
		return nil
	}
	clone := *x
	clone.Addresses = slices.Clone(x.Addresses)
	return &clone
}

// Equals reports whether two snapshots describe the same service instance
func (x *Service) Equals(y *Service) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.Name == y.Name &&
		x.URI == y.URI &&
		x.AppInstance == y.AppInstance &&
		strings.EqualFold(x.HostName, y.HostName)
}

// String returns a short description used in traces
func (x *Service) String() string {
	return fmt.Sprintf("%s on %s (%s/%d, pid %d)", x.Name, x.URI, x.AppName, x.AppInstance, x.ProcessID)
}

// MarshalBinary encodes the service with CBOR
func (x *Service) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(x)
}

// UnmarshalBinary decodes a CBOR encoded service
func (x *Service) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, x)
}

// Metadata keys used by catalogs storing string maps
const (
	metaAppName     = "remact-app"
	metaAppInstance = "remact-instance"
	metaProcessID   = "remact-pid"
	metaHostName    = "remact-host"
	metaURI         = "remact-uri"
	metaAddresses   = "remact-addresses"
	metaTimeout     = "remact-timeout"
)

// Meta flattens the service into a string map
func (x *Service) Meta() map[string]string {
	return map[string]string{
		metaAppName:     x.AppName,
		metaAppInstance: strconv.Itoa(x.AppInstance),
		metaProcessID:   strconv.Itoa(x.ProcessID),
		metaHostName:    x.HostName,
		metaURI:         x.URI,
		metaAddresses:   strings.Join(x.Addresses, ","),
		metaTimeout:     strconv.Itoa(x.TimeoutSeconds),
	}
}

// ServiceFromMeta rebuilds a service from a map produced by Meta
func ServiceFromMeta(name string, meta map[string]string) (*Service, error) {
	service := &Service{
		Name:     name,
		AppName:  meta[metaAppName],
		HostName: meta[metaHostName],
		URI:      meta[metaURI],
	}

	var err error
	if service.AppInstance, err = atoi(meta[metaAppInstance]); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", metaAppInstance, err)
	}
	if service.ProcessID, err = atoi(meta[metaProcessID]); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", metaProcessID, err)
	}
	if service.TimeoutSeconds, err = atoi(meta[metaTimeout]); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", metaTimeout, err)
	}
	if addresses := meta[metaAddresses]; addresses != "" {
		service.Addresses = strings.Split(addresses, ",")
	}

	if err := service.Validate(); err != nil {
		return nil, err
	}
	return service, nil
}

func atoi(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
