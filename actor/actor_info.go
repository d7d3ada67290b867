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
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/remactgo/remact/discovery"
)

// Usage tells what an ActorInfo is sent for
type Usage int

const (
	// UsageUndefined is the zero value
	UsageUndefined Usage = iota
	// ClientConnectRequest is sent by a client to open a connection
	ClientConnectRequest
	// ServiceConnectResponse is the answer of the service, carrying the client id
	ServiceConnectResponse
	// ClientDisconnectRequest is sent by a client before it disconnects
	ClientDisconnectRequest
	// ServiceDisconnectResponse is the answer to ClientDisconnectRequest
	ServiceDisconnectResponse
	// ServiceEnableRequest announces a service to the catalog
	ServiceEnableRequest
	// ServiceEnableResponse is the answer of the catalog
	ServiceEnableResponse
	// ServiceDisableRequest removes a service from the catalog
	ServiceDisableRequest
	// ServiceDisableResponse is the answer of the catalog
	ServiceDisableResponse
	// ServiceAddressRequest asks the catalog for the address of a service
	ServiceAddressRequest
	// ServiceAddressResponse carries the address of a service
	ServiceAddressResponse
)

// String returns the usage name
func (u Usage) String() string {
	switch u {
	case ClientConnectRequest:
		return "ClientConnectRequest"
	case ServiceConnectResponse:
		return "ServiceConnectResponse"
	case ClientDisconnectRequest:
		return "ClientDisconnectRequest"
	case ServiceDisconnectResponse:
		return "ServiceDisconnectResponse"
	case ServiceEnableRequest:
		return "ServiceEnableRequest"
	case ServiceEnableResponse:
		return "ServiceEnableResponse"
	case ServiceDisableRequest:
		return "ServiceDisableRequest"
	case ServiceDisableResponse:
		return "ServiceDisableResponse"
	case ServiceAddressRequest:
		return "ServiceAddressRequest"
	case ServiceAddressResponse:
		return "ServiceAddressResponse"
	default:
		return "Undefined"
	}
}

// ActorInfo is the identity snapshot of a port exchanged during connect,
// disconnect and catalog requests.
type ActorInfo struct {
	Usage          Usage    `cbor:"1,keyasint"`
	Name           string   `cbor:"2,keyasint"`
	AppName        string   `cbor:"3,keyasint,omitempty"`
	AppInstance    int      `cbor:"4,keyasint,omitempty"`
	ProcessID      int      `cbor:"5,keyasint,omitempty"`
	HostName       string   `cbor:"6,keyasint,omitempty"`
	URI            string   `cbor:"7,keyasint,omitempty"`
	Addresses      []string `cbor:"8,keyasint,omitempty"`
	IsServiceName  bool     `cbor:"9,keyasint,omitempty"`
	TimeoutSeconds int      `cbor:"10,keyasint,omitempty"`
	ClientID       int      `cbor:"11,keyasint,omitempty"`
}

// Clone returns a copy of the snapshot
func (x *ActorInfo) Clone() *ActorInfo {
	if x == nil {
		return nil
	}
	clone := *x
	clone.Addresses = slices.Clone(x.Addresses)
	return &clone
}

// WithUsage returns a copy of the snapshot with the given usage
func (x *ActorInfo) WithUsage(usage Usage) *ActorInfo {
	clone := x.Clone()
	clone.Usage = usage
	return clone
}

// Timeout returns TimeoutSeconds as a duration
func (x *ActorInfo) Timeout() time.Duration {
	return time.Duration(x.TimeoutSeconds) * time.Second
}

// SameIdentity reports whether both snapshots describe the same logical
// port: same name, same application instance, same host.
func (x *ActorInfo) SameIdentity(y *ActorInfo) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.identity() == y.identity()
}

func (x *ActorInfo) identity() string {
	return strings.ToLower(x.Name) + "|" + strconv.Itoa(x.AppInstance) + "|" + strings.ToLower(x.HostName)
}

// String returns a readable description
func (x *ActorInfo) String() string {
	if x == nil {
		return "ActorInfo(nil)"
	}
	return fmt.Sprintf("ActorInfo(%s, %s/%d@%s, clientID=%d, uri=%s)",
		x.Usage, x.Name, x.AppInstance, x.HostName, x.ClientID, x.URI)
}

// ToService converts the snapshot into a catalog entry
func (x *ActorInfo) ToService() *discovery.Service {
	return &discovery.Service{
		Name:           x.Name,
		AppName:        x.AppName,
		AppInstance:    x.AppInstance,
		ProcessID:      x.ProcessID,
		HostName:       x.HostName,
		URI:            x.URI,
		Addresses:      slices.Clone(x.Addresses),
		TimeoutSeconds: x.TimeoutSeconds,
	}
}

// ActorInfoFromService converts a catalog entry into a snapshot
func ActorInfoFromService(service *discovery.Service, usage Usage) *ActorInfo {
	return &ActorInfo{
		Usage:          usage,
		Name:           service.Name,
		AppName:        service.AppName,
		AppInstance:    service.AppInstance,
		ProcessID:      service.ProcessID,
		HostName:       service.HostName,
		URI:            service.URI,
		Addresses:      slices.Clone(service.Addresses),
		IsServiceName:  true,
		TimeoutSeconds: service.TimeoutSeconds,
	}
}

// ReadyMessage is the payload of channel tests and of the response sent
// automatically to a request nobody answered.
type ReadyMessage struct{}

// String returns the message name
func (ReadyMessage) String() string {
	return "ReadyMessage"
}
