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

// Package discovery defines the catalog contract used by the actor runtime to
// announce services and to resolve them by name.
//
// Registering a service maps to the ServiceEnable request of the catalog
// protocol, deregistering to ServiceDisable and a lookup to ServiceAddress.
package discovery

import "context"

const (
	// ProviderStatic is the id of the in-memory provider
	ProviderStatic = "static"
	// ProviderConsul is the id of the Consul provider
	ProviderConsul = "consul"
	// ProviderNats is the id of the NATS provider
	ProviderNats = "nats"
	// ProviderEtcd is the id of the etcd provider
	ProviderEtcd = "etcd"
	// ProviderCatalog is the id of the provider speaking to a catalog service port
	ProviderCatalog = "catalog"
)

// Provider announces services to a catalog and resolves them by name.
// Implementations must be safe for concurrent use.
type Provider interface {
	// ID returns the discovery name
	ID() string
	// Initialize connects the provider to its catalog.
	Initialize(ctx context.Context) error
	// Register announces the given service. Registering a known service refreshes it.
	Register(ctx context.Context, service *Service) error
	// Deregister removes the given service from the catalog.
	Deregister(ctx context.Context, service *Service) error
	// Lookup returns the service registered under name or ErrServiceNotFound.
	Lookup(ctx context.Context, name string) (*Service, error)
	// Close releases the catalog connection.
	Close() error
}
