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

// Package static provides an in-memory catalog. Processes sharing a Directory
// see each other's services, which makes it the catalog of choice for tests and
// single process deployments.
package static

import (
	"sort"
	"sync"

	"go.uber.org/atomic"

	"github.com/remactgo/remact/discovery"
)

// Directory is the in-memory service table shared by static providers
type Directory struct {
	mu        sync.RWMutex
	services  map[string]*discovery.Service
	reachable *atomic.Bool
}

// NewDirectory creates a Directory seeded with the given services
func NewDirectory(services ...*discovery.Service) *Directory {
	directory := &Directory{
		services:  make(map[string]*discovery.Service, len(services)),
		reachable: atomic.NewBool(true),
	}
	for _, service := range services {
		if service != nil {
			directory.services[service.Name] = service.Clone()
		}
	}
	return directory
}

// SetReachable simulates the catalog going down or coming back
func (d *Directory) SetReachable(reachable bool) {
	d.reachable.Store(reachable)
}

// Reachable reports whether the directory answers requests
func (d *Directory) Reachable() bool {
	return d.reachable.Load()
}

// Services returns a snapshot of the registered services sorted by name
func (d *Directory) Services() []*discovery.Service {
	d.mu.RLock()
	out := make([]*discovery.Service, 0, len(d.services))
	for _, service := range d.services {
		out = append(out, service.Clone())
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *Directory) put(service *discovery.Service) {
	d.mu.Lock()
	d.services[service.Name] = service.Clone()
	d.mu.Unlock()
}

func (d *Directory) remove(service *discovery.Service) {
	d.mu.Lock()
	if current, ok := d.services[service.Name]; ok && current.Equals(service) {
		delete(d.services, service.Name)
	}
	d.mu.Unlock()
}

func (d *Directory) get(name string) (*discovery.Service, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	service, ok := d.services[name]
	return service.Clone(), ok
}
