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
	"sync"

	"github.com/remactgo/remact/remote"
)

// Configurator creates the transports of the ports.
// *remote.Configurator implements it.
type Configurator interface {
	// DoServiceConfiguration creates the transport of a service port
	DoServiceConfiguration(serviceName string) (remote.ServiceTransport, error)
	// DoClientConfiguration creates the transport of a proxy connecting to serviceURI
	DoClientConfiguration(serviceURI string) (remote.ClientTransport, error)
}

var _ Configurator = (*remote.Configurator)(nil)

var (
	defaultConfiguratorOnce sync.Once
	defaultConfigurator     Configurator
)

// DefaultConfigurator returns the configurator used by ports created without
// WithConfigurator: tcp transports bound to every interface on a free port.
func DefaultConfigurator() Configurator {
	defaultConfiguratorOnce.Do(func() {
		defaultConfigurator = remote.NewConfigurator()
	})
	return defaultConfigurator
}
