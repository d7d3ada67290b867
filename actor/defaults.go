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

import "time"

const (
	// RequestIDBaseline is the request id a port restarts from after connecting
	// or after reaching MaxRequestID. Ids up to the baseline are never used by requests.
	RequestIDBaseline = 10
	// MaxRequestID is the last request id used before wrapping to RequestIDBaseline
	MaxRequestID = 1<<31 - 1
	// DefaultTimeout is the default channel test timeout of a port
	DefaultTimeout = 60 * time.Second
	// DisconnectGrace bounds sending the disconnect request of PortProxy.Disconnect.
	// The service's answer is not awaited.
	DisconnectGrace = 30 * time.Millisecond
	// DefaultCatalogTick is the period of the catalog client timer
	DefaultCatalogTick = time.Second
	// DefaultReannounceInterval is how often registered services are announced again
	DefaultReannounceInterval = 20 * time.Second
	// DefaultMaxAnnounceBackoff caps the delay between failed announcements
	DefaultMaxAnnounceBackoff = 30 * time.Second
	// DefaultShutdownTimeout bounds CatalogClient.Stop
	DefaultShutdownTimeout = 10 * time.Second
)
