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

// PortState is the connection state of a proxy
type PortState int32

const (
	// PortStateUnlinked when the proxy is not linked or was never connected
	PortStateUnlinked PortState = iota
	// PortStateConnecting while the connection to the service is being set up
	PortStateConnecting
	// PortStateOk when messages can be exchanged with the service
	PortStateOk
	// PortStateDisconnected after Disconnect
	PortStateDisconnected
	// PortStateFaulted after a connection failure or AbortCommunication
	PortStateFaulted
)

// String returns the state name
func (s PortState) String() string {
	switch s {
	case PortStateUnlinked:
		return "Unlinked"
	case PortStateConnecting:
		return "Connecting"
	case PortStateOk:
		return "Ok"
	case PortStateDisconnected:
		return "Disconnected"
	case PortStateFaulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}
