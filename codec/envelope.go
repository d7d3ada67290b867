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

// Package codec defines the wire envelope exchanged between a client port and
// a remote service, and the CBOR serializer used to encode it.
package codec

import "fmt"

// Envelope kinds. They mirror the message types of the actor package.
const (
	KindRequest      = 1
	KindResponse     = 2
	KindNotification = 3
	KindError        = 4
)

// Envelope is one message on the wire.
//
// Payload holds the CBOR encoding of the message payload and PayloadType its
// wire type name, so that the receiving side can either decode it eagerly or
// defer decoding to the handler.
type Envelope struct {
	Kind        int    `cbor:"1,keyasint"`
	ClientID    int    `cbor:"2,keyasint,omitempty"`
	RequestID   int    `cbor:"3,keyasint,omitempty"`
	Source      string `cbor:"4,keyasint,omitempty"`
	Destination string `cbor:"5,keyasint,omitempty"`
	Method      string `cbor:"6,keyasint,omitempty"`
	PayloadType string `cbor:"7,keyasint,omitempty"`
	Payload     []byte `cbor:"8,keyasint,omitempty"`
}

// String returns a short description used in traces
func (x *Envelope) String() string {
	return fmt.Sprintf("kind=%d client=%d request=%d %s -> %s/%s payload=%s",
		x.Kind, x.ClientID, x.RequestID, x.Source, x.Destination, x.Method, x.PayloadType)
}
