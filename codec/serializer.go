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

package codec

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/remactgo/remact/internal/types"
)

// Serializer encodes envelopes and payloads
type Serializer interface {
	// Marshal encodes an envelope
	Marshal(envelope *Envelope) ([]byte, error)
	// Unmarshal decodes an envelope
	Unmarshal(data []byte) (*Envelope, error)
	// EncodePayload returns the wire type name and encoding of payload
	EncodePayload(payload any) (string, []byte, error)
	// DecodePayload decodes a payload. Registered types are decoded into a
	// pointer to a new value, other types yield a *RawPayload.
	DecodePayload(typeName string, data []byte) (any, error)
}

var (
	// ErrTypeMismatch is returned when a deferred payload is read as another type
	ErrTypeMismatch = errors.New("codec: payload type mismatch")
	// ErrInvalidTarget is returned when reading a deferred payload into a non pointer
	ErrInvalidTarget = errors.New("codec: target must be a non-nil pointer")
)

var (
	encMode cbor.EncMode
	// decMode is used for envelopes and registered payloads
	decMode cbor.DecMode
	// strictDecMode is used for structural decoding of deferred payloads
	strictDecMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = (cbor.EncOptions{Time: cbor.TimeRFC3339Nano}).EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
	if strictDecMode, err = (cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}).DecMode(); err != nil {
		panic(err)
	}
}

// CBORSerializer implements Serializer with CBOR
type CBORSerializer struct {
	registry types.Registry
}

var _ Serializer = (*CBORSerializer)(nil)

// NewCBORSerializer creates a CBOR serializer. Payloads whose type is in the
// registry are decoded eagerly.
func NewCBORSerializer(registry types.Registry) *CBORSerializer {
	if registry == nil {
		registry = types.NewRegistry()
	}
	return &CBORSerializer{registry: registry}
}

// Registry returns the payload types registry
func (s *CBORSerializer) Registry() types.Registry {
	return s.registry
}

// Marshal encodes an envelope
func (s *CBORSerializer) Marshal(envelope *Envelope) ([]byte, error) {
	if envelope == nil {
		return nil, errors.New("codec: nil envelope")
	}
	return encMode.Marshal(envelope)
}

// Unmarshal decodes an envelope
func (s *CBORSerializer) Unmarshal(data []byte) (*Envelope, error) {
	envelope := new(Envelope)
	if err := decMode.Unmarshal(data, envelope); err != nil {
		return nil, fmt.Errorf("codec: invalid envelope: %w", err)
	}
	return envelope, nil
}

// EncodePayload returns the wire type name and CBOR encoding of payload
func (s *CBORSerializer) EncodePayload(payload any) (string, []byte, error) {
	switch x := payload.(type) {
	case nil:
		return "", nil, nil
	case *RawPayload:
		// forwarded without being read
		return x.TypeName, x.Data, nil
	}

	data, err := encMode.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("codec: failed to encode payload %s: %w", types.Name(payload), err)
	}
	return types.Name(payload), data, nil
}

// DecodePayload decodes a payload
func (s *CBORSerializer) DecodePayload(typeName string, data []byte) (any, error) {
	if typeName == "" && len(data) == 0 {
		return nil, nil
	}

	if rtype, ok := s.registry.TypeOf(typeName); ok {
		value := reflect.New(rtype)
		if err := decMode.Unmarshal(data, value.Interface()); err != nil {
			return nil, fmt.Errorf("codec: failed to decode payload %s: %w", typeName, err)
		}
		return value.Interface(), nil
	}

	return &RawPayload{TypeName: typeName, Data: data}, nil
}
