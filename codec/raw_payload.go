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
	"fmt"
	"reflect"

	"github.com/remactgo/remact/internal/types"
)

// RawPayload is a payload whose decoding is deferred until a handler asks for
// a concrete type.
type RawPayload struct {
	// TypeName is the wire type name announced by the sender. It may be empty.
	TypeName string
	// Data is the CBOR encoding of the payload
	Data []byte
}

// ReadAs decodes the payload into target, which must be a non-nil pointer.
//
// When the sender announced a type name, the short type name of target must
// match it. Decoding is structural and fails on unknown fields.
func (x *RawPayload) ReadAs(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrInvalidTarget
	}

	if x.TypeName != "" && !types.SameShortName(x.TypeName, types.Name(target)) {
		return fmt.Errorf("%w: got %s, want %s", ErrTypeMismatch, x.TypeName, types.Name(target))
	}

	if err := strictDecMode.Unmarshal(x.Data, target); err != nil {
		return fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}
	return nil
}

// String returns the payload description
func (x *RawPayload) String() string {
	return fmt.Sprintf("RawPayload(%s, %d bytes)", x.TypeName, len(x.Data))
}
