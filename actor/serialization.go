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
	"github.com/remactgo/remact/codec"
	"github.com/remactgo/remact/internal/types"
)

// payloadTypes holds the payload types decoded eagerly when received from another process
var payloadTypes = types.NewRegistry()

func init() {
	RegisterPayloadTypes(new(ActorInfo), new(ErrorMessage), new(ReadyMessage))
}

// RegisterPayloadTypes records payload types so that remote payloads of
// these types reach handlers already decoded, as pointers. Payloads of other
// types are delivered as *codec.RawPayload and decoded by TryConvertPayload.
func RegisterPayloadTypes(values ...any) {
	for _, value := range values {
		payloadTypes.Register(value)
	}
}

// defaultSerializer encodes payloads with the package wide registry
func defaultSerializer() codec.Serializer {
	return codec.NewCBORSerializer(payloadTypes)
}
