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

import "github.com/remactgo/remact/codec"

// MessageType tells how a message relates to a request
type MessageType int

const (
	// MessageTypeRequest expects exactly one response
	MessageTypeRequest MessageType = iota + 1
	// MessageTypeResponse answers a request and carries its request id
	MessageTypeResponse
	// MessageTypeNotification expects no answer. Its request id is 0.
	MessageTypeNotification
	// MessageTypeError carries an *ErrorMessage, either as the response to a request or on its own
	MessageTypeError
)

// String returns the message type name
func (t MessageType) String() string {
	switch t {
	case MessageTypeRequest:
		return "Request"
	case MessageTypeResponse:
		return "Response"
	case MessageTypeNotification:
		return "Notification"
	case MessageTypeError:
		return "Error"
	default:
		return "Unknown"
	}
}

func (t MessageType) kind() int {
	switch t {
	case MessageTypeRequest:
		return codec.KindRequest
	case MessageTypeResponse:
		return codec.KindResponse
	case MessageTypeError:
		return codec.KindError
	default:
		return codec.KindNotification
	}
}

func messageTypeOf(kind int) MessageType {
	switch kind {
	case codec.KindRequest:
		return MessageTypeRequest
	case codec.KindResponse:
		return MessageTypeResponse
	case codec.KindError:
		return MessageTypeError
	default:
		return MessageTypeNotification
	}
}
