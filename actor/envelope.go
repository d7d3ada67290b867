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
	"context"
	"fmt"

	"github.com/remactgo/remact/codec"
	"github.com/remactgo/remact/remote"
)

// toEnvelope encodes msg for the wire
func toEnvelope(serializer codec.Serializer, msg *Message, clientID int, source, destination string) (*codec.Envelope, error) {
	typeName, data, err := serializer.EncodePayload(msg.payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode the payload of %s: %w", msg, err)
	}
	return &codec.Envelope{
		Kind:        msg.messageType.kind(),
		ClientID:    clientID,
		RequestID:   msg.requestID,
		Source:      source,
		Destination: destination,
		Method:      msg.method,
		PayloadType: typeName,
		Payload:     data,
	}, nil
}

// fromEnvelope decodes an envelope received from source for destination
func fromEnvelope(serializer codec.Serializer, envelope *codec.Envelope, source, destination *Port) (*Message, error) {
	payload, err := serializer.DecodePayload(envelope.PayloadType, envelope.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", envelope.PayloadType, err)
	}
	return messageFrom(envelope, payload, source, destination), nil
}

func messageFrom(envelope *codec.Envelope, payload any, source, destination *Port) *Message {
	return &Message{
		messageType: messageTypeOf(envelope.Kind),
		payload:     payload,
		clientID:    envelope.ClientID,
		requestID:   envelope.RequestID,
		source:      source,
		destination: destination,
		method:      envelope.Method,
	}
}

// sessionSink forwards the messages a service sends to a remote client
type sessionSink struct {
	session    remote.Session
	service    string
	serializer codec.Serializer
}

var _ messageSink = (*sessionSink)(nil)

// boundTo returns true when stub forwards to session
func boundTo(stub *Port, session remote.Session) bool {
	sink, ok := stub.sink().(*sessionSink)
	return ok && sink.session.ID() == session.ID()
}

func (s *sessionSink) deliver(ctx context.Context, msg *Message) error {
	var (
		clientID    = msg.clientID
		destination string
	)
	if msg.destination != nil {
		clientID = msg.destination.ClientID()
		destination = msg.destination.Name()
	}

	envelope, err := toEnvelope(s.serializer, msg, clientID, s.service, destination)
	if err != nil {
		return err
	}
	return s.session.SendToClient(ctx, envelope)
}

// serviceSink forwards the messages a proxy sends to its remote service
type serviceSink struct {
	transport  remote.ClientTransport
	client     *Port
	service    string
	serializer codec.Serializer
}

var _ messageSink = (*serviceSink)(nil)

func (s *serviceSink) deliver(ctx context.Context, msg *Message) error {
	clientID := msg.clientID
	if clientID == 0 {
		clientID = s.client.ClientID()
	}

	envelope, err := toEnvelope(s.serializer, msg, clientID, s.client.Name(), s.service)
	if err != nil {
		return err
	}
	return s.transport.SendToService(ctx, envelope)
}
