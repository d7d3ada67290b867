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
	"slices"
	"strings"
	"sync"

	"github.com/remactgo/remact/codec"
	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/internal/errorschain"
	"github.com/remactgo/remact/internal/ticker"
	"github.com/remactgo/remact/internal/validation"
	"github.com/remactgo/remact/log"
	"github.com/remactgo/remact/remote"
)

const serviceNamePattern = `^[a-zA-Z0-9][a-zA-Z0-9._\-]*$`

// PortService is a named port serving any number of clients.
//
// Every connected client is represented by a client stub carrying its
// identity, the id the service assigned to it and its session state.
// Messages sent back to a client go through its stub.
type PortService struct {
	*Port
	cfg *portConfig

	mu      sync.Mutex
	clients map[int]*Port
	// client ids by identity, kept for the lifetime of the service
	identities   map[string]int
	lastClientID int
	transport    remote.ServiceTransport
	stopSweep    func()
}

var (
	_ ConnectManaged        = (*PortService)(nil)
	_ remote.SessionHandler = (*PortService)(nil)
)

// NewPortService creates a closed service port. The name is part of the
// service URI and must be a valid URI path segment.
func NewPortService(name string, opts ...Option) (*PortService, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, gerrors.ErrNameRequired
	}

	err := validation.New(validation.FailFast()).
		AddValidator(validation.Matches(serviceNamePattern, name,
			fmt.Errorf("%w: invalid service name %q", gerrors.ErrInvalidArgument, name))).
		Validate()
	if err != nil {
		return nil, err
	}

	cfg := newPortConfig(opts...)
	s := &PortService{
		Port:       newPort(name, true, cfg),
		cfg:        cfg,
		clients:    make(map[int]*Port),
		identities: make(map[string]int),
	}
	s.system = s.handleSystem
	s.onReceive = s.received
	return s, nil
}

// Open binds the service to the loop of ctx and starts accepting clients.
// With a configurator the service is also served remotely, and announced
// to the catalog when one is set.
func (s *PortService) Open(ctx context.Context) error {
	if err := s.bind(ctx); err != nil {
		return err
	}
	if s.IsOpen() {
		return nil
	}

	if s.cfg.configurator != nil {
		transport, err := s.cfg.configurator.DoServiceConfiguration(s.Name())
		if err != nil {
			return fmt.Errorf("failed to configure service %s: %w", s.Name(), err)
		}
		if err := transport.Serve(s); err != nil {
			_ = transport.Close()
			return fmt.Errorf("failed to serve %s: %w", s.Name(), err)
		}

		s.setURI(transport.ServiceURI(), transport.Addresses())
		s.mu.Lock()
		s.transport = transport
		s.mu.Unlock()
	}

	s.open.Store(true)
	s.touch()

	stop := ticker.Every(s.cfg.timeout, s.dropIdleClients)
	s.mu.Lock()
	s.stopSweep = stop
	s.mu.Unlock()

	if s.cfg.catalog != nil && s.URI() != "" {
		s.cfg.catalog.AddService(s)
	}
	log.Trace(s.logger, log.MarkInfo, "%s open %s", s, s.URI())
	return nil
}

// Disconnect closes the service and forgets its clients. The client ids
// are kept so that returning clients get the same id.
func (s *PortService) Disconnect() {
	s.mu.Lock()
	stop := s.stopSweep
	s.stopSweep = nil
	transport := s.transport
	s.transport = nil
	clients := s.clients
	s.clients = make(map[int]*Port)
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if s.cfg.catalog != nil {
		s.cfg.catalog.RemoveService(s)
	}
	if transport != nil {
		if err := transport.Close(); err != nil {
			log.Trace(s.logger, log.MarkWarning, "%s: %v", s, err)
		}
	}
	for _, stub := range clients {
		s.forget(stub)
	}

	s.Port.Disconnect()
	log.Trace(s.logger, log.MarkInfo, "%s closed", s)
}

// Close is Disconnect
func (s *PortService) Close() {
	s.Disconnect()
}

// Notify sends a notification to every connected client. ctx must carry
// the loop of the service unless it is multithreaded.
func (s *PortService) Notify(ctx context.Context, method string, payload any) error {
	if err := s.bind(ctx); err != nil {
		return err
	}
	if !s.IsOpen() {
		return gerrors.ErrServiceNotRunning
	}

	chain := errorschain.New(errorschain.ReturnAll())
	for _, stub := range s.stubs() {
		msg := newNotification(s.Port, stub, method, payload)
		log.Trace(s.logger, log.MarkSend, "%s %s", s, msg)
		s.recordSent(ctx, msg)
		if err := stub.send(ctx, msg); err != nil {
			chain.AddError(fmt.Errorf("client %d: %w", stub.ClientID(), err))
		}
	}
	return chain.Error()
}

// Clients returns the identities of the connected clients ordered by client id
func (s *PortService) Clients() []*ActorInfo {
	stubs := s.stubs()
	infos := make([]*ActorInfo, 0, len(stubs))
	for _, stub := range stubs {
		infos = append(infos, stub.Info())
	}
	return infos
}

// ClientCount returns the number of connected clients
func (s *PortService) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ClientInfo returns the identity of the connected client with the given id
func (s *PortService) ClientInfo(clientID int) (*ActorInfo, bool) {
	stub := s.clientStub(clientID)
	if stub == nil {
		return nil, false
	}
	return stub.Info(), true
}

// OnEnvelope implements remote.SessionHandler
func (s *PortService) OnEnvelope(session remote.Session, envelope *codec.Envelope) {
	payload, err := s.serializer.DecodePayload(envelope.PayloadType, envelope.Payload)
	if err != nil {
		s.replyError(session, envelope, NewErrorMessage(ErrorCodeArgumentError,
			"%s could not decode %s: %v", s.Name(), envelope.PayloadType, err))
		return
	}

	var stub *Port
	if info, ok := payload.(*ActorInfo); ok && envelope.Kind == codec.KindRequest && info.Usage == ClientConnectRequest {
		stub = newStub(info, &sessionSink{session: session, service: s.Name(), serializer: s.serializer}, s.logger, s.serializer)
	} else {
		stub = s.clientStub(envelope.ClientID)
		if stub == nil || !boundTo(stub, session) {
			s.replyError(session, envelope, NewErrorMessage(ErrorCodeClientIDNotFoundOnService,
				"%s has no client %d on session %s", s.Name(), envelope.ClientID, session.ID()))
			return
		}
	}

	s.PostInput(messageFrom(envelope, payload, stub, s.Port))
}

// OnSessionClosed implements remote.SessionHandler
func (s *PortService) OnSessionClosed(session remote.Session, err error) {
	s.mu.Lock()
	var closed []*Port
	for id, stub := range s.clients {
		if boundTo(stub, session) {
			delete(s.clients, id)
			closed = append(closed, stub)
		}
	}
	s.mu.Unlock()

	for _, stub := range closed {
		stub.Disconnect()
		log.Trace(s.logger, log.MarkConnect, "%s lost client %d: %v", s, stub.ClientID(), err)
	}
}

// handleSystem answers the connection management requests and the channel tests
func (s *PortService) handleSystem(ctx context.Context, msg *Message) *Message {
	if msg.method != "" || !msg.IsRequest() {
		return msg
	}

	switch payload := msg.payload.(type) {
	case *ActorInfo:
		switch payload.Usage {
		case ClientConnectRequest:
			s.acceptClient(ctx, msg, payload)
			return nil
		case ClientDisconnectRequest:
			s.releaseClient(ctx, msg)
			return nil
		}
	case *ReadyMessage:
		if err := msg.SendResponse(ctx, new(ReadyMessage)); err != nil {
			log.Trace(s.logger, log.MarkWarning, "%s could not answer %s: %v", s, msg, err)
		}
		return nil
	}
	return msg
}

// acceptClient assigns the client id, the same one as last time when the
// client connected before
func (s *PortService) acceptClient(ctx context.Context, msg *Message, info *ActorInfo) {
	stub := msg.source
	if stub == nil {
		return
	}

	s.mu.Lock()
	key := info.identity()
	id, known := s.identities[key]
	if !known {
		s.lastClientID++
		id = s.lastClientID
		s.identities[key] = id
	}
	s.clients[id] = stub
	s.mu.Unlock()

	stub.setClientID(id)
	stub.touch()
	if s.cfg.sessionFactory != nil {
		stub.SetContext(s.cfg.sessionFactory(info.Clone()))
	}

	response := s.Info().WithUsage(ServiceConnectResponse)
	response.ClientID = id
	msg.clientID = id
	if err := msg.SendResponse(ctx, response); err != nil {
		log.Trace(s.logger, log.MarkWarning, "%s could not accept %s: %v", s, info, err)
		return
	}
	log.Trace(s.logger, log.MarkConnect, "%s accepted %s as client %d", s, info.Name, id)
}

func (s *PortService) releaseClient(ctx context.Context, msg *Message) {
	s.mu.Lock()
	if stub, ok := s.clients[msg.clientID]; ok && stub == msg.source {
		delete(s.clients, msg.clientID)
	}
	s.mu.Unlock()

	log.Trace(s.logger, log.MarkConnect, "%s released client %d", s, msg.clientID)
	if err := msg.SendResponse(ctx, s.Info().WithUsage(ServiceDisconnectResponse)); err != nil {
		log.Trace(s.logger, log.MarkConnect, "%s did not say goodbye to client %d: %v", s, msg.clientID, err)
	}
}

// received runs first for every message dispatched to the service
func (s *PortService) received(msg *Message) {
	if msg.source != nil && msg.source.stub {
		msg.source.touch()
	}
}

// dropIdleClients forgets the clients silent for twice the timeout
func (s *PortService) dropIdleClients() {
	limit := 2 * s.cfg.timeout

	s.mu.Lock()
	var idle []*Port
	for id, stub := range s.clients {
		if stub.idleSince() > limit {
			delete(s.clients, id)
			idle = append(idle, stub)
		}
	}
	s.mu.Unlock()

	for _, stub := range idle {
		log.Trace(s.logger, log.MarkWarning, "%s dropped client %d silent for more than %s", s, stub.ClientID(), limit)
		if sink, ok := stub.sink().(*sessionSink); ok {
			_ = sink.session.Close()
		}
		s.forget(stub)
	}
}

// forget severs a remote client stub. Local stubs belong to their proxy.
func (s *PortService) forget(stub *Port) {
	if _, ok := stub.sink().(*sessionSink); ok {
		stub.Disconnect()
	}
}

func (s *PortService) clientStub(clientID int) *Port {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[clientID]
}

// stubs returns the client stubs ordered by client id
func (s *PortService) stubs() []*Port {
	s.mu.Lock()
	ids := make([]int, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	stubs := make([]*Port, 0, len(ids))
	for _, id := range ids {
		stubs = append(stubs, s.clients[id])
	}
	s.mu.Unlock()
	return stubs
}

// replyError answers a remote request that cannot reach the service loop
func (s *PortService) replyError(session remote.Session, envelope *codec.Envelope, errMsg *ErrorMessage) {
	log.Trace(s.logger, log.MarkWarning, "%s %s: %v", s, envelope, errMsg)
	if envelope.Kind != codec.KindRequest {
		return
	}

	msg := &Message{
		messageType: MessageTypeError,
		payload:     errMsg,
		requestID:   envelope.RequestID,
		method:      envelope.Method,
	}
	reply, err := toEnvelope(s.serializer, msg, envelope.ClientID, s.Name(), envelope.Source)
	if err == nil {
		err = session.SendToClient(context.Background(), reply)
	}
	if err != nil {
		log.Trace(s.logger, log.MarkWarning, "%s could not reject %s: %v", s, envelope, err)
	}
}
