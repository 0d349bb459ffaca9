/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/firefly-oss/bayoukv/internal/flyerrors"
)

// LocalNetwork is an in-process Client/Server pair keyed by address,
// used by replica and frontend tests to exercise gossip and RPC logic
// without opening real sockets. It still round-trips every payload
// through JSON, so codec bugs surface the same way they would over
// TCP.
type LocalNetwork struct {
	mu      sync.RWMutex
	servers map[string]*LocalServer
}

// NewLocalNetwork returns an empty LocalNetwork.
func NewLocalNetwork() *LocalNetwork {
	return &LocalNetwork{servers: make(map[string]*LocalServer)}
}

// NewServer registers and returns a LocalServer listening at addr on
// this network.
func (n *LocalNetwork) NewServer(addr string) *LocalServer {
	s := &LocalServer{handlers: make(map[Call]Handler)}
	n.mu.Lock()
	n.servers[addr] = s
	n.mu.Unlock()
	return s
}

// Remove deregisters the server at addr, simulating a replica going
// fully unreachable (used by tests modeling partitions).
func (n *LocalNetwork) Remove(addr string) {
	n.mu.Lock()
	delete(n.servers, addr)
	n.mu.Unlock()
}

// Client returns a Client bound to this network.
func (n *LocalNetwork) Client() Client {
	return &localClient{network: n}
}

type localClient struct {
	network *LocalNetwork
}

func (c *localClient) Invoke(ctx context.Context, addr string, req Request, reply interface{}) error {
	c.network.mu.RLock()
	server, ok := c.network.servers[addr]
	c.network.mu.RUnlock()
	if !ok {
		return flyerrors.TransportFailure(fmt.Errorf("no server at %s", addr))
	}

	payloadBytes, err := json.Marshal(req.Payload)
	if err != nil {
		return flyerrors.TransportFailure(err)
	}

	server.mu.RLock()
	h, ok := server.handlers[req.Call]
	server.mu.RUnlock()
	if !ok {
		return flyerrors.TransportFailure(fmt.Errorf("unknown call %q", req.Call))
	}

	result, err := h(ctx, payloadBytes)
	if err != nil {
		return fromWireError(toWireError(err))
	}
	if reply == nil || result == nil {
		return nil
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return flyerrors.TransportFailure(err)
	}
	return json.Unmarshal(resultBytes, reply)
}

// LocalServer is the callee side of a LocalNetwork.
type LocalServer struct {
	mu       sync.RWMutex
	handlers map[Call]Handler
}

// Handle implements Server.
func (s *LocalServer) Handle(call Call, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[call] = h
}

// ListenAndServe is a no-op for LocalServer; dispatch happens directly
// through LocalNetwork.Invoke.
func (s *LocalServer) ListenAndServe(addr string) error { return nil }

// Close is a no-op for LocalServer.
func (s *LocalServer) Close() error { return nil }
