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

/*
Package transport abstracts bayoukv's RPC surface as request/reply
with typed call failures (spec.md §2, §4.6 "Transport (abstract)"),
so replicas and frontend sessions depend only on the Client and Server
interfaces and never on net.Conn directly.

Client is the caller-side abstraction; Handler is the callee-side one.
TCPClient and TCPServer are the concrete implementation, framed the way
flydb's Raft RPCs are (internal/cluster/raft.go's sendRequestVote /
sendAppendEntries): a 1-byte flags field, a 4-byte big-endian length
prefix, and a JSON body. Bodies of CompressionThreshold bytes or more
are zstd-compressed before the length prefix is computed, and the
flags byte marks them as compressed.
*/
package transport

import "context"

// Call identifies an RPC method by name, matching the RPC surface
// named in spec.md §6.
type Call string

// Request is one outbound RPC: a method name and a JSON-able payload.
type Request struct {
	Call    Call
	Payload interface{}
}

// Client is the caller-side transport abstraction. Invoke marshals
// req, sends it to addr, and unmarshals the reply into reply (a
// pointer). It returns a *flyerrors.BayouError categorized
// CategoryTransport on any connection, I/O, or timeout failure.
type Client interface {
	Invoke(ctx context.Context, addr string, req Request, reply interface{}) error
}

// Handler answers one Call with a raw JSON payload, returning the
// reply to be marshaled back, or an error.
type Handler func(ctx context.Context, payload []byte) (interface{}, error)

// Server is the callee-side transport abstraction: it listens for
// connections and dispatches each by Call to a registered Handler.
type Server interface {
	Handle(call Call, h Handler)
	ListenAndServe(addr string) error
	Close() error
}
