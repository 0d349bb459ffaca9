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
	"crypto/tls"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/firefly-oss/bayoukv/internal/flyerrors"
	"github.com/firefly-oss/bayoukv/internal/logging"
)

// Framing constants, following flydb's Raft RPC wire shape
// (internal/cluster/raft.go): 1 byte of flags, then a 4-byte
// big-endian length prefix, then the body.
const (
	flagPlain      byte = 0x00
	flagCompressed byte = 0x01

	// CompressionThreshold is the body size above which a payload is
	// zstd-compressed before being sent (spec.md's gossip payloads are
	// the only ones expected to cross this in practice).
	CompressionThreshold = 4096

	dialTimeout  = 1 * time.Second
	callDeadline = 5 * time.Second
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// TCPClient is the concrete Client implementation: net.Dial plus
// length-prefixed JSON framing, optionally over TLS.
type TCPClient struct {
	TLSConfig *tls.Config
	log       *logging.Logger
}

// NewTCPClient returns a TCPClient. tlsConfig may be nil for plaintext.
func NewTCPClient(tlsConfig *tls.Config) *TCPClient {
	return &TCPClient{TLSConfig: tlsConfig, log: logging.NewLogger("transport")}
}

// Invoke implements Client.
func (c *TCPClient) Invoke(ctx context.Context, addr string, req Request, reply interface{}) error {
	conn, err := c.dial(ctx, addr)
	if err != nil {
		return flyerrors.TransportFailure(err).WithDetail(fmt.Sprintf("dial %s", addr))
	}
	defer conn.Close()

	deadline := time.Now().Add(callDeadline)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	envelope := struct {
		Call    Call        `json:"call"`
		Payload interface{} `json:"payload"`
	}{Call: req.Call, Payload: req.Payload}

	if err := writeFrame(conn, envelope); err != nil {
		return flyerrors.TransportFailure(err).WithDetail("write request")
	}

	var wire struct {
		Error   wireError       `json:"error,omitempty"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}
	if err := readFrame(conn, &wire); err != nil {
		return flyerrors.TransportFailure(err).WithDetail("read reply")
	}
	if wire.Error.Message != "" {
		return fromWireError(wire.Error)
	}
	if reply != nil && len(wire.Payload) > 0 {
		if err := json.Unmarshal(wire.Payload, reply); err != nil {
			return flyerrors.TransportFailure(err).WithDetail("decode reply")
		}
	}
	return nil
}

func (c *TCPClient) dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	if c.TLSConfig != nil {
		return tls.DialWithDialer(&dialer, "tcp", addr, c.TLSConfig)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

// TCPServer is the concrete Server implementation.
type TCPServer struct {
	TLSConfig *tls.Config

	mu       sync.RWMutex
	handlers map[Call]Handler
	listener net.Listener
	log      *logging.Logger
}

// NewTCPServer returns a TCPServer. tlsConfig may be nil for plaintext.
func NewTCPServer(tlsConfig *tls.Config) *TCPServer {
	return &TCPServer{
		TLSConfig: tlsConfig,
		handlers:  make(map[Call]Handler),
		log:       logging.NewLogger("transport"),
	}
}

// Handle implements Server.
func (s *TCPServer) Handle(call Call, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[call] = h
}

// ListenAndServe implements Server. It blocks until Close is called.
func (s *TCPServer) ListenAndServe(addr string) error {
	var ln net.Listener
	var err error
	if s.TLSConfig != nil {
		ln, err = tls.Listen("tcp", addr, s.TLSConfig)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serveConn(conn)
	}
}

// Close implements Server.
func (s *TCPServer) Close() error {
	s.mu.RLock()
	ln := s.listener
	s.mu.RUnlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

func (s *TCPServer) serveConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(callDeadline))

	var envelope struct {
		Call    Call            `json:"call"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := readFrame(conn, &envelope); err != nil {
		return
	}

	s.mu.RLock()
	h, ok := s.handlers[envelope.Call]
	s.mu.RUnlock()

	var wire struct {
		Error   wireError   `json:"error,omitempty"`
		Payload interface{} `json:"payload,omitempty"`
	}
	if !ok {
		wire.Error = wireError{Message: fmt.Sprintf("unknown call %q", envelope.Call)}
	} else {
		result, err := h(context.Background(), envelope.Payload)
		if err != nil {
			wire.Error = toWireError(err)
		} else {
			wire.Payload = result
		}
	}

	if err := writeFrame(conn, wire); err != nil {
		s.log.Debug("failed to write reply", "err", err.Error())
	}
}

// writeFrame marshals v to JSON, compresses it with zstd if it's
// large enough to be worth it, and writes the flag byte, length
// prefix, and body.
func writeFrame(w io.Writer, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	flag := flagPlain
	if len(body) >= CompressionThreshold {
		body = zstdEncoder.EncodeAll(body, nil)
		flag = flagCompressed
	}

	if _, err := w.Write([]byte{flag}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(body))); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// readFrame reads a flag byte, length prefix, and body, decompressing
// with zstd if the compressed flag is set, and unmarshals the body
// into v.
func readFrame(r io.Reader, v interface{}) error {
	flagBuf := make([]byte, 1)
	if _, err := io.ReadFull(r, flagBuf); err != nil {
		return err
	}

	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(lenBuf)

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}

	if flagBuf[0] == flagCompressed {
		decoded, err := zstdDecoder.DecodeAll(body, nil)
		if err != nil {
			return err
		}
		body = decoded
	}

	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}
