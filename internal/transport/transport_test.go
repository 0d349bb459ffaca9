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
	"bytes"
	"context"
	"testing"

	"github.com/firefly-oss/bayoukv/internal/flyerrors"
)

func TestLocalNetworkRoundTrip(t *testing.T) {
	net := NewLocalNetwork()
	srv := net.NewServer("R1:9900")
	srv.Handle("echo", func(ctx context.Context, payload []byte) (interface{}, error) {
		return map[string]string{"got": string(payload)}, nil
	})

	client := net.Client()
	var reply map[string]string
	err := client.Invoke(context.Background(), "R1:9900", Request{Call: "echo", Payload: "hi"}, &reply)
	if err != nil {
		t.Fatalf("Invoke error: %v", err)
	}
	if reply["got"] != `"hi"` {
		t.Errorf("unexpected reply: %v", reply)
	}
}

func TestLocalNetworkUnreachableServer(t *testing.T) {
	net := NewLocalNetwork()
	client := net.Client()
	err := client.Invoke(context.Background(), "ghost:0", Request{Call: "echo"}, nil)
	if !flyerrors.IsTransportFailure(err) {
		t.Errorf("expected TransportFailure for unreachable server, got %v", err)
	}
}

func TestLocalNetworkRemovedServer(t *testing.T) {
	net := NewLocalNetwork()
	srv := net.NewServer("R1:9900")
	srv.Handle("echo", func(ctx context.Context, payload []byte) (interface{}, error) {
		return "ok", nil
	})
	net.Remove("R1:9900")

	client := net.Client()
	err := client.Invoke(context.Background(), "R1:9900", Request{Call: "echo"}, nil)
	if !flyerrors.IsTransportFailure(err) {
		t.Errorf("expected TransportFailure after server removal, got %v", err)
	}
}

func TestLocalNetworkUnknownCall(t *testing.T) {
	net := NewLocalNetwork()
	net.NewServer("R1:9900")

	client := net.Client()
	err := client.Invoke(context.Background(), "R1:9900", Request{Call: "missing"}, nil)
	if !flyerrors.IsTransportFailure(err) {
		t.Errorf("expected TransportFailure for unknown call, got %v", err)
	}
}

func TestWriteReadFrameRoundTripsAndCompressesLargePayloads(t *testing.T) {
	small := map[string]string{"hello": "world"}
	large := make([]string, 0, 2000)
	for i := 0; i < 2000; i++ {
		large = append(large, "entry-padding-to-cross-the-compression-threshold")
	}

	for _, v := range []interface{}{small, large} {
		buf := &bytes.Buffer{}
		if err := writeFrame(buf, v); err != nil {
			t.Fatalf("writeFrame error: %v", err)
		}
		var got interface{}
		if err := readFrame(buf, &got); err != nil {
			t.Fatalf("readFrame error: %v", err)
		}
	}
}
