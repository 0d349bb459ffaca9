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
	"fmt"

	"github.com/firefly-oss/bayoukv/internal/flyerrors"
)

// wireError is the wire-carried shape of a handler-side error. Both
// TCPServer/TCPClient and LocalServer/LocalNetwork use it so a
// replica's ReplicaOffline/CannotServe/InvalidInput/NoConsensus
// category survives the RPC boundary instead of collapsing into a
// generic TransportFailure (spec.md §7 requires the frontend to branch
// on CannotServe specifically, which a category-blind wire format
// cannot support).
type wireError struct {
	Category string `json:"category,omitempty"`
	Message  string `json:"message,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// toWireError captures err's category (if it is a *flyerrors.BayouError)
// so the caller can reconstruct an equivalent error client-side.
func toWireError(err error) wireError {
	if be, ok := err.(*flyerrors.BayouError); ok {
		return wireError{Category: string(be.Category), Message: be.Message, Detail: be.Detail}
	}
	return wireError{Message: err.Error()}
}

// fromWireError reconstructs an error from a wireError. A nonempty
// category rebuilds a BayouError carrying that category as-is; an
// empty category (the remote error was not a BayouError) falls back to
// a generic TransportFailure.
func fromWireError(we wireError) error {
	if we.Category == "" {
		return flyerrors.TransportFailure(fmt.Errorf("%s", we.Message)).WithDetail("remote error")
	}
	return flyerrors.FromWire(flyerrors.Category(we.Category), we.Message, we.Detail)
}
