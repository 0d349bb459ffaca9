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

package replica

import (
	"context"
	"encoding/json"

	"github.com/firefly-oss/bayoukv/internal/flyerrors"
	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/transport"
)

// RegisterHandlers wires every RPC in spec.md §6's replica surface
// onto srv, dispatching to r. This is the server-side counterpart to
// Client: together they let replica<->replica gossip and
// frontend<->replica calls share one wire contract.
func RegisterHandlers(srv transport.Server, r *Replica) {
	srv.Handle(CallStatus, func(ctx context.Context, payload []byte) (interface{}, error) {
		return statusReply{Status: r.Status()}, nil
	})

	srv.Handle(CallGetTimestamp, func(ctx context.Context, payload []byte) (interface{}, error) {
		ts, err := r.GetTimestamp()
		if err != nil {
			return nil, err
		}
		return timestampReply{TS: ts}, nil
	})

	srv.Handle(CallSync, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req syncRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		return nil, r.Sync(req.Entries, req.PeerTS)
	})

	srv.Handle(CallListMovies, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req tsRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		movies, stateTS, err := r.ListMovies(ctx, req.TS)
		if err != nil {
			return nil, err
		}
		return listMoviesReply{Movies: movies, StateTS: stateTS}, nil
	})

	srv.Handle(CallSearch, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req searchRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		movies, stateTS, err := r.Search(ctx, req.Name, req.Genres, req.TS)
		if err != nil {
			return nil, err
		}
		return listMoviesReply{Movies: movies, StateTS: stateTS}, nil
	})

	srv.Handle(CallGetMovie, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req movieRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		detail, stateTS, err := r.GetMovie(ctx, req.MovieID, req.TS)
		if err != nil {
			return nil, err
		}
		return movieReply{Detail: detail, StateTS: stateTS}, nil
	})

	srv.Handle(CallGet, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req userRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		data, stateTS, err := r.Get(ctx, req.UserID, req.TS)
		if err != nil {
			return nil, err
		}
		return userReply{Data: data, StateTS: stateTS}, nil
	})

	srv.Handle(CallUpdate, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req updateRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		op, err := kvmodel.DecodeOperation(req.Op)
		if err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		ts, err := r.Update(op, req.Prev)
		if err != nil {
			return nil, err
		}
		return updateReply{TS: ts}, nil
	})

	srv.Handle(CallAcceptUpdate, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req acceptUpdateRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		op, err := kvmodel.DecodeOperation(req.Op)
		if err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		return nil, r.AcceptUpdate(req.ID, op, req.Prev)
	})

	srv.Handle(CallCommitUpdate, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req commitUpdateRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		ts, err := r.CommitUpdate(req.ID)
		if err != nil {
			return nil, err
		}
		return updateReply{TS: ts}, nil
	})

	srv.Handle(CallGetLog, func(ctx context.Context, payload []byte) (interface{}, error) {
		log := r.GetLog()
		raw := make([]kvmodel.RawEntry, len(log))
		for i, e := range log {
			raw[i] = e.Encode()
		}
		return raw, nil
	})

	srv.Handle(CallGetState, func(ctx context.Context, payload []byte) (interface{}, error) {
		st := r.GetState()
		return struct {
			StateTS   interface{} `json:"state_ts"`
			SyncTS    interface{} `json:"sync_ts"`
			LogLen    int         `json:"log_len"`
			BufferLen int         `json:"buffer_len"`
		}{StateTS: st.StateTS, SyncTS: st.SyncTS, LogLen: len(st.Log), BufferLen: len(st.Buffer)}, nil
	})

	srv.Handle(CallSetForcedOffline, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req struct {
			Offline bool `json:"offline"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		r.SetForcedOffline(req.Offline)
		return nil, nil
	})
}
