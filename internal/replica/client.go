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

	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/transport"
	"github.com/firefly-oss/bayoukv/internal/vclock"
)

// Client is the RPC-caller side of a single replica's surface: both
// the gossip loop (talking to peers) and a frontend session (talking
// to whichever replica it has selected) use it, so it lives next to
// the server implementation it calls rather than under internal/frontend.
type Client struct {
	transport transport.Client
	addr      string
}

// NewClient returns a Client that calls the replica listening at addr.
func NewClient(t transport.Client, addr string) *Client {
	return &Client{transport: t, addr: addr}
}

// Addr returns the endpoint this Client targets.
func (c *Client) Addr() string { return c.addr }

type statusReply struct {
	Status string `json:"status"`
}

// Status calls status().
func (c *Client) Status(ctx context.Context) (string, error) {
	var reply statusReply
	if err := c.transport.Invoke(ctx, c.addr, transport.Request{Call: CallStatus}, &reply); err != nil {
		return "", err
	}
	return reply.Status, nil
}

type timestampReply struct {
	TS vclock.Clock `json:"ts"`
}

// GetTimestamp calls get_timestamp().
func (c *Client) GetTimestamp(ctx context.Context) (vclock.Clock, error) {
	var reply timestampReply
	if err := c.transport.Invoke(ctx, c.addr, transport.Request{Call: CallGetTimestamp}, &reply); err != nil {
		return nil, err
	}
	return reply.TS, nil
}

type syncRequest struct {
	Entries []kvmodel.RawEntry `json:"entries"`
	PeerTS  vclock.Clock       `json:"peer_ts"`
}

// Sync calls sync(entries, peer_ts).
func (c *Client) Sync(ctx context.Context, entries []kvmodel.RawEntry, peerTS vclock.Clock) error {
	req := syncRequest{Entries: entries, PeerTS: peerTS}
	return c.transport.Invoke(ctx, c.addr, transport.Request{Call: CallSync, Payload: req}, nil)
}

type tsRequest struct {
	TS vclock.Clock `json:"ts"`
}

type listMoviesReply struct {
	Movies  map[string]string `json:"movies"`
	StateTS vclock.Clock      `json:"state_ts"`
}

// ListMovies calls list_movies(ts).
func (c *Client) ListMovies(ctx context.Context, ts vclock.Clock) (map[string]string, vclock.Clock, error) {
	var reply listMoviesReply
	req := tsRequest{TS: ts}
	if err := c.transport.Invoke(ctx, c.addr, transport.Request{Call: CallListMovies, Payload: req}, &reply); err != nil {
		return nil, nil, err
	}
	return reply.Movies, reply.StateTS, nil
}

type searchRequest struct {
	Name   string       `json:"name"`
	Genres []string     `json:"genres"`
	TS     vclock.Clock `json:"ts"`
}

// Search calls search(name, genres, ts).
func (c *Client) Search(ctx context.Context, name string, genres []string, ts vclock.Clock) (map[string]string, vclock.Clock, error) {
	var reply listMoviesReply
	req := searchRequest{Name: name, Genres: genres, TS: ts}
	if err := c.transport.Invoke(ctx, c.addr, transport.Request{Call: CallSearch, Payload: req}, &reply); err != nil {
		return nil, nil, err
	}
	return reply.Movies, reply.StateTS, nil
}

type movieRequest struct {
	MovieID string       `json:"movie_id"`
	TS      vclock.Clock `json:"ts"`
}

type movieReply struct {
	Detail  *kvmodel.MovieDetail `json:"detail"`
	StateTS vclock.Clock         `json:"state_ts"`
}

// GetMovie calls get_movie(id, ts).
func (c *Client) GetMovie(ctx context.Context, movieID string, ts vclock.Clock) (*kvmodel.MovieDetail, vclock.Clock, error) {
	var reply movieReply
	req := movieRequest{MovieID: movieID, TS: ts}
	if err := c.transport.Invoke(ctx, c.addr, transport.Request{Call: CallGetMovie, Payload: req}, &reply); err != nil {
		return nil, nil, err
	}
	return reply.Detail, reply.StateTS, nil
}

type userRequest struct {
	UserID string       `json:"user_id"`
	TS     vclock.Clock `json:"ts"`
}

type userReply struct {
	Data    kvmodel.UserData `json:"data"`
	StateTS vclock.Clock     `json:"state_ts"`
}

// Get calls get(user_id, ts).
func (c *Client) Get(ctx context.Context, userID string, ts vclock.Clock) (kvmodel.UserData, vclock.Clock, error) {
	var reply userReply
	req := userRequest{UserID: userID, TS: ts}
	if err := c.transport.Invoke(ctx, c.addr, transport.Request{Call: CallGet, Payload: req}, &reply); err != nil {
		return kvmodel.UserData{}, nil, err
	}
	return reply.Data, reply.StateTS, nil
}

type updateRequest struct {
	Op   kvmodel.RawOperation `json:"op"`
	Prev vclock.Clock         `json:"prev"`
}

type updateReply struct {
	TS vclock.Clock `json:"ts"`
}

// Update calls update(op, prev).
func (c *Client) Update(ctx context.Context, op kvmodel.RawOperation, prev vclock.Clock) (vclock.Clock, error) {
	var reply updateReply
	req := updateRequest{Op: op, Prev: prev}
	if err := c.transport.Invoke(ctx, c.addr, transport.Request{Call: CallUpdate, Payload: req}, &reply); err != nil {
		return nil, err
	}
	return reply.TS, nil
}

type acceptUpdateRequest struct {
	ID   string               `json:"id"`
	Op   kvmodel.RawOperation `json:"op"`
	Prev vclock.Clock         `json:"prev"`
}

// AcceptUpdate calls accept_update(id, op, prev).
func (c *Client) AcceptUpdate(ctx context.Context, id string, op kvmodel.RawOperation, prev vclock.Clock) error {
	req := acceptUpdateRequest{ID: id, Op: op, Prev: prev}
	return c.transport.Invoke(ctx, c.addr, transport.Request{Call: CallAcceptUpdate, Payload: req}, nil)
}

type commitUpdateRequest struct {
	ID string `json:"id"`
}

// CommitUpdate calls commit_update(id).
func (c *Client) CommitUpdate(ctx context.Context, id string) (vclock.Clock, error) {
	var reply updateReply
	req := commitUpdateRequest{ID: id}
	if err := c.transport.Invoke(ctx, c.addr, transport.Request{Call: CallCommitUpdate, Payload: req}, &reply); err != nil {
		return nil, err
	}
	return reply.TS, nil
}

// State is the diagnostic snapshot returned by get_state(), used by
// status tooling rather than by gossip or the frontend.
type State struct {
	StateTS   vclock.Clock `json:"state_ts"`
	SyncTS    vclock.Clock `json:"sync_ts"`
	LogLen    int          `json:"log_len"`
	BufferLen int          `json:"buffer_len"`
}

// GetState calls get_state().
func (c *Client) GetState(ctx context.Context) (State, error) {
	var reply State
	if err := c.transport.Invoke(ctx, c.addr, transport.Request{Call: CallGetState}, &reply); err != nil {
		return State{}, err
	}
	return reply, nil
}
