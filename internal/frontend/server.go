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

package frontend

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/firefly-oss/bayoukv/internal/flyerrors"
	"github.com/firefly-oss/bayoukv/internal/kvmodel"
	"github.com/firefly-oss/bayoukv/internal/logging"
	"github.com/firefly-oss/bayoukv/internal/registry"
	"github.com/firefly-oss/bayoukv/internal/transport"
)

// Server is the RPC-served counterpart to Session (spec.md §6): it
// owns one Session per client, keyed by a client-supplied session id,
// and wires the frontend's 11 calls onto them. Clients that don't
// supply a session id get a fresh one back on their first call.
type Server struct {
	mu       sync.Mutex
	sessions map[string]*Session

	reg    registry.Registry
	client transport.Client
	cfg    Config
	logger *logging.Logger
}

// NewServer returns a Server backed by reg/client for the Sessions it
// creates, using cfg as every Session's Config.
func NewServer(reg registry.Registry, client transport.Client, cfg Config) *Server {
	return &Server{
		sessions: make(map[string]*Session),
		reg:      reg,
		client:   client,
		cfg:      cfg,
		logger:   logging.NewLogger("frontend"),
	}
}

// sessionFor returns the Session for id, creating one (and a fresh id,
// if id is empty) on first use.
func (srv *Server) sessionFor(id string) (string, *Session) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if id == "" {
		id = kvmodel.GenerateID()
	}
	s, ok := srv.sessions[id]
	if !ok {
		s = NewSession(srv.reg, srv.client, srv.cfg)
		srv.sessions[id] = s
		srv.logger.Debug("new session", "session_id", id)
	}
	return id, s
}

// request/reply envelopes for the frontend's own RPC surface. Every
// request carries the session id it belongs to; every reply echoes it
// back so a stateless client can thread it through its own calls.

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type sessionReply struct {
	SessionID string `json:"session_id"`
}

type userDataRequest struct {
	sessionRequest
	UserID string `json:"user_id"`
}

type userDataReply struct {
	sessionReply
	Ratings map[string]float64  `json:"ratings"`
	Tags    map[string][]string `json:"tags"`
}

type listMoviesRequest struct {
	sessionRequest
	Maximal bool `json:"maximal"`
}

type moviesReply struct {
	sessionReply
	Movies map[string]string `json:"movies"`
}

type searchRequest struct {
	sessionRequest
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

type getMovieRequest struct {
	sessionRequest
	MovieID string `json:"movie_id"`
}

type movieReply struct {
	sessionReply
	MovieID string   `json:"movie_id"`
	Name    string   `json:"name"`
	Genres  []string `json:"genres"`
	Tags    []string `json:"tags"`
	Average float64  `json:"average_rating"`
	Count   int      `json:"rating_count"`
}

type addRatingRequest struct {
	sessionRequest
	UserID  string  `json:"user_id"`
	MovieID string  `json:"movie_id"`
	Value   float64 `json:"value"`
}

type deleteRatingRequest struct {
	sessionRequest
	UserID  string `json:"user_id"`
	MovieID string `json:"movie_id"`
}

type tagRequest struct {
	sessionRequest
	UserID  string   `json:"user_id"`
	MovieID string   `json:"movie_id"`
	Tags    []string `json:"tags"`
}

type addMovieRequest struct {
	sessionRequest
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

type addMovieReply struct {
	sessionReply
	MovieID string `json:"movie_id"`
}

type tsReply struct {
	sessionReply
}

// RegisterHandlers wires every call in calls.go onto srv's sessions.
func RegisterHandlers(transportSrv transport.Server, srv *Server) {
	transportSrv.Handle(CallForget, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req sessionRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		id, s := srv.sessionFor(req.SessionID)
		s.Forget()
		return sessionReply{SessionID: id}, nil
	})

	transportSrv.Handle(CallGetTimestamp, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req sessionRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		id, s := srv.sessionFor(req.SessionID)
		return struct {
			sessionReply
			TS interface{} `json:"ts"`
		}{sessionReply{SessionID: id}, s.SessionTS()}, nil
	})

	transportSrv.Handle(CallGetUserData, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req userDataRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		id, s := srv.sessionFor(req.SessionID)
		data, err := s.GetUserData(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		return userDataReply{sessionReply{SessionID: id}, data.Ratings, data.Tags}, nil
	})

	transportSrv.Handle(CallListMovies, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req listMoviesRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		id, s := srv.sessionFor(req.SessionID)
		movies, err := s.ListMovies(ctx, req.Maximal)
		if err != nil {
			return nil, err
		}
		return moviesReply{sessionReply{SessionID: id}, movies}, nil
	})

	transportSrv.Handle(CallSearch, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req searchRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		id, s := srv.sessionFor(req.SessionID)
		movies, err := s.Search(ctx, req.Name, req.Genres)
		if err != nil {
			return nil, err
		}
		return moviesReply{sessionReply{SessionID: id}, movies}, nil
	})

	transportSrv.Handle(CallGetMovie, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req getMovieRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		id, s := srv.sessionFor(req.SessionID)
		detail, err := s.GetMovie(ctx, req.MovieID)
		if err != nil {
			return nil, err
		}
		reply := movieReply{sessionReply: sessionReply{SessionID: id}, MovieID: req.MovieID}
		if detail != nil {
			reply.Name = detail.Name
			reply.Genres = detail.Genres
			reply.Tags = detail.Tags
			reply.Average = detail.Ratings.Avg
			reply.Count = detail.Ratings.Count
		}
		return reply, nil
	})

	transportSrv.Handle(CallAddRating, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req addRatingRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		id, s := srv.sessionFor(req.SessionID)
		if _, err := s.AddRating(ctx, req.UserID, req.MovieID, req.Value); err != nil {
			return nil, err
		}
		return tsReply{sessionReply{SessionID: id}}, nil
	})

	transportSrv.Handle(CallDeleteRating, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req deleteRatingRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		id, s := srv.sessionFor(req.SessionID)
		if _, err := s.DeleteRating(ctx, req.UserID, req.MovieID); err != nil {
			return nil, err
		}
		return tsReply{sessionReply{SessionID: id}}, nil
	})

	transportSrv.Handle(CallAddTag, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req tagRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		id, s := srv.sessionFor(req.SessionID)
		if _, err := s.AddTag(ctx, req.UserID, req.MovieID, req.Tags); err != nil {
			return nil, err
		}
		return tsReply{sessionReply{SessionID: id}}, nil
	})

	transportSrv.Handle(CallRemoveTag, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req tagRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		id, s := srv.sessionFor(req.SessionID)
		if _, err := s.RemoveTag(ctx, req.UserID, req.MovieID, req.Tags); err != nil {
			return nil, err
		}
		return tsReply{sessionReply{SessionID: id}}, nil
	})

	transportSrv.Handle(CallAddMovie, func(ctx context.Context, payload []byte) (interface{}, error) {
		var req addMovieRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, flyerrors.InvalidInput(err.Error())
		}
		id, s := srv.sessionFor(req.SessionID)
		movieID, _, err := s.AddMovie(ctx, req.Name, req.Genres)
		if err != nil {
			return nil, err
		}
		return addMovieReply{sessionReply{SessionID: id}, movieID}, nil
	})
}
