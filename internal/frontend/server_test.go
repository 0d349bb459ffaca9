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
	"testing"

	"github.com/firefly-oss/bayoukv/internal/registry"
	"github.com/firefly-oss/bayoukv/internal/transport"
)

func spinUpFrontend(t *testing.T, addr string, net *transport.LocalNetwork, reg registry.Registry) *Server {
	t.Helper()
	srv := NewServer(reg, net.Client(), testSessionConfig())
	transportSrv := net.NewServer(addr)
	RegisterHandlers(transportSrv, srv)
	return srv
}

func TestServerAssignsSessionIDOnFirstCall(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	spinUpReplica(t, "R1", "R1:1", net, reg)
	spinUpFrontend(t, "frontend:1", net, reg)

	client := net.Client()

	var reply addMovieReply
	req := addMovieRequest{Name: "Dune", Genres: []string{"scifi"}}
	if err := client.Invoke(context.Background(), "frontend:1", transport.Request{Call: CallAddMovie, Payload: req}, &reply); err != nil {
		t.Fatalf("add_movie error: %v", err)
	}
	if reply.SessionID == "" {
		t.Fatal("expected a server-assigned session id")
	}
	if reply.MovieID == "" {
		t.Fatal("expected a non-empty movie id")
	}
}

func TestServerReusesSessionAcrossCalls(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	spinUpReplica(t, "R1", "R1:1", net, reg)
	spinUpFrontend(t, "frontend:1", net, reg)

	client := net.Client()

	var addReply struct {
		sessionReply
	}
	addReq := addRatingRequest{UserID: "7", MovieID: "42", Value: 4.5}
	if err := client.Invoke(context.Background(), "frontend:1", transport.Request{Call: CallAddRating, Payload: addReq}, &addReply); err != nil {
		t.Fatalf("add_rating error: %v", err)
	}
	sessionID := addReply.SessionID
	if sessionID == "" {
		t.Fatal("expected a session id from add_rating")
	}

	var userReply userDataReply
	userReq := userDataRequest{
		sessionRequest: sessionRequest{SessionID: sessionID},
		UserID:         "7",
	}
	if err := client.Invoke(context.Background(), "frontend:1", transport.Request{Call: CallGetUserData, Payload: userReq}, &userReply); err != nil {
		t.Fatalf("get_user_data error: %v", err)
	}
	if userReply.Ratings["42"] != 4.5 {
		t.Errorf("expected rating 4.5 via reused session, got %v", userReply.Ratings["42"])
	}
	if userReply.SessionID != sessionID {
		t.Errorf("expected session id to be echoed back unchanged, got %q want %q", userReply.SessionID, sessionID)
	}
}

func TestServerForgetClearsSession(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	spinUpReplica(t, "R1", "R1:1", net, reg)
	srv := spinUpFrontend(t, "frontend:1", net, reg)

	client := net.Client()

	var addReply struct {
		sessionReply
	}
	addReq := addRatingRequest{UserID: "7", MovieID: "42", Value: 4.5}
	if err := client.Invoke(context.Background(), "frontend:1", transport.Request{Call: CallAddRating, Payload: addReq}, &addReply); err != nil {
		t.Fatalf("add_rating error: %v", err)
	}

	srv.mu.Lock()
	sess, ok := srv.sessions[addReply.SessionID]
	srv.mu.Unlock()
	if !ok {
		t.Fatal("expected session to be tracked by the server")
	}
	if len(sess.SessionTS()) == 0 {
		t.Fatal("expected non-empty session_ts before forget")
	}

	var forgetReply sessionReply
	forgetReq := sessionRequest{SessionID: addReply.SessionID}
	if err := client.Invoke(context.Background(), "frontend:1", transport.Request{Call: CallForget, Payload: forgetReq}, &forgetReply); err != nil {
		t.Fatalf("forget error: %v", err)
	}
	if len(sess.SessionTS()) != 0 {
		t.Errorf("expected empty session_ts after forget, got %v", sess.SessionTS())
	}
}

func TestServerListMoviesAndSearch(t *testing.T) {
	net := transport.NewLocalNetwork()
	reg := registry.NewLocal()
	spinUpReplica(t, "R1", "R1:1", net, reg)
	spinUpFrontend(t, "frontend:1", net, reg)

	client := net.Client()

	var addReply addMovieReply
	addReq := addMovieRequest{Name: "Dune", Genres: []string{"scifi"}}
	if err := client.Invoke(context.Background(), "frontend:1", transport.Request{Call: CallAddMovie, Payload: addReq}, &addReply); err != nil {
		t.Fatalf("add_movie error: %v", err)
	}

	var listReply moviesReply
	listReq := listMoviesRequest{sessionRequest: sessionRequest{SessionID: addReply.SessionID}}
	if err := client.Invoke(context.Background(), "frontend:1", transport.Request{Call: CallListMovies, Payload: listReq}, &listReply); err != nil {
		t.Fatalf("list_movies error: %v", err)
	}
	if listReply.Movies[addReply.MovieID] != "Dune" {
		t.Errorf("expected Dune in list_movies result, got %+v", listReply.Movies)
	}

	var searchReply moviesReply
	searchReq := searchRequest{
		sessionRequest: sessionRequest{SessionID: addReply.SessionID},
		Name:           "Dune",
	}
	if err := client.Invoke(context.Background(), "frontend:1", transport.Request{Call: CallSearch, Payload: searchReq}, &searchReply); err != nil {
		t.Fatalf("search error: %v", err)
	}
	if searchReply.Movies[addReply.MovieID] != "Dune" {
		t.Errorf("expected Dune in search result, got %+v", searchReply.Movies)
	}
}
