/*
	Copyright 2023 Google Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

		https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

// Package server exposes a runetrie.Trie over HTTP.
//
// Routes:
//
//	PUT    /words/{word}         stores word
//	DELETE /words/{word}         removes word
//	GET    /words/{word}         reports whether word is stored
//	GET    /prefixes/{prefix}    lists stored strings related to prefix
//	GET    /completions/{prefix} lists stored strings starting with prefix
//	GET    /stats                reports the trie's size
//
// Path parameters are percent-decoded before use.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-runetrie/runetrie"
	"github.com/gorilla/mux"
)

// shutdownTimeout bounds how long Serve waits for in-flight requests once its
// context is done.
const shutdownTimeout = 5 * time.Second

// WordResponse is the body of a successful GET /words/{word}.
type WordResponse struct {
	Word  string `json:"word"`
	Found bool   `json:"found"`
}

// MatchesResponse is the body of GET /prefixes/{prefix} and
// GET /completions/{prefix}.
type MatchesResponse struct {
	Prefix  string   `json:"prefix"`
	Matches []string `json:"matches"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Strings int `json:"strings"`
	Nodes   int `json:"nodes"`
}

// ErrorResponse is the body of every 4xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serves a single Trie.  Reads proceed concurrently; writes are
// exclusive.
type Server struct {
	mu     sync.RWMutex
	trie   *runetrie.Trie
	router *mux.Router
}

// New returns a Server for trie.  The caller must not use trie directly while
// the Server is serving.
func New(trie *runetrie.Trie) *Server {
	s := &Server{
		trie:   trie,
		router: mux.NewRouter(),
	}
	s.router.Use(logRequests)
	s.router.HandleFunc("/words/{word:.+}", s.putWord).Methods(http.MethodPut)
	s.router.HandleFunc("/words/{word:.+}", s.deleteWord).Methods(http.MethodDelete)
	s.router.HandleFunc("/words/{word:.+}", s.getWord).Methods(http.MethodGet)
	s.router.HandleFunc("/prefixes/{prefix:.*}", s.matches(s.trie.AllPrefixStrings)).Methods(http.MethodGet)
	s.router.HandleFunc("/completions/{prefix:.*}", s.matches(s.trie.AllCompletions)).Methods(http.MethodGet)
	s.router.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
	return s
}

// Handler returns the receiver's routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.  It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	slog.Info("serving", "address", ln.Addr().String())
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down", "address", ln.Addr().String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, ErrorResponse{Error: msg})
}

func (s *Server) putWord(w http.ResponseWriter, r *http.Request) {
	word := mux.Vars(r)["word"]
	s.mu.Lock()
	err := s.trie.Add(word)
	s.mu.Unlock()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteWord(w http.ResponseWriter, r *http.Request) {
	word := mux.Vars(r)["word"]
	s.mu.Lock()
	found := s.trie.Delete(word)
	s.mu.Unlock()
	if !found {
		respondError(w, http.StatusNotFound, fmt.Sprintf("%q is not stored", word))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getWord(w http.ResponseWriter, r *http.Request) {
	word := mux.Vars(r)["word"]
	s.mu.RLock()
	found := s.trie.Find(word)
	s.mu.RUnlock()
	if !found {
		respondError(w, http.StatusNotFound, fmt.Sprintf("%q is not stored", word))
		return
	}
	respond(w, http.StatusOK, WordResponse{Word: word, Found: true})
}

func (s *Server) matches(all func(string) []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := mux.Vars(r)["prefix"]
		s.mu.RLock()
		matches := all(prefix)
		s.mu.RUnlock()
		respond(w, http.StatusOK, MatchesResponse{Prefix: prefix, Matches: matches})
	}
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := StatsResponse{Strings: s.trie.Len(), Nodes: s.trie.NodeCount()}
	s.mu.RUnlock()
	respond(w, http.StatusOK, resp)
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.status,
			"duration", time.Since(start),
		)
	})
}
