// Package server implements the roster sync server. It exposes the same
// record operations over plain HTTP and a websocket, backed by a storage
// backend so records survive restarts.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	stdsync "sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/storage"
)

// Server holds every synced collection as id-keyed documents and serves
// them to clients. All four collections share one lock; traffic is a
// handful of devices, not a fleet.
type Server struct {
	mu      stdsync.Mutex
	records map[schema.Collection]map[string]json.RawMessage
	backend storage.Store
	logger  *log.Logger
}

// New creates a server over backend. Previously stored collections are
// loaded immediately.
func New(backend storage.Store, logger *log.Logger) (*Server, error) {
	s := &Server{
		records: make(map[schema.Collection]map[string]json.RawMessage),
		backend: backend,
		logger:  logger,
	}
	for _, col := range schema.Collections {
		docs, err := s.loadCollection(col)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", col, err)
		}
		s.records[col] = docs
	}
	return s, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/{collection}", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleSave)
		r.Delete("/{id}", s.handleRemove)
	})
	r.Get("/ws", s.handleWS)
	return r
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	col, ok := collectionParam(r)
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}
	docs := s.list(col)
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	col, ok := collectionParam(r)
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}
	var doc json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&doc); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	id, err := s.save(col, doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	col, ok := collectionParam(r)
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}
	s.remove(col, chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleWS speaks the frame protocol the websocket client uses: one JSON
// request per frame, one JSON reply per frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("websocket accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection dropped")
	conn.SetReadLimit(16 << 20)

	ctx := r.Context()
	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req struct {
			Action     string            `json:"action"`
			Collection schema.Collection `json:"collection"`
			ID         string            `json:"id"`
			Record     json.RawMessage   `json:"record"`
		}
		resp := map[string]any{"ok": true}
		if err := json.Unmarshal(payload, &req); err != nil {
			resp = map[string]any{"ok": false, "error": "invalid frame"}
		} else if !validCollection(req.Collection) {
			resp = map[string]any{"ok": false, "error": "unknown collection"}
		} else {
			switch req.Action {
			case "list":
				resp["docs"] = s.list(req.Collection)
			case "save":
				id, err := s.save(req.Collection, req.Record)
				if err != nil {
					resp = map[string]any{"ok": false, "error": err.Error()}
				} else {
					resp["id"] = id
				}
			case "remove":
				s.remove(req.Collection, req.ID)
			default:
				resp = map[string]any{"ok": false, "error": "unknown action " + req.Action}
			}
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return
		}
	}
}

// ---- record operations -------------------------------------------------

func (s *Server) list(col schema.Collection) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, 0, len(s.records[col]))
	for _, doc := range s.records[col] {
		out = append(out, doc)
	}
	return out
}

func (s *Server) save(col schema.Collection, doc json.RawMessage) (string, error) {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return "", errors.New("record is not a JSON object")
	}
	if probe.ID == "" {
		return "", errors.New("record has no id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[col] == nil {
		s.records[col] = make(map[string]json.RawMessage)
	}
	s.records[col][probe.ID] = doc
	s.persistCollection(col)
	return probe.ID, nil
}

func (s *Server) remove(col schema.Collection, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[col][id]; !ok {
		return
	}
	delete(s.records[col], id)
	s.persistCollection(col)
}

// ---- persistence -------------------------------------------------------

func storageKey(col schema.Collection) string {
	return "server_" + string(col)
}

func (s *Server) loadCollection(col schema.Collection) (map[string]json.RawMessage, error) {
	docs := make(map[string]json.RawMessage)
	data, ok, err := s.backend.Get(storageKey(col))
	if err != nil {
		return nil, err
	}
	if !ok {
		return docs, nil
	}
	if err := json.Unmarshal(data, &docs); err != nil {
		s.logger.Printf("Discarding malformed %s payload: %v", col, err)
		return make(map[string]json.RawMessage), nil
	}
	return docs, nil
}

// persistCollection writes one collection to the backend. Caller holds the
// lock. Failures are logged; memory stays authoritative.
func (s *Server) persistCollection(col schema.Collection) {
	data, err := json.Marshal(s.records[col])
	if err != nil {
		s.logger.Printf("Persist %s: %v", col, err)
		return
	}
	if err := s.backend.Put(storageKey(col), data); err != nil {
		s.logger.Printf("Persist %s: %v", col, err)
	}
}

// ---- helpers -----------------------------------------------------------

func collectionParam(r *http.Request) (schema.Collection, bool) {
	col := schema.Collection(chi.URLParam(r, "collection"))
	return col, validCollection(col)
}

func validCollection(col schema.Collection) bool {
	for _, c := range schema.Collections {
		if c == col {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
