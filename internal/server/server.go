// Package server exposes play sessions over HTTP for debugging stories.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/rcliao/passage/internal/session"
	"github.com/rcliao/passage/internal/state"
	"github.com/rcliao/passage/internal/store"
	"github.com/rcliao/passage/internal/story"
	"github.com/rcliao/passage/internal/value"
)

// Options configures a Server.
type Options struct {
	Store        *store.SQLiteStore
	Seed         string
	MaxRedirects int
	SaveTTL      string
	// MirrorPrefix, when set, mirrors each session's timeline under
	// prefix:story:session.
	MirrorPrefix string
	Logger       *slog.Logger
}

// Server holds the play sessions for one story.
type Server struct {
	story *story.Story
	key   string
	opts  Options
	log   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func New(st *story.Story, key string, opts Options) *Server {
	s := &Server{
		story:    st,
		key:      key,
		opts:     opts,
		log:      opts.Logger,
		sessions: map[string]*session.Session{},
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/story", s.handleStory)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/go", s.handleGo)
			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)
			r.Post("/resume", s.handleResume)
			r.Post("/eval", s.handleEval)
			r.Post("/save", s.handleSave)
			r.Post("/load", s.handleLoad)
			r.Get("/events", s.handleEvents)
			r.Get("/timeline", s.handleTimeline)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("serving", "addr", addr, "story", s.key)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("stopping server")
	return srv.Shutdown(shutdown)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

// output is the JSON form of a rendered turn.
type output struct {
	*story.Output
	Prompt *prompt `json:"prompt,omitempty"`
}

type prompt struct {
	Message string `json:"message"`
	Default string `json:"default,omitempty"`
}

func toOutput(o *story.Output) output {
	out := output{Output: o}
	if o.Prompt != nil {
		out.Prompt = &prompt{Message: o.Prompt.Message}
		if o.Prompt.Default != nil {
			out.Prompt.Default = value.Print(o.Prompt.Default)
		}
	}
	return out
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"key":      s.key,
		"title":    s.story.Title,
		"start":    s.story.Start,
		"passages": s.story.Names(),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed string `json:"seed"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}
	seed := req.Seed
	if seed == "" {
		seed = s.opts.Seed
	}
	opts := session.Options{
		ID:           uuid.NewString(),
		Store:        s.opts.Store,
		Key:          s.key,
		Seed:         seed,
		MaxRedirects: s.opts.MaxRedirects,
		SaveTTL:      s.opts.SaveTTL,
		Logger:       s.log,
	}
	if s.opts.MirrorPrefix != "" {
		opts.MirrorKey = s.opts.MirrorPrefix + ":" + s.key + ":" + opts.ID
	}
	sess := session.New(s.story, opts)
	out, err := sess.Show()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.log.Info("session started", "session", sess.ID)

	writeJSON(w, http.StatusCreated, map[string]any{"id": sess.ID, "output": toOutput(out)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	writeJSON(w, http.StatusOK, ids)
}

// session finds the session named in the URL, writing a 404 when there is
// none.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid session id %q", id))
		return nil
	}
	s.mu.RLock()
	sess := s.sessions[id]
	s.mu.RUnlock()
	if sess == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no session %s", id))
	}
	return sess
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	vars := map[string]string{}
	var history []string
	var turns int
	sess.Inspect(func(st *state.State) {
		for name, v := range st.Variables() {
			vars[name] = value.Source(v)
		}
		history = st.History()
		turns = st.Turns()
	})
	resp := map[string]any{"id": sess.ID, "turn": turns, "history": history, "variables": vars}
	if last := sess.Last(); last != nil {
		resp["output"] = toOutput(last)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGo(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req struct {
		Passage string `json:"passage"`
	}
	if !decode(w, r, &req) {
		return
	}
	out, err := sess.Go(req.Passage)
	s.respond(w, out, err)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) { s.step(w, r, false) }
func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) { s.step(w, r, true) }

func (s *Server) step(w http.ResponseWriter, r *http.Request, redo bool) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	n := 1
	if q := r.URL.Query().Get("n"); q != "" {
		var err error
		if n, err = strconv.Atoi(q); err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("n must be a positive number"))
			return
		}
	}
	var out *story.Output
	var err error
	if redo {
		out, err = sess.Redo(n)
	} else {
		out, err = sess.Undo(n)
	}
	s.respond(w, out, err)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req struct {
		Answer json.RawMessage `json:"answer"`
	}
	if !decode(w, r, &req) {
		return
	}
	answer, err := answerValue(req.Answer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := sess.Resume(answer)
	if errors.Is(err, story.ErrNotBlocked) {
		writeError(w, http.StatusConflict, err)
		return
	}
	s.respond(w, out, err)
}

// answerValue turns a JSON string, number or boolean into a story value.
func answerValue(raw json.RawMessage) (value.Value, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid answer: %w", err)
	}
	switch v := v.(type) {
	case string:
		return value.String(v), nil
	case float64:
		return value.Number(v), nil
	case bool:
		return value.Boolean(v), nil
	}
	return nil, fmt.Errorf("answer must be a string, number or boolean")
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req struct {
		Expr string `json:"expr"`
	}
	if !decode(w, r, &req) {
		return
	}
	v := sess.Eval(req.Expr)
	if e, ok := v.(*value.Error); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": e.Message, "kind": e.Kind.String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"source": value.Source(v),
		"type":   value.Describe(v),
		"print":  value.Print(v),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req struct {
		Slot  string   `json:"slot"`
		Label string   `json:"label"`
		Tags  []string `json:"tags"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Slot == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("slot is required"))
		return
	}
	save, err := sess.Save(r.Context(), req.Slot, req.Label, req.Tags)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	save.Data = ""
	writeJSON(w, http.StatusCreated, save)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req struct {
		Slot    string `json:"slot"`
		Version int    `json:"version"`
	}
	if !decode(w, r, &req) {
		return
	}
	out, err := sess.Load(r.Context(), req.Slot, req.Version)
	switch {
	case errors.Is(err, store.ErrSaveNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, state.ErrMalformed), errors.Is(err, state.ErrMissingPassage),
		errors.Is(err, state.ErrUnknownPassage), errors.Is(err, state.ErrUnreconstructable):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.respond(w, out, err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	after, _ := strconv.Atoi(r.URL.Query().Get("after"))
	events := sess.Events(after)
	if events == nil {
		events = []session.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var data []byte
	var err error
	sess.Inspect(func(st *state.State) { data, err = st.Serialize() })
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) respond(w http.ResponseWriter, out *story.Output, err error) {
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutput(out))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
