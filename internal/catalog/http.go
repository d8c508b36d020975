package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"CatalogConsole/pkg/kit"
)

const (
	maxBodyBytes = 1 << 20

	defaultPage     = 1
	defaultPageSize = 10
)

type Server struct {
	Store *Store
	Log   *zap.Logger
}

// Routes exposes the catalog. Mutating routes are wrapped in guard when one
// is supplied; reads stay public like the rest of the console.
func (s *Server) Routes(guard func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/products", s.list)
	r.Get("/products/search", s.search)
	r.Get("/products/selection", s.selection)
	r.Delete("/products/selection", s.clearSelection)
	r.Get("/products/category/{category}", s.byCategory)
	r.Get("/products/{id}", s.get)
	r.Post("/products/{id}/select", s.selectProduct)
	r.Get("/dashboard/stats", s.stats)

	mutations := func(rr chi.Router) {
		rr.Post("/products", s.create)
		rr.Put("/products/{id}", s.update)
		rr.Delete("/products/{id}", s.remove)
	}
	if guard != nil {
		r.Group(func(rr chi.Router) {
			rr.Use(guard)
			mutations(rr)
		})
	} else {
		mutations(r)
	}

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := intQuery(q.Get("page"), defaultPage)
	pageSize := intQuery(q.Get("pageSize"), defaultPageSize)

	resp, err := s.Store.List(r.Context(), page, pageSize, q.Get("search"), q.Get("category"))
	if err != nil {
		s.Log.Error("list products failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := s.Store.GetByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if req.Name == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "name required", nil)
		return
	}

	p, err := s.Store.Create(r.Context(), req)
	if err != nil {
		s.Log.Error("create product failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	req.ID = id

	p, err := s.Store.Update(r.Context(), req)
	if err != nil {
		s.writeStoreError(w, r, err, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Store.Search(r.URL.Query().Get("q")))
}

func (s *Server) byCategory(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Store.ByCategory(chi.URLParam(r, "category")))
}

func (s *Server) selectProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, found := s.Store.find(id)
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	s.Store.SetSelected(&p)
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) selection(w http.ResponseWriter, r *http.Request) {
	p := s.Store.Selected()
	if p == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) clearSelection(w http.ResponseWriter, _ *http.Request) {
	s.Store.ClearSelected()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Store.Stats())
}

// Readyz reports backend reachability for the console's readiness probe.
func (s *Server) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.Log.Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, id int64) {
	if errors.Is(err, ErrNotFound) {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	s.Log.Error("catalog operation failed", zap.Error(err), zap.Int64("id", id))
	kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", nil)
		return 0, false
	}
	return id, true
}

func intQuery(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
