// Package api exposes a store over HTTP as JSON.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/conduit-lang/relstore/internal/orm/store"
	"github.com/conduit-lang/relstore/internal/source"
)

var (
	errNotFound   = errors.New("record not found")
	errBadRequest = errors.New("bad request")
)

// maxBodySize bounds POST /api/load payloads
const maxBodySize = 32 << 20

// API serves one store. Reads share a lock; loads and deletes hold it
// exclusively.
type API struct {
	store  *store.Store
	mu     sync.RWMutex
	logger *zap.Logger
}

// New creates the API of s
func New(s *store.Store, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{store: s, logger: logger}
}

// Routes returns the router. Extra handlers, such as a websocket feed, can
// be mounted on it by the caller.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(a.logger, "/feed"))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/models", a.listModels)
		r.Route("/models/{model}", func(r chi.Router) {
			r.Get("/records", a.listRecords)
			r.Get("/records/{id}", a.getRecord)
			r.Delete("/records/{id}", a.deleteRecord)
			r.Get("/by/{key}/{value}", a.readBy)
		})
		r.Post("/load", a.load)
	})
	return r
}

// Load ingests a batch under the write lock. The CLI uses it to share the
// lock with the HTTP handlers.
func (a *API) Load(raw store.RawData, allowlist ...string) (*store.LoadResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.LoadData(raw, allowlist...)
}

// FieldInfo describes one field in GET /api/models
type FieldInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Relation string `json:"relation,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// ModelInfo describes one model in GET /api/models
type ModelInfo struct {
	Name    string      `json:"name"`
	Records int         `json:"records"`
	Indexes []string    `json:"indexes"`
	Fields  []FieldInfo `json:"fields"`
}

func (a *API) listModels(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := a.store.ModelNames()
	out := make([]ModelInfo, 0, len(names))
	for _, name := range names {
		m, _ := a.store.Model(name)
		info := ModelInfo{Name: name, Records: m.Len(), Indexes: m.Indexes()}
		for _, f := range m.Fields() {
			if f.Hidden() {
				continue
			}
			info.Fields = append(info.Fields, FieldInfo{
				Name:     f.Name,
				Type:     f.TypeName(),
				Relation: f.Relation,
				Required: f.Required,
			})
		}
		out = append(out, info)
	}
	renderJSON(w, http.StatusOK, out)
}

func (a *API) model(r *http.Request) (*store.Model, error) {
	return a.store.Model(chi.URLParam(r, "model"))
}

func (a *API) listRecords(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m, err := a.model(r)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, store.Map(m, m.SerializeExternal))
}

func (a *API) getRecord(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m, err := a.model(r)
	if err != nil {
		renderError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	rec := m.Read(store.ParseID(id))
	if rec == nil {
		renderError(w, fmt.Errorf("%w: %s(%s)", errNotFound, m.Name(), id))
		return
	}
	renderJSON(w, http.StatusOK, m.SerializeExternal(rec))
}

func (a *API) deleteRecord(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, err := a.model(r)
	if err != nil {
		renderError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	rec := m.Read(store.ParseID(id))
	if rec == nil {
		renderError(w, fmt.Errorf("%w: %s(%s)", errNotFound, m.Name(), id))
		return
	}
	if err := m.Delete(rec); err != nil {
		renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readBy looks the value up as an id-like key first and falls back to the
// raw text, so "0042" still finds a string barcode
func (a *API) readBy(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m, err := a.model(r)
	if err != nil {
		renderError(w, err)
		return
	}
	key, text := chi.URLParam(r, "key"), chi.URLParam(r, "value")

	records, err := m.ReadBy(key, store.ParseID(text))
	if err != nil {
		renderError(w, err)
		return
	}
	if len(records) == 0 {
		records, err = m.ReadBy(key, text)
		if err != nil {
			renderError(w, err)
			return
		}
	}

	out := make([]store.Values, len(records))
	for i, rec := range records {
		out[i] = m.SerializeExternal(rec)
	}
	renderJSON(w, http.StatusOK, out)
}

// LoadResponse is the body of POST /api/load
type LoadResponse struct {
	Loaded  map[string]int   `json:"loaded"`
	Missing map[string][]any `json:"missing"`
}

func (a *API) load(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		renderError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	raw, err := source.ParseRawData(body, ".json")
	if err != nil {
		renderError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	result, err := a.Load(raw, r.URL.Query()["model"]...)
	if err != nil {
		a.logger.Warn("load request failed", zap.Error(err))
		renderError(w, err)
		return
	}

	resp := LoadResponse{Loaded: make(map[string]int), Missing: result.Missing}
	for model, records := range result.Results {
		resp.Loaded[model] = len(records)
	}
	renderJSON(w, http.StatusOK, resp)
}
