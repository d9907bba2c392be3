package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/aweris/pkgdiff"
)

type handler struct {
	session *pkgdiff.Session
}

// NewHandler routes the request/response protocol over HTTP:
//
//	POST /v1/diff       start-diff
//	POST /v1/prefetch   prefetch
//	POST /v1/content    get-diff
//	POST /v1/file-diff  get-file-diff
//	POST /v1/requests   any request, typed by its "type" field
//	GET  /v1/cache      settled extraction keys
//	GET  /v1/sources    registered sources
//	GET  /healthz
func NewHandler(s *pkgdiff.Session, logger zerolog.Logger) http.Handler {
	h := &handler{session: s}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(hlog.NewHandler(logger))
	r.Use(requestIDField)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, took time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("took", took).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/diff", h.handle(pkgdiff.RequestStartDiff))
		r.Post("/prefetch", h.handle(pkgdiff.RequestPrefetch))
		r.Post("/content", h.handle(pkgdiff.RequestGetDiff))
		r.Post("/file-diff", h.handle(pkgdiff.RequestGetFileDiff))
		r.Post("/requests", h.handle(""))
		r.Get("/cache", h.handleCache)
		r.Get("/sources", h.handleSources)
	})
	return r
}

func requestIDField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

// handle decodes a Request from the body. A non-empty typ overrides the
// body's type field.
func (h *handler) handle(typ pkgdiff.RequestType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pkgdiff.Request
		body := http.MaxBytesReader(w, r.Body, MaxRequestBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, invalid(err))
			return
		}
		if typ != "" {
			req.Type = typ
		}
		if req.ID == "" {
			req.ID = chimw.GetReqID(r.Context())
		}

		resp := h.session.Handle(r.Context(), req)
		if resp.Err != nil {
			hlog.FromRequest(r).Warn().Err(resp.Err).Str("type", string(req.Type)).Msg("request failed")
		}
		writeJSON(w, StatusCode(resp), resp)
	}
}

func (h *handler) handleCache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": h.session.Cache().Keys(),
	})
}

func (h *handler) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sources": h.session.Sources(),
	})
}

// StatusCode maps a response onto an HTTP status.
func StatusCode(resp pkgdiff.Response) int {
	if resp.Type != pkgdiff.ResponseError {
		return http.StatusOK
	}
	err := resp.Err
	switch {
	case errors.Is(err, pkgdiff.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgdiff.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, pkgdiff.ErrUnsupportedSource),
		errors.Is(err, pkgdiff.ErrNoActiveDiff),
		errors.Is(err, pkgdiff.ErrUnknownRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
