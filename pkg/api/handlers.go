// Package api exposes the crawls and the archive over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"apart-tracker/pkg/archive"
	"apart-tracker/pkg/crawler"
	"apart-tracker/pkg/domain"
	"apart-tracker/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-Id"

// Crawler serves the cached crawls. *crawler.Service implements it.
type Crawler interface {
	CrawlApartDetail(ctx context.Context, apartName, area string) (domain.ApartDetail, error)
	CrawlNewTransactions(ctx context.Context, area string) (domain.NewTransactions, error)
}

// Archive serves snapshots and diffs. *archive.Engine implements it.
type Archive interface {
	SnapshotRegion(ctx context.Context, regionCode string) (domain.TransactionArchive, error)
	DiffNewTransactions(ctx context.Context, regionCode string) (domain.DiffResult, error)
	History(ctx context.Context, regionCode string) ([]domain.TransactionArchive, error)
}

// APIHandler holds the services behind the routes.
type APIHandler struct {
	crawler Crawler
	archive Archive
	log     *logger.Logger
}

func NewAPIHandler(c Crawler, a Archive, log *logger.Logger) *APIHandler {
	return &APIHandler{crawler: c, archive: a, log: logger.OrDefault(log)}
}

// RegisterRoutes adds the crawl routes, and the archive routes when an
// archive is configured.
func (h *APIHandler) RegisterRoutes(r *mux.Router) {
	r.Use(h.requestID)

	r.HandleFunc("/apart", h.handleApartDetail).Methods(http.MethodGet)
	r.HandleFunc("/transactions/new", h.handleNewTransactions).Methods(http.MethodGet)

	if h.archive != nil {
		r.HandleFunc("/archives/{regionCode}/snapshot", h.handleSnapshot).Methods(http.MethodPost)
		r.HandleFunc("/archives/{regionCode}/diff", h.handleDiff).Methods(http.MethodGet)
		r.HandleFunc("/archives/{regionCode}", h.handleHistory).Methods(http.MethodGet)
	}
}

// NewRouter returns a router with every route of h registered.
func NewRouter(h *APIHandler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *APIHandler) handleApartDetail(w http.ResponseWriter, r *http.Request) {
	apartName := strings.TrimSpace(r.URL.Query().Get("apartName"))
	area := strings.TrimSpace(r.URL.Query().Get("area"))
	if apartName == "" || area == "" {
		h.writeError(w, r, http.StatusBadRequest, errors.New("apartName and area are required"))
		return
	}

	detail, err := h.crawler.CrawlApartDetail(r.Context(), apartName, area)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *APIHandler) handleNewTransactions(w http.ResponseWriter, r *http.Request) {
	area := strings.TrimSpace(r.URL.Query().Get("area"))
	if area == "" {
		h.writeError(w, r, http.StatusBadRequest, errors.New("area is required"))
		return
	}

	result, err := h.crawler.CrawlNewTransactions(r.Context(), area)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	region := mux.Vars(r)["regionCode"]
	if _, err := h.archive.SnapshotRegion(r.Context(), region); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, archive.ErrNoSource) {
			status = http.StatusNotImplemented
		}
		h.writeError(w, r, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) handleDiff(w http.ResponseWriter, r *http.Request) {
	diff, err := h.archive.DiffNewTransactions(r.Context(), mux.Vars(r)["regionCode"])
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, diff)
}

func (h *APIHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	archives, err := h.archive.History(r.Context(), mux.Vars(r)["regionCode"])
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if archives == nil {
		archives = []domain.TransactionArchive{}
	}
	h.writeJSON(w, http.StatusOK, archives)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	id := w.Header().Get(RequestIDHeader)
	switch {
	case errors.Is(err, crawler.ErrNoPages):
		h.log.Error("[api] %s %s %s: origin unreachable: %v", id, r.Method, r.URL.Path, err)
	case status >= http.StatusInternalServerError:
		h.log.Error("[api] %s %s %s: %v", id, r.Method, r.URL.Path, err)
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: id})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("[api] encode response: %v", err)
	}
}

// requestID tags every request with an id, echoed in the response header,
// and logs its duration.
func (h *APIHandler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		h.log.Debug("[api] %s %s %s in %s", id, r.Method, r.URL.RequestURI(), time.Since(start))
	})
}
