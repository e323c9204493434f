package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/parasol-ins/parasol/internal/claims"
	"github.com/parasol-ins/parasol/pkg/handlers"
	"github.com/parasol-ins/parasol/pkg/middleware"
	"github.com/parasol-ins/parasol/pkg/routes"
	"github.com/parasol-ins/parasol/pkg/storage"
)

// evidenceOwners resolves the subject owning the claim that references
// an evidence key. Implemented by the claims System.
type evidenceOwners interface {
	EvidenceOwner(ctx context.Context, key string) (string, error)
}

// storageHandler serves claim evidence blobs back to their owners and to
// configured operators. It is read-only: evidence is written exclusively
// through claim submission.
type storageHandler struct {
	store       storage.System
	owners      evidenceOwners
	logger      *slog.Logger
	maxListSize int32
	operators   map[string]bool
}

func newStorageHandler(
	store storage.System,
	owners evidenceOwners,
	logger *slog.Logger,
	maxListSize int32,
	operators []string,
) *storageHandler {
	ops := make(map[string]bool, len(operators))
	for _, op := range operators {
		ops[op] = true
	}

	return &storageHandler{
		store:       store,
		owners:      owners,
		logger:      logger.With("handler", "storage"),
		maxListSize: maxListSize,
		operators:   ops,
	}
}

func (h *storageHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/storage",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list},
			{Method: "GET", Pattern: "/download/{key...}", Handler: h.download},
			{Method: "GET", Pattern: "/{key...}", Handler: h.find},
		},
	}
}

// authorize admits operators outright; anyone else must own the claim
// that references the key. Foreign evidence reads as absent rather than
// forbidden so keys cannot be probed for existence.
func (h *storageHandler) authorize(w http.ResponseWriter, r *http.Request, key string) bool {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrUnauthorized)
		return false
	}
	if h.operators[userID] {
		return true
	}

	owner, err := h.owners.EvidenceOwner(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, claims.MapHTTPStatus(err), err)
		return false
	}
	if owner != userID {
		handlers.RespondError(w, h.logger, http.StatusNotFound, storage.ErrNotFound)
		return false
	}

	return true
}

// list crosses evidence owners, so it is reserved for operators.
func (h *storageHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrUnauthorized)
		return
	}
	if !h.operators[userID] {
		handlers.RespondError(w, h.logger, http.StatusForbidden, claims.ErrOperatorRequired)
		return
	}

	prefix := r.URL.Query().Get("prefix")
	marker := r.URL.Query().Get("marker")

	maxResults, err := storage.ParseMaxResults(
		r.URL.Query().Get("max_results"),
		h.maxListSize,
	)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			http.StatusBadRequest, err,
		)
		return
	}

	result, err := h.store.List(
		r.Context(),
		prefix,
		marker,
		maxResults,
	)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			http.StatusInternalServerError, err,
		)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *storageHandler) find(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !h.authorize(w, r, key) {
		return
	}

	meta, err := h.store.Find(r.Context(), key)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, meta)
}

func (h *storageHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !h.authorize(w, r, key) {
		return
	}

	result, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}
	defer result.Body.Close()

	w.Header().Set("Content-Type", result.ContentType)

	if result.ContentLength > 0 {
		w.Header().Set(
			"Content-Length",
			strconv.FormatInt(result.ContentLength, 10),
		)
	}
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, result.Body)
}
