package claims

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/parasol-ins/parasol/internal/escrow"
	"github.com/parasol-ins/parasol/pkg/handlers"
	"github.com/parasol-ins/parasol/pkg/middleware"
	"github.com/parasol-ins/parasol/pkg/pagination"
	"github.com/parasol-ins/parasol/pkg/routes"
)

// Handler provides HTTP endpoints for claim operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
	operators     map[string]bool
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, pagination
// config, upload size limit, and operator subjects allowed to sweep.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
	operators []string,
) *Handler {
	ops := make(map[string]bool, len(operators))
	for _, op := range operators {
		ops[op] = true
	}

	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "claims"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
		operators:     ops,
	}
}

// Routes returns the route group definition for claim endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/claims",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/sweep", Handler: h.Sweep},
			{Method: "POST", Pattern: "/{id}/evaluate", Handler: h.Evaluate},
			{Method: "POST", Pattern: "/{id}/payout", Handler: h.Payout},
		},
	}
}

// List returns the authenticated user's claims with optional query
// parameter filters, most recent first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrUnauthorized)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), userID, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns one of the authenticated user's claims by its UUID path
// parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	claim, err := h.sys.Find(r.Context(), id, userID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, claim)
}

// Create processes a multipart claim submission: policy_id, incident_date,
// details, and an evidence file. The claim is persisted SUBMITTED, then
// evaluated and, where the verdict allows, paid out in the same request.
// The pipeline runs on a context detached from the client connection so a
// disconnect cannot orphan a claim mid-evaluation.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	policyID, err := uuid.Parse(r.FormValue("policy_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrPolicyNotFound)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrEvidenceRequired)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrEvidenceRequired)
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), data)

	pages, err := probeEvidence(data, contentType)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	cmd := CreateCommand{
		PolicyID:     policyID,
		IncidentDate: r.FormValue("incident_date"),
		Details:      r.FormValue("details"),
		Filename:     header.Filename,
		ContentType:  contentType,
		Data:         data,
		Pages:        pages,
	}

	session := r.Header.Get(escrow.SessionHeader)

	// Detached: the submission pipeline survives a client disconnect.
	ctx := context.WithoutCancel(r.Context())

	claim, err := h.sys.Create(ctx, userID, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	evaluated, err := h.sys.Evaluate(ctx, session, claim.ID, userID)
	if err != nil {
		// The claim exists; partner trouble is reported through its status,
		// not as a submission failure.
		h.logger.Warn("post-submission evaluation incomplete",
			"claim_id", claim.ID, "error", err)
		if evaluated != nil {
			claim = evaluated
		}
		handlers.RespondJSON(w, http.StatusCreated, claim)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, evaluated)
}

// Search accepts a JSON body with pagination and filter criteria and
// returns the authenticated user's matching claims.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrUnauthorized)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), userID, req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Evaluate re-runs automated evaluation on a SUBMITTED claim. Used when
// the evaluation partner was unavailable at submission.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	session := r.Header.Get(escrow.SessionHeader)

	claim, err := h.sys.Evaluate(r.Context(), session, id, userID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, claim)
}

// Payout retries escrow settlement for an APPROVED claim.
func (h *Handler) Payout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrUnauthorized)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	session := r.Header.Get(escrow.SessionHeader)

	claim, err := h.sys.Payout(r.Context(), session, id, userID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, claim)
}

// Sweep retries payout across all APPROVED claims. It crosses claim
// owners, so only configured operator subjects may call it.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrUnauthorized)
		return
	}
	if !h.operators[userID] {
		handlers.RespondError(w, h.logger, http.StatusForbidden, ErrOperatorRequired)
		return
	}

	session := r.Header.Get(escrow.SessionHeader)

	result, err := h.sys.Sweep(r.Context(), session)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		if i := strings.Index(header, ";"); i >= 0 {
			header = strings.TrimSpace(header[:i])
		}
		return header
	}
	return http.DetectContentType(data)
}

// probeEvidence validates PDF evidence structurally and extracts its page
// count. Non-PDF evidence passes through with no page count.
func probeEvidence(data []byte, contentType string) (*int, error) {
	if contentType != "application/pdf" {
		return nil, nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, ErrUnsupportedEvidence
	}

	return &count, nil
}
