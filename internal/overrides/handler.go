package overrides

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kayler1303/ACS-sub001/internal/shared/server/middleware"
	"github.com/Kayler1303/ACS-sub001/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches override routes to the router group. The group
// is expected to already enforce admin access.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/overrides", h.list)
	rg.PATCH("/overrides/:id", h.resolve)
}

func (h *Handler) list(c *gin.Context) {
	status := c.DefaultQuery("status", StatusPending)
	if status == "ALL" {
		status = ""
	}

	reqs, err := h.Svc.List(c.Request.Context(), status)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list override requests", nil)
		}
		return
	}

	resp := make([]Response, 0, len(reqs))
	for _, req := range reqs {
		resp = append(resp, toResponse(req))
	}
	respond.JSON(c, http.StatusOK, resp)
}

type resolveRequest struct {
	Status          string                  `json:"status"`
	AdminNotes      string                  `json:"adminNotes"`
	CorrectedFields *correctedFieldsRequest `json:"correctedFields"`
}

func (h *Handler) resolve(c *gin.Context) {
	reviewerID := middleware.StaffIDFromContext(c)

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	var corrections *CorrectedFields
	if req.CorrectedFields != nil {
		parsed, err := req.CorrectedFields.toCorrections()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		corrections = parsed
	}

	resolved, err := h.Svc.Resolve(c.Request.Context(), c.Param("id"), reviewerID, req.Status, req.AdminNotes, corrections)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "override request not found", nil)
		case errors.Is(err, ErrAlreadyReviewed):
			respond.Error(c, http.StatusConflict, "conflict", "override request already reviewed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to resolve override request", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(resolved))
}
