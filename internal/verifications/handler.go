package verifications

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kayler1303/ACS-sub001/internal/leases"
	"github.com/Kayler1303/ACS-sub001/internal/residents"
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

// RegisterRoutes attaches verification routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/verifications", h.start)
	rg.GET("/verifications/:id", h.get)
	rg.PATCH("/verifications/:id", h.finalize)
	rg.GET("/verifications/:id/discrepancies", h.discrepancies)
	rg.POST("/verifications/:id/residents/:residentId/discrepancy", h.resolveDiscrepancy)
	rg.PATCH("/verifications/:id/residents/:residentId/finalize", h.finalizeResident)
	rg.PATCH("/verifications/:id/residents/:residentId/unfinalize", h.unfinalizeResident)
	rg.PATCH("/verifications/:id/residents/:residentId/no-income", h.markNoIncome)
}

type startRequest struct {
	LeaseID                 string `json:"leaseId"`
	Reason                  string `json:"reason"`
	VerificationPeriodStart string `json:"verificationPeriodStart"`
	VerificationPeriodEnd   string `json:"verificationPeriodEnd"`
	DueDate                 string `json:"dueDate"`
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.LeaseID) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "leaseId is required", nil)
		return
	}

	input := StartInput{
		LeaseID:   strings.TrimSpace(req.LeaseID),
		Reason:    req.Reason,
		Supersede: strings.EqualFold(strings.TrimSpace(c.Query("supersede")), "true"),
	}
	var ok bool
	if input.PeriodStart, ok = dayField(req.VerificationPeriodStart); !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "verificationPeriodStart must be YYYY-MM-DD", nil)
		return
	}
	if input.PeriodEnd, ok = dayField(req.VerificationPeriodEnd); !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "verificationPeriodEnd must be YYYY-MM-DD", nil)
		return
	}
	if input.DueDate, ok = dayField(req.DueDate); !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "dueDate must be YYYY-MM-DD", nil)
		return
	}

	v, err := h.Svc.Start(c.Request.Context(), input)
	if err != nil {
		// A conflict carries the live verification so the caller can resume it.
		if errors.Is(err, ErrLeaseConflict) && v.ID != "" {
			respond.Error(c, http.StatusConflict, "conflict", "lease already has a verification in progress",
				gin.H{"existingVerificationId": v.ID})
			return
		}
		h.respondError(c, err, "failed to start verification")
		return
	}
	respond.JSON(c, http.StatusCreated, ToResponse(v))
}

func (h *Handler) get(c *gin.Context) {
	v, views, err := h.Svc.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to fetch verification")
		return
	}
	respond.JSON(c, http.StatusOK, ToSnapshotResponse(v, views))
}

type patchVerificationRequest struct {
	Status string `json:"status"`
}

func (h *Handler) finalize(c *gin.Context) {
	var req patchVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.ToUpper(strings.TrimSpace(req.Status)) != StatusFinalized {
		respond.Error(c, http.StatusBadRequest, "validation_error", "status must be FINALIZED", nil)
		return
	}

	v, err := h.Svc.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to finalize verification")
		return
	}
	respond.JSON(c, http.StatusOK, ToResponse(v))
}

func (h *Handler) discrepancies(c *gin.Context) {
	report, err := h.Svc.Discrepancies(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to build discrepancy report")
		return
	}
	respond.JSON(c, http.StatusOK, ToDiscrepancyReportResponse(report))
}

type resolveDiscrepancyRequest struct {
	Resolution string `json:"resolution"`
}

func (h *Handler) resolveDiscrepancy(c *gin.Context) {
	var req resolveDiscrepancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Resolution) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resolution is required", nil)
		return
	}

	res, err := h.Svc.ResolveDiscrepancy(c.Request.Context(),
		c.Param("id"), c.Param("residentId"), req.Resolution, middleware.StaffIDFromContext(c))
	if err != nil {
		h.respondError(c, err, "failed to resolve discrepancy")
		return
	}
	respond.JSON(c, http.StatusOK, residents.ToResponse(res))
}

func (h *Handler) finalizeResident(c *gin.Context) {
	res, err := h.Svc.FinalizeResident(c.Request.Context(), c.Param("id"), c.Param("residentId"))
	if err != nil {
		h.respondError(c, err, "failed to finalize resident income")
		return
	}
	respond.JSON(c, http.StatusOK, residents.ToResponse(res))
}

func (h *Handler) unfinalizeResident(c *gin.Context) {
	res, err := h.Svc.UnfinalizeResident(c.Request.Context(), c.Param("id"), c.Param("residentId"))
	if err != nil {
		h.respondError(c, err, "failed to unfinalize resident income")
		return
	}
	respond.JSON(c, http.StatusOK, residents.ToResponse(res))
}

func (h *Handler) markNoIncome(c *gin.Context) {
	res, err := h.Svc.MarkNoIncome(c.Request.Context(), c.Param("id"), c.Param("residentId"))
	if err != nil {
		h.respondError(c, err, "failed to record no-income declaration")
		return
	}
	respond.JSON(c, http.StatusOK, residents.ToResponse(res))
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "verification not found", nil)
	case errors.Is(err, leases.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "lease not found", nil)
	case errors.Is(err, residents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resident not found on this lease", nil)
	case errors.Is(err, ErrLeaseConflict):
		respond.Error(c, http.StatusConflict, "conflict", "lease already has a verification in progress", nil)
	case errors.Is(err, ErrAlreadyFinalized):
		respond.Error(c, http.StatusConflict, "conflict", "verification is already finalized", nil)
	case errors.Is(err, ErrResidentsNotFinalized),
		errors.Is(err, ErrUnresolvedDiscrepancy),
		errors.Is(err, ErrResidentFinalized),
		errors.Is(err, ErrResidentNotFinalized),
		errors.Is(err, ErrFinalizeBlocked):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func dayField(raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}
