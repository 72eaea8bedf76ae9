package leases

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kayler1303/ACS-sub001/internal/residents"
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

// RegisterRoutes attaches lease intake routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leases", h.create)
	rg.GET("/leases/:id", h.get)
	rg.POST("/leases/:id/residents", h.addResident)
}

type createLeaseRequest struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	UnitNumber     string `json:"unitNumber"`
	LeaseStartDate string `json:"leaseStartDate"`
	LeaseEndDate   string `json:"leaseEndDate"`
}

func (h *Handler) create(c *gin.Context) {
	var req createLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	startDate, err := time.Parse("2006-01-02", req.LeaseStartDate)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "leaseStartDate must be YYYY-MM-DD", nil)
		return
	}
	var endDate *time.Time
	if req.LeaseEndDate != "" {
		parsed, err := time.Parse("2006-01-02", req.LeaseEndDate)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "leaseEndDate must be YYYY-MM-DD", nil)
			return
		}
		endDate = &parsed
	}

	lease, err := h.Svc.CreateLease(c.Request.Context(), req.Name, req.Address, req.UnitNumber, startDate, endDate)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create lease", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(lease, nil))
}

func (h *Handler) get(c *gin.Context) {
	lease, members, err := h.Svc.GetWithResidents(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "lease not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch lease", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(lease, members))
}

type addResidentRequest struct {
	Name             string   `json:"name"`
	AnnualizedIncome *float64 `json:"annualizedIncome"`
}

func (h *Handler) addResident(c *gin.Context) {
	var req addResidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	res, err := h.Svc.AddResident(c.Request.Context(), c.Param("id"), req.Name, req.AnnualizedIncome)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "lease not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to add resident", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, residents.ToResponse(res))
}
