package documents

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kayler1303/ACS-sub001/internal/shared/server/middleware"
	"github.com/Kayler1303/ACS-sub001/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc    *Service
	limits *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:    svc,
		limits: newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/verifications/:id/documents", h.upload)
	rg.GET("/verifications/:id/documents", h.list)
	rg.GET("/verifications/:id/documents/:documentId", h.get)
	rg.DELETE("/verifications/:id/documents/:documentId", h.delete)
}

type dateConfirmationResponse struct {
	RequiresDateConfirmation bool   `json:"requiresDateConfirmation"`
	Reason                   string `json:"reason"`
	MonthsDifference         int    `json:"monthsDifference"`
}

func (h *Handler) upload(c *gin.Context) {
	residentID := strings.TrimSpace(c.PostForm("residentId"))
	documentType := strings.TrimSpace(c.PostForm("documentType"))
	if residentID == "" || documentType == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "residentId and documentType are required", nil)
		return
	}

	var documentDate *time.Time
	if raw := strings.TrimSpace(c.PostForm("documentDate")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "documentDate must be YYYY-MM-DD", nil)
			return
		}
		documentDate = &parsed
	}
	confirm := strings.EqualFold(strings.TrimSpace(c.PostForm("confirmLeaseAssignment")), "true")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "could not read uploaded file", nil)
		return
	}
	defer file.Close()
	// Read one byte past the cap so the pre-screen sees oversized uploads.
	data, err := io.ReadAll(io.LimitReader(file, h.Svc.maxUploadBytes()+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "could not read uploaded file", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	result, err := h.Svc.Upload(ctx, UploadInput{
		VerificationID:         c.Param("id"),
		ResidentID:             residentID,
		DocumentType:           documentType,
		FileName:               fileHeader.Filename,
		Data:                   data,
		DocumentDate:           documentDate,
		ConfirmLeaseAssignment: confirm,
		UploadedBy:             middleware.StaffIDFromContext(c),
	})
	if err != nil {
		h.respondError(c, err, "failed to upload document")
		return
	}

	if result.Confirmation != nil {
		respond.JSON(c, http.StatusOK, dateConfirmationResponse{
			RequiresDateConfirmation: true,
			Reason:                   result.Confirmation.Reason,
			MonthsDifference:         result.Confirmation.MonthsDifference,
		})
		return
	}
	respond.JSON(c, http.StatusCreated, ToResponse(*result.Document))
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.ListByVerification(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to list documents")
		return
	}
	out := make([]Response, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ToResponse(doc))
	}
	respond.JSON(c, http.StatusOK, gin.H{"documents": out})
}

func (h *Handler) get(c *gin.Context) {
	documentID := c.Param("documentId")
	if !h.limits.Allow(middleware.StaffIDFromContext(c), documentID) {
		c.Header("Retry-After", strconv.Itoa(h.limits.RetryAfterSeconds()))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        "rate_limited",
			"retryAfterMs": h.limits.RetryAfterSeconds() * 1000,
		})
		c.Abort()
		return
	}

	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"), documentID)
	if err != nil {
		h.respondError(c, err, "failed to fetch document")
		return
	}
	respond.JSON(c, http.StatusOK, ToResponse(doc))
}

func (h *Handler) delete(c *gin.Context) {
	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	err := h.Svc.Delete(ctx, c.Param("id"), c.Param("documentId"))
	if err != nil {
		h.respondError(c, err, "failed to delete document")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnsupportedFile),
		errors.Is(err, ErrUnreadableFile),
		errors.Is(err, ErrFileTooLarge):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrVerificationNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "verification not found", nil)
	case errors.Is(err, ErrResidentNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resident not found on this verification", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrVerificationClosed):
		respond.Error(c, http.StatusConflict, "conflict", "verification is not accepting changes", nil)
	case errors.Is(err, ErrResidentFinalized):
		respond.Error(c, http.StatusConflict, "conflict", "resident income is finalized", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
