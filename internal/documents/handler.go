package documents

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kyc-backend/internal/gateway"
	"kyc-backend/internal/shared/server/middleware"
	"kyc-backend/internal/shared/server/respond"
)

// multipart framing overhead on top of the largest accepted file
const maxRequestBytes = maxUploadBytes + (1 << 20)

// Handler wires HTTP handlers to the lifecycle service.
type Handler struct {
	Svc      *Service
	pollGate *pollGate
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:      svc,
		pollGate: newPollGate(pollGateInterval),
	}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id/status", h.status)
	rg.GET("/documents/:id/result", h.result)
}

func (h *Handler) upload(c *gin.Context) {
	applicantID := middleware.ApplicantIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	category := Category(strings.ToUpper(strings.TrimSpace(c.PostForm("category"))))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")

	doc, err := h.Svc.Upload(c.Request.Context(), applicantID, category, fileHeader.Filename, mimeType, data)
	if err != nil {
		c.Set("documentId", doc.ID)
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "document already verified; re-upload is not allowed", nil)
		case errors.Is(err, gateway.ErrSubmit):
			respond.Error(c, http.StatusBadGateway, "submission_failed", "verification submission failed; please try again later", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process upload", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusCreated, toResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	applicantID := middleware.ApplicantIDFromContext(c)

	docs, err := h.Svc.List(c.Request.Context(), applicantID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.JSON(c, http.StatusOK, resp)
}

// status reads the document's current lifecycle state. While the document is
// PROCESSING this is also an advance operation: one poll attempt is made
// against the external capability (rate-limited per document) and a terminal
// answer is persisted before responding.
func (h *Handler) status(c *gin.Context) {
	applicantID := middleware.ApplicantIDFromContext(c)
	documentID := c.Param("id")
	if documentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}

	var (
		doc Document
		err error
	)
	if h.pollGate.Allow(applicantID, documentID) {
		doc, err = h.Svc.Status(c.Request.Context(), applicantID, documentID)
	} else {
		doc, err = h.Svc.Get(c.Request.Context(), applicantID, documentID)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document status", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusOK, toStatusResponse(doc))
}

func (h *Handler) result(c *gin.Context) {
	applicantID := middleware.ApplicantIDFromContext(c)
	documentID := c.Param("id")
	if documentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}

	doc, err := h.Svc.Result(c.Request.Context(), applicantID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidState):
			respond.Error(c, http.StatusBadRequest, "invalid_state", "document is not in a terminal state yet", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document result", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusOK, toResultResponse(doc))
}
