package documents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

const maxUploadSize = 25 << 20 // 25MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/controls/:id/documents", h.upload)
	rg.GET("/controls/:id/documents", h.list)
	rg.GET("/links/:id", h.getLink)
	rg.POST("/links/:id/rescan", h.rescan)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	controlID := c.Param("id")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

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

	doc, link, err := h.Svc.Upload(c.Request.Context(), userID, controlID, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(LinkedDocument{Document: doc, Link: link}))
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Svc.ListForControl(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}

	resp := make([]LinkedDocumentResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}
	respond.OK(c, gin.H{"documents": resp})
}

func (h *Handler) getLink(c *gin.Context) {
	link, err := h.Svc.Link(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrLinkNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "link not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch link", nil)
		}
		return
	}
	respond.OK(c, gin.H{
		"linkId":     link.ID,
		"documentId": link.DocumentID,
		"controlId":  link.ControlID,
		"status":     link.Status,
		"error":      link.Error,
		"updatedAt":  link.UpdatedAt,
	})
}

func (h *Handler) rescan(c *gin.Context) {
	link, err := h.Svc.Rescan(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrLinkNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "link not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to queue rescan", nil)
		}
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{
		"linkId": link.ID,
		"status": link.Status,
	})
}
