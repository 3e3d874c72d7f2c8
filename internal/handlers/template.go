package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/testplan-ai/backend/internal/metrics"
	"github.com/testplan-ai/backend/internal/services"
	"github.com/testplan-ai/backend/pkg/response"
)

type TemplateHandler struct {
	templates *services.TemplateService
	maxBytes  int64
}

func NewTemplateHandler(templates *services.TemplateService, maxBytes int64) *TemplateHandler {
	return &TemplateHandler{templates: templates, maxBytes: maxBytes}
}

func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.List()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"templates": templates})
}

func (h *TemplateHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	template, err := h.templates.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"template": template})
}

// Upload godoc
// @Summary Upload a PDF template
// @Tags Templates
// @Accept multipart/form-data
// @Param template formData file true "PDF file"
// @Param name formData string false "Display name"
// @Router /api/templates/upload [post]
func (h *TemplateHandler) Upload(c *gin.Context) {
	// Leave headroom for the multipart envelope around the file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)

	fileHeader, err := c.FormFile("template")
	if err != nil {
		response.BadRequest(c, "No file uploaded")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "Could not read uploaded file")
		return
	}
	defer file.Close()

	preview, err := h.templates.Upload(c.Request.Context(), services.UploadRequest{
		Name:        c.PostForm("name"),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	})
	metrics.Global().TemplateUploads.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"template": preview})
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	deleted, err := h.templates.DeleteByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !deleted {
		response.NotFound(c, "Template not found")
		return
	}
	response.Success(c, gin.H{"message": "Template deleted"})
}
