package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"insight-backend/internal/middleware"
	"insight-backend/internal/models"
	"insight-backend/internal/pipeline"
)

type UploadHandler struct {
	pipeline *pipeline.Pipeline
}

func NewUploadHandler(p *pipeline.Pipeline) *UploadHandler {
	return &UploadHandler{pipeline: p}
}

// Upload godoc
// @Summary     Upload and analyze a project batch
// @Description Stores the uploaded files, runs AI analysis over images, spreadsheet
// @Description and documents, and consolidates everything into one project record.
// @Tags        analyze
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       user_id formData string false "Owner id (defaults to the authenticated user)"
// @Param       title formData string false "Project title"
// @Param       context formData string false "Free-text context passed to every analysis prompt"
// @Param       image_descriptions formData string false "Per-image description, positional (repeatable)"
// @Param       images formData file false "Image files (repeatable)"
// @Param       excel formData file false "Spreadsheet file (.xlsx or .xls)"
// @Param       documents formData file false "Text documents (repeatable)"
// @Success     200 {object} models.UploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /analyze/upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse multipart form",
			Message: err.Error(),
		})
		return
	}
	form := c.Request.MultipartForm
	if form == nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse multipart form",
			Message: "multipart form is nil",
		})
		return
	}

	userID := c.PostForm("user_id")
	if userID == "" {
		if id, exists := c.Get(middleware.UserIDKey); exists {
			userID, _ = id.(string)
		}
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "user_id is required"})
		return
	}

	images := form.File["images"]
	documents := form.File["documents"]
	var spreadsheet *multipart.FileHeader
	if f := form.File["excel"]; len(f) > 0 {
		spreadsheet = f[0]
	}

	if len(images) == 0 && spreadsheet == nil && len(documents) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "no files uploaded",
			Message: "provide at least one of: images, excel, documents",
		})
		return
	}

	for _, img := range images {
		contentType := img.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid image file",
				Message: fmt.Sprintf("%s has content type %q, expected image/*", img.Filename, contentType),
			})
			return
		}
	}

	req := pipeline.UploadRequest{
		UserID:            userID,
		Title:             c.PostForm("title"),
		Context:           c.PostForm("context"),
		ImageDescriptions: form.Value["image_descriptions"],
		Images:            wrapFiles(images),
		Documents:         wrapFiles(documents),
	}
	if spreadsheet != nil {
		f := wrapFile(spreadsheet)
		req.Spreadsheet = &f
	}

	resp, err := h.pipeline.Process(c.Request.Context(), req)
	if errors.Is(err, pipeline.ErrSpreadsheetParse) || errors.Is(err, pipeline.ErrSpreadsheetEmpty) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "spreadsheet analysis failed",
			Message: err.Error(),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "upload processing failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func wrapFile(header *multipart.FileHeader) pipeline.UploadFile {
	return pipeline.UploadFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

func wrapFiles(headers []*multipart.FileHeader) []pipeline.UploadFile {
	files := make([]pipeline.UploadFile, 0, len(headers))
	for _, header := range headers {
		files = append(files, wrapFile(header))
	}
	return files
}
