package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"insight-backend/internal/models"
	"insight-backend/internal/pipeline"
)

type ProjectsHandler struct {
	query *pipeline.QueryService
}

func NewProjectsHandler(query *pipeline.QueryService) *ProjectsHandler {
	return &ProjectsHandler{query: query}
}

// List godoc
// @Summary     List a user's projects
// @Description Returns project summaries newest-first
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       user_id path string true "Owner id"
// @Param       limit query int false "Max projects to return (default 50, max 100)"
// @Success     200 {object} models.ProjectListResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /projects/{user_id} [get]
func (h *ProjectsHandler) List(c *gin.Context) {
	userID := c.Param("user_id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid limit",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	resp, err := h.query.ListProjects(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to list projects",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Detail godoc
// @Summary     Get one project
// @Description Returns the full stored project record with computed metadata
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       user_id path string true "Owner id"
// @Param       project_id path string true "Project id (folder name)"
// @Success     200 {object} models.ProjectDetailResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /projects/{user_id}/{project_id} [get]
func (h *ProjectsHandler) Detail(c *gin.Context) {
	userID := c.Param("user_id")
	projectID := c.Param("project_id")

	resp, err := h.query.GetProject(userID, projectID)
	if errors.Is(err, pipeline.ErrProjectNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to get project",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
