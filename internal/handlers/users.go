package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"insight-backend/internal/models"
	"insight-backend/internal/pipeline"
)

type UsersHandler struct {
	query *pipeline.QueryService
}

func NewUsersHandler(query *pipeline.QueryService) *UsersHandler {
	return &UsersHandler{query: query}
}

// Count godoc
// @Summary     Count distinct users
// @Description Scans the table and returns every distinct owner partition
// @Tags        users
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.UserCountResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /users/count [get]
func (h *UsersHandler) Count(c *gin.Context) {
	resp, err := h.query.CountUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to count users",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
