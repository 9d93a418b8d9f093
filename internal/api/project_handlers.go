package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/buildtrue-server/internal/models"
)

// CreateProject accepts JSON or a multipart form with an optional projectImage
func (h *Handler) CreateProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	image, err := formFile(c, "projectImage")
	if err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.CreateProject(c.Request.Context(), req, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.service.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *Handler) GetMetrics(c *gin.Context) {
	metrics, err := h.service.GetMetrics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// ListClientProjects lists the caller's projects with unviewed counts.
// Admins may pass clientId to look at any client.
func (h *Handler) ListClientProjects(c *gin.Context) {
	resp, err := h.service.ListClientProjects(c.Request.Context(), requester(c), c.Query("clientId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetProject(c *gin.Context) {
	resp, err := h.service.GetProject(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UpdateProject(c *gin.Context) {
	var req models.UpdateProjectRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	image, err := formFile(c, "projectImage")
	if err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.UpdateProject(c.Request.Context(), c.Param("id"), req, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.service.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Project and associated assets deleted successfully"})
}
