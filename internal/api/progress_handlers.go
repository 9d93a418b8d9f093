package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/buildtrue-server/internal/models"
)

// CreateProgress accepts a multipart form with up to the configured number of
// media files, or plain JSON without media
func (h *Handler) CreateProgress(c *gin.Context) {
	var req models.ProgressRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	media, err := formFiles(c, "media")
	if err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.CreateProgress(c.Request.Context(), c.Param("id"), req, media)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) ListProgress(c *gin.Context) {
	resp, err := h.service.ListProgress(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetProgress(c *gin.Context) {
	resp, err := h.service.GetProgress(c.Request.Context(), requester(c), c.Param("progressId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UpdateProgress(c *gin.Context) {
	var req models.ProgressRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	media, err := formFiles(c, "media")
	if err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.UpdateProgress(c.Request.Context(), c.Param("id"), c.Param("progressId"), req, media)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeleteProgress(c *gin.Context) {
	if err := h.service.DeleteProgress(c.Request.Context(), c.Param("id"), c.Param("progressId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Progress update deleted"})
}

func (h *Handler) AddMessage(c *gin.Context) {
	var req models.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.AddMessage(c.Request.Context(), requester(c), c.Param("progressId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) MarkViewed(c *gin.Context) {
	resp, err := h.service.MarkViewed(c.Request.Context(), requester(c), c.Param("progressId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) NotifyProgress(c *gin.Context) {
	if err := h.service.NotifyProgress(c.Request.Context(), c.Param("id"), c.Param("progressId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Notification sent successfully"})
}
