package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/buildtrue-server/internal/models"
)

// SubmitLead stores a public contact-form submission
func (h *Handler) SubmitLead(c *gin.Context) {
	var req models.LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.SubmitLead(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) ListLeads(c *gin.Context) {
	leads, err := h.service.ListLeads(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, leads)
}

func (h *Handler) VerifyLead(c *gin.Context) {
	resp, err := h.service.VerifyLead(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
