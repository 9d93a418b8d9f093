package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/buildtrue-server/internal/models"
)

// Labor ledger

func (h *Handler) ListLabor(c *gin.Context) {
	resp, err := h.service.ListLabor(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) AddLabor(c *gin.Context) {
	var req models.CreateLaborRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.AddLabor(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) UpdateLabor(c *gin.Context) {
	var req models.UpdateLaborRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.UpdateLabor(c.Request.Context(), c.Param("id"), c.Param("laborId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeleteLabor(c *gin.Context) {
	resp, err := h.service.DeleteLabor(c.Request.Context(), c.Param("id"), c.Param("laborId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Material ledger

func (h *Handler) ListMaterials(c *gin.Context) {
	resp, err := h.service.ListMaterials(c.Request.Context(), requester(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UpsertUsage(c *gin.Context) {
	var req models.UsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.UpsertUsage(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UpsertPurchase(c *gin.Context) {
	var req models.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.service.UpsertPurchase(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeleteUsage(c *gin.Context) {
	resp, err := h.service.DeleteUsage(c.Request.Context(), c.Param("id"), c.Param("usageId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeletePurchase(c *gin.Context) {
	resp, err := h.service.DeletePurchase(c.Request.Context(), c.Param("id"), c.Param("purchaseId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
