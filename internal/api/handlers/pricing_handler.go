// internal/api/handlers/pricing_handler.go
package handlers

import (
	"net/http"
	"time"

	"mfg-backoffice-api-server/internal/pricing"

	"github.com/gin-gonic/gin"
)

type PricingHandler struct {
	Resolver *pricing.Resolver
}

// GetPrice tra bản ghi giá sống của một sản phẩm.
func (h *PricingHandler) GetPrice(c *gin.Context) {
	record, err := h.Resolver.Resolve(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pricing record found for this product"})
		return
	}
	c.JSON(http.StatusOK, record)
}

type UpdatePricePayload struct {
	Price         float64    `json:"price" binding:"required"`
	Reason        string     `json:"reason"`
	EffectiveDate *time.Time `json:"effectiveDate"`
}

// UpdatePrice đổi giá sống của một sản phẩm, lưu lịch sử nếu giá thay đổi.
func (h *PricingHandler) UpdatePrice(c *gin.Context) {
	var payload UpdatePricePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	effectiveDate := time.Now()
	if payload.EffectiveDate != nil {
		effectiveDate = *payload.EffectiveDate
	}

	record, err := h.Resolver.UpdatePrice(c.Request.Context(), c.Param("key"), payload.Price, payload.Reason, effectiveDate, actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetHistory lấy lịch sử giá của một sản phẩm.
func (h *PricingHandler) GetHistory(c *gin.Context) {
	entries, err := h.Resolver.History(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
