// internal/api/handlers/sales_request_handler.go
package handlers

import (
	"net/http"

	"mfg-backoffice-api-server/internal/dispatch"
	"mfg-backoffice-api-server/internal/models"
	"mfg-backoffice-api-server/internal/workflow"

	"github.com/gin-gonic/gin"
)

type SalesRequestHandler struct {
	Workflow *workflow.Service
	Engine   *dispatch.Engine
}

type CreateSalesRequestPayload struct {
	Requester models.Actor         `json:"requester" binding:"required"`
	Items     []RequestItemPayload `json:"items" binding:"required"`
	Notes     string               `json:"notes"`
}

// CreateSalesRequest ghi một bản ghi sales approval đã duyệt sẵn.
// Người gọi (MD hoặc HO) chính là người duyệt.
func (h *SalesRequestHandler) CreateSalesRequest(c *gin.Context) {
	var payload CreateSalesRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]models.RequestItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, models.RequestItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Variant:     item.Variant,
			Quantity:    item.Quantity,
		})
	}

	request, err := h.Workflow.CreateSalesRequest(c.Request.Context(), payload.Requester, actorFromContext(c), items, payload.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// GetAllSalesRequests lấy danh sách bản ghi sales approval.
func (h *SalesRequestHandler) GetAllSalesRequests(c *gin.Context) {
	requests, err := h.Workflow.ListSalesRequests(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GetSalesRequest lấy chi tiết một bản ghi sales approval.
func (h *SalesRequestHandler) GetSalesRequest(c *gin.Context) {
	request, err := h.Workflow.GetSalesRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type DispatchSalesRequestPayload struct {
	Recipient   models.RecipientDescriptor `json:"recipient" binding:"required"`
	BatchNumber string                     `json:"batchNumber" binding:"required"`
	StockType   string                     `json:"stockType"`
	UnitPrice   float64                    `json:"unitPrice"`
	Notes       string                     `json:"notes"`
}

// Dispatch cho kho FG hoàn tất một sales request bằng một phiếu xuất.
func (h *SalesRequestHandler) Dispatch(c *gin.Context) {
	var payload DispatchSalesRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Engine.DispatchSalesRequest(c.Request.Context(), c.Param("id"), dispatch.DispatchSalesRequestInput{
		Actor:       actorFromContext(c),
		Recipient:   payload.Recipient,
		BatchNumber: payload.BatchNumber,
		StockType:   payload.StockType,
		UnitPrice:   payload.UnitPrice,
		Notes:       payload.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
