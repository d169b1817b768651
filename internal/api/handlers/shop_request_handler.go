// internal/api/handlers/shop_request_handler.go
package handlers

import (
	"net/http"

	"mfg-backoffice-api-server/internal/dispatch"
	"mfg-backoffice-api-server/internal/models"
	"mfg-backoffice-api-server/internal/workflow"

	"github.com/gin-gonic/gin"
)

type ShopRequestHandler struct {
	Workflow *workflow.Service
	Engine   *dispatch.Engine
}

type RequestItemPayload struct {
	ProductID   string          `json:"productID" binding:"required"`
	ProductName string          `json:"productName" binding:"required"`
	Variant     string          `json:"variant"`
	Quantity    models.Quantity `json:"quantity" binding:"required"`
}

// CreateShopRequestPayload chấp nhận cả hai dạng payload: mobile app cũ
// gửi một sản phẩm duy nhất (product), UI mới gửi danh sách (items).
type CreateShopRequestPayload struct {
	ShopName string               `json:"shopName"`
	Location string               `json:"location"`
	Product  *RequestItemPayload  `json:"product"`
	Items    []RequestItemPayload `json:"items"`
	Urgent   bool                 `json:"urgent"`
	Notes    string               `json:"notes"`
}

// CreateShopRequest tạo một yêu cầu lấy hàng mới ở trạng thái pending.
func (h *ShopRequestHandler) CreateShopRequest(c *gin.Context) {
	var payload CreateShopRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw := payload.Items
	if payload.Product != nil {
		raw = append([]RequestItemPayload{*payload.Product}, raw...)
	}
	items := make([]models.RequestItem, 0, len(raw))
	for _, item := range raw {
		items = append(items, models.RequestItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Variant:     item.Variant,
			Quantity:    item.Quantity,
		})
	}

	request, err := h.Workflow.SubmitShopRequest(c.Request.Context(), workflow.SubmitShopRequestInput{
		Requester: actorFromContext(c),
		ShopName:  payload.ShopName,
		Location:  payload.Location,
		Items:     items,
		Urgent:    payload.Urgent,
		Notes:     payload.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// GetAllShopRequests lấy danh sách yêu cầu, có thể lọc theo trạng thái.
func (h *ShopRequestHandler) GetAllShopRequests(c *gin.Context) {
	requests, err := h.Workflow.ListShopRequests(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GetShopRequest lấy chi tiết một yêu cầu.
func (h *ShopRequestHandler) GetShopRequest(c *gin.Context) {
	request, err := h.Workflow.GetShopRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type ApprovePayload struct {
	Comments string `json:"comments"`
}

// Approve duyệt yêu cầu theo vai trò của người gọi (MD hoặc HO).
func (h *ShopRequestHandler) Approve(c *gin.Context) {
	var payload ApprovePayload
	if err := c.ShouldBindJSON(&payload); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.Workflow.Approve(c.Request.Context(), c.Param("id"), actorFromContext(c), payload.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type RejectPayload struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject từ chối yêu cầu theo vai trò của người gọi. Lý do là bắt buộc.
func (h *ShopRequestHandler) Reject(c *gin.Context) {
	var payload RejectPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rejection reason is required"})
		return
	}

	request, err := h.Workflow.Reject(c.Request.Context(), c.Param("id"), actorFromContext(c), payload.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type DispatchShopRequestPayload struct {
	BatchNumber string  `json:"batchNumber" binding:"required"`
	StockType   string  `json:"stockType"` // bulk | units, mặc định units
	UnitPrice   float64 `json:"unitPrice"` // 0 = tra bảng giá
	Notes       string  `json:"notes"`
}

// Dispatch cho kho FG xuất hàng cho một yêu cầu đã duyệt đủ hai vòng.
func (h *ShopRequestHandler) Dispatch(c *gin.Context) {
	var payload DispatchShopRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Engine.DispatchDirectShopRequest(c.Request.Context(), c.Param("id"), dispatch.DispatchShopRequestInput{
		Actor:       actorFromContext(c),
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
