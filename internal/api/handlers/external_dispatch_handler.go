// internal/api/handlers/external_dispatch_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mfg-backoffice-api-server/internal/dispatch"
	"mfg-backoffice-api-server/internal/models"
	"mfg-backoffice-api-server/internal/s3"
	"mfg-backoffice-api-server/internal/tracking"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ExternalDispatchHandler struct {
	Engine     *dispatch.Engine
	Tracker    *tracking.Tracker
	S3Uploader *s3.Uploader
}

type DispatchLinePayload struct {
	ProductID   string          `json:"productID" binding:"required"`
	ProductName string          `json:"productName" binding:"required"`
	Variant     string          `json:"variant"`
	BatchNumber string          `json:"batchNumber" binding:"required"`
	Quantity    models.Quantity `json:"quantity" binding:"required"`
	StockType   string          `json:"stockType"` // bulk | units
	UnitPrice   float64         `json:"unitPrice"` // 0 = tra bảng giá
}

type CreateDispatchPayload struct {
	Recipient        models.RecipientDescriptor `json:"recipient" binding:"required"`
	Items            []DispatchLinePayload      `json:"items" binding:"required"`
	Notes            string                     `json:"notes"`
	ExpectedDelivery *time.Time                 `json:"expectedDelivery"`
	Priority         string                     `json:"priority"`
}

// CreateDispatch tạo một phiếu xuất ad-hoc cho distributor hoặc
// representative, không gắn với yêu cầu nào.
func (h *ExternalDispatchHandler) CreateDispatch(c *gin.Context) {
	var payload CreateDispatchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]dispatch.LineItemInput, 0, len(payload.Items))
	for _, item := range payload.Items {
		stockType := item.StockType
		if stockType == "" {
			stockType = models.StockTypeUnits
		}
		items = append(items, dispatch.LineItemInput{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Variant:     item.Variant,
			BatchNumber: item.BatchNumber,
			Quantity:    item.Quantity,
			StockType:   stockType,
			UnitPrice:   item.UnitPrice,
		})
	}

	result, err := h.Engine.DispatchToExternal(c.Request.Context(), dispatch.ExternalDispatchInput{
		Recipient:        payload.Recipient,
		Items:            items,
		Notes:            payload.Notes,
		ExpectedDelivery: payload.ExpectedDelivery,
		Priority:         payload.Priority,
		Actor:            actorFromContext(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetAllDispatches lấy danh sách phiếu xuất, lọc theo loại bên nhận nếu có.
func (h *ExternalDispatchHandler) GetAllDispatches(c *gin.Context) {
	dispatches, err := h.Engine.ListDispatches(c.Request.Context(), c.Query("recipientType"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispatches)
}

// GetDispatch lấy chi tiết một phiếu xuất.
func (h *ExternalDispatchHandler) GetDispatch(c *gin.Context) {
	result, err := h.Engine.GetDispatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UploadProofPhoto upload ảnh minh chứng giao hàng cho một phiếu xuất
// và lưu URL vào phiếu.
func (h *ExternalDispatchHandler) UploadProofPhoto(c *gin.Context) {
	dispatchID := c.Param("id")

	if _, err := h.Engine.GetDispatch(c.Request.Context(), dispatchID); err != nil {
		respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Photo file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	objectKey := fmt.Sprintf("dispatch-proofs/%s/%s-%s", dispatchID, uuid.New().String()[:8], fileHeader.Filename)
	url, err := h.S3Uploader.UploadFile(c.Request.Context(), file, objectKey, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photo", "details": err.Error()})
		return
	}

	err = h.Engine.Store.Update(c.Request.Context(), "externalDispatches/"+dispatchID, map[string]interface{}{
		"proofPhotoURL": url,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Photo uploaded but failed to attach to dispatch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "photoURL": url})
}

// GetTracking lấy bản tổng hợp lũy kế của một bên nhận.
func (h *ExternalDispatchHandler) GetTracking(c *gin.Context) {
	aggregate, err := h.Tracker.GetAggregate(c.Request.Context(), c.Param("recipientType"), c.Param("recipientID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, aggregate)
}

// GetDispatchLogs lấy log chi tiết của một bên nhận.
func (h *ExternalDispatchHandler) GetDispatchLogs(c *gin.Context) {
	logs, err := h.Tracker.Logs(c.Request.Context(), c.Param("recipientID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetMonthlyTrend trả về xu hướng nhận hàng theo tháng của một bên nhận.
func (h *ExternalDispatchHandler) GetMonthlyTrend(c *gin.Context) {
	trend, err := h.Tracker.MonthlyTrend(c.Request.Context(), c.Param("recipientID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

// GetTopProducts xếp hạng sản phẩm của một bên nhận theo số lượng.
func (h *ExternalDispatchHandler) GetTopProducts(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	top, err := h.Tracker.TopProducts(c.Request.Context(), c.Param("recipientID"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}
