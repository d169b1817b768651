// internal/api/handlers/inventory_handler.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventoryHandler struct {
	Store ledger.Store
}

func inventoryDir(stockType string) string {
	if stockType == models.StockTypeBulk {
		return "finishedGoodsInventory"
	}
	return "finishedGoodsPackagedInventory"
}

// GetAllStock liệt kê tồn kho thành phẩm. Query param stockType chọn
// giữa hàng xá (bulk) và hàng đóng gói (units, mặc định).
func (h *InventoryHandler) GetAllStock(c *gin.Context) {
	var records []models.FinishedGoodsRecord
	if err := h.Store.Query(c.Request.Context(), inventoryDir(c.Query("stockType")), nil, &records); err != nil {
		respondError(c, err)
		return
	}
	if records == nil {
		records = []models.FinishedGoodsRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// GetStock đọc một bản ghi tồn kho theo khóa đã mã hóa.
func (h *InventoryHandler) GetStock(c *gin.Context) {
	var record models.FinishedGoodsRecord
	path := inventoryDir(c.Query("stockType")) + "/" + c.Param("key")
	if err := h.Store.Get(c.Request.Context(), path, &record); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type ReceiveStockPayload struct {
	ProductID   string  `json:"productID" binding:"required"`
	ProductName string  `json:"productName"`
	Variant     string  `json:"variant"`
	BatchNumber string  `json:"batchNumber" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required"`
	Unit        string  `json:"unit"`
	StockType   string  `json:"stockType"` // bulk | units
	Location    string  `json:"location"`
}

// ReceiveStock nhập thêm thành phẩm vào kho và ghi một mục audit chiều vào.
func (h *InventoryHandler) ReceiveStock(c *gin.Context) {
	var payload ReceiveStockPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be positive"})
		return
	}

	key := models.InventoryKey{
		ProductID:   payload.ProductID,
		BatchNumber: payload.BatchNumber,
	}
	if payload.StockType != models.StockTypeBulk {
		key.Variant = payload.Variant
	}
	encodedKey := key.Encode()
	path := inventoryDir(payload.StockType) + "/" + encodedKey

	ctx := c.Request.Context()
	var record models.FinishedGoodsRecord
	err := h.Store.Get(ctx, path, &record)
	if errors.Is(err, ledger.ErrNotFound) {
		record = models.FinishedGoodsRecord{
			Key:         encodedKey,
			ProductID:   payload.ProductID,
			ProductName: payload.ProductName,
			Variant:     key.Variant,
			BatchNumber: payload.BatchNumber,
			Unit:        payload.Unit,
			Location:    payload.Location,
		}
	} else if err != nil {
		respondError(c, err)
		return
	}

	record.Quantity += payload.Quantity
	record.UpdatedAt = time.Now()
	if err := h.Store.Set(ctx, path, record); err != nil {
		respondError(c, err)
		return
	}

	movement := models.InventoryMovement{
		MovementID: uuid.New().String(),
		Key:        encodedKey,
		Direction:  "in",
		Quantity:   payload.Quantity,
		Reason:     "stock received",
		Location:   record.Location,
		At:         record.UpdatedAt,
	}
	if err := h.Store.Set(ctx, "inventoryMovements/"+movement.MovementID, movement); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetMovements liệt kê các mục audit xuất/nhập của một khóa tồn kho.
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	var movements []models.InventoryMovement
	filter := map[string]interface{}{"key": c.Param("key")}
	if err := h.Store.Query(c.Request.Context(), "inventoryMovements", filter, &movements); err != nil {
		respondError(c, err)
		return
	}
	if movements == nil {
		movements = []models.InventoryMovement{}
	}
	c.JSON(http.StatusOK, movements)
}
