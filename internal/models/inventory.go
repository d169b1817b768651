// internal/models/inventory.go
package models

import (
	"strings"
	"time"
)

// Loại tồn kho thành phẩm.
const (
	StockTypeBulk  = "bulk"  // hàng xá, lưu tại finishedGoodsInventory
	StockTypeUnits = "units" // hàng đã đóng gói, lưu tại finishedGoodsPackagedInventory
)

// InventoryKey là khóa tổng hợp của một bản ghi tồn kho. Các bản ghi cũ
// dùng chuỗi nối bằng "_" nên tên sản phẩm chứa "_" có thể va chạm khóa;
// value object này escape ký tự phân cách khi mã hóa để loại trừ điều đó.
type InventoryKey struct {
	ProductID   string
	Variant     string // rỗng với hàng xá
	BatchNumber string
}

var keyEscaper = strings.NewReplacer("%", "%25", "_", "%5F")
var keyUnescaper = strings.NewReplacer("%5F", "_", "%25", "%")

// Encode trả về khóa chuỗi dùng làm ID tài liệu tồn kho.
func (k InventoryKey) Encode() string {
	parts := []string{keyEscaper.Replace(k.ProductID)}
	if k.Variant != "" {
		parts = append(parts, keyEscaper.Replace(k.Variant))
	}
	parts = append(parts, keyEscaper.Replace(k.BatchNumber))
	return strings.Join(parts, "_")
}

// DecodeInventoryKey dựng lại khóa từ chuỗi đã mã hóa.
// Chuỗi 2 phần là hàng xá, 3 phần là hàng đóng gói.
func DecodeInventoryKey(s string) InventoryKey {
	parts := strings.Split(s, "_")
	for i := range parts {
		parts[i] = keyUnescaper.Replace(parts[i])
	}
	switch len(parts) {
	case 2:
		return InventoryKey{ProductID: parts[0], BatchNumber: parts[1]}
	case 3:
		return InventoryKey{ProductID: parts[0], Variant: parts[1], BatchNumber: parts[2]}
	default:
		return InventoryKey{ProductID: s}
	}
}

// FinishedGoodsRecord là một tài liệu tồn kho thành phẩm, khóa theo
// InventoryKey đã mã hóa.
type FinishedGoodsRecord struct {
	Key         string    `bson:"key" json:"key"`
	ProductID   string    `bson:"productID" json:"productID"`
	ProductName string    `bson:"productName,omitempty" json:"productName,omitempty"`
	Variant     string    `bson:"variant,omitempty" json:"variant,omitempty"`
	BatchNumber string    `bson:"batchNumber" json:"batchNumber"`
	Quantity    float64   `bson:"quantity" json:"quantity"`
	Unit        string    `bson:"unit,omitempty" json:"unit,omitempty"`
	Location    string    `bson:"location,omitempty" json:"location,omitempty"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// InventoryMovement là một mục audit xuất/nhập kho, lưu tại
// inventoryMovements/{id}, append-only.
type InventoryMovement struct {
	MovementID string    `bson:"movementID" json:"movementID"`
	Key        string    `bson:"key" json:"key"`
	Direction  string    `bson:"direction" json:"direction"` // in | out
	Quantity   float64   `bson:"quantity" json:"quantity"`
	Reason     string    `bson:"reason" json:"reason"`
	Source     string    `bson:"source,omitempty" json:"source,omitempty"`
	Location   string    `bson:"location,omitempty" json:"location,omitempty"`
	At         time.Time `bson:"at" json:"at"`
}
