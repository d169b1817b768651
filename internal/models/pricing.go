// internal/models/pricing.go
package models

import "time"

// Các loại giá.
const (
	PriceTypeRetail      = "retail"
	PriceTypeWholesale   = "wholesale"
	PriceTypeDistributor = "distributor"
	PriceTypeSpecial     = "special"
)

// ProductPricing là bản ghi giá hiện hành của một sản phẩm, lưu tại
// productPricing/{productKey}. Ghi đè tại chỗ khi đổi giá - lịch sử
// là vệt phiên bản duy nhất.
type ProductPricing struct {
	ProductKey  string    `bson:"productKey" json:"productKey"`
	ProductName string    `bson:"productName,omitempty" json:"productName,omitempty"`
	Price       float64   `bson:"price" json:"price"`
	Currency    string    `bson:"currency" json:"currency"`
	PriceType   string    `bson:"priceType" json:"priceType"`
	EffectiveDate time.Time `bson:"effectiveDate" json:"effectiveDate"`
	UpdatedBy   Actor     `bson:"updatedBy" json:"updatedBy"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PriceHistoryEntry là một mục lịch sử giá bất biến, lưu tại
// productPriceHistory/{id}, mỗi lần đổi giá một mục.
type PriceHistoryEntry struct {
	EntryID       string    `bson:"entryID" json:"entryID"`
	ProductKey    string    `bson:"productKey" json:"productKey"`
	PreviousPrice float64   `bson:"previousPrice" json:"previousPrice"`
	NewPrice      float64   `bson:"newPrice" json:"newPrice"`
	ChangePercent float64   `bson:"changePercent" json:"changePercent"`
	Reason        string    `bson:"reason,omitempty" json:"reason,omitempty"`
	EffectiveDate time.Time `bson:"effectiveDate" json:"effectiveDate"`
	ChangedBy     Actor     `bson:"changedBy" json:"changedBy"`
	ChangedAt     time.Time `bson:"changedAt" json:"changedAt"`
}
