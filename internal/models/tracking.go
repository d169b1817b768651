// internal/models/tracking.go
package models

import "time"

// RecipientTracking là bản tổng hợp lũy kế theo từng bên nhận, lưu tại
// {recipientType}Tracking/{recipientID}. Các bộ đếm chỉ tăng, không giảm.
// Version dùng cho cập nhật lạc quan: ghi chỉ thành công khi version
// trên store vẫn là version đã đọc.
type RecipientTracking struct {
	RecipientID   string  `bson:"recipientID" json:"recipientID"`
	RecipientType string  `bson:"recipientType" json:"recipientType"`
	RecipientName string  `bson:"recipientName,omitempty" json:"recipientName,omitempty"`

	DispatchCount    int     `bson:"dispatchCount" json:"dispatchCount"`
	ItemsReceived    int     `bson:"itemsReceived" json:"itemsReceived"`
	QuantityReceived float64 `bson:"quantityReceived" json:"quantityReceived"`
	ValueReceived    float64 `bson:"valueReceived" json:"valueReceived"`

	LastDispatchDate *time.Time `bson:"lastDispatchDate,omitempty" json:"lastDispatchDate,omitempty"`
	LastDispatchID   string     `bson:"lastDispatchID,omitempty" json:"lastDispatchID,omitempty"`
	LastReleaseCode  string     `bson:"lastReleaseCode,omitempty" json:"lastReleaseCode,omitempty"`
	LastProduct      string     `bson:"lastProduct,omitempty" json:"lastProduct,omitempty"`
	LastQuantity     float64    `bson:"lastQuantity,omitempty" json:"lastQuantity,omitempty"`

	FirstDispatchDate *time.Time `bson:"firstDispatchDate,omitempty" json:"firstDispatchDate,omitempty"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
	Version           int64      `bson:"version" json:"version"`
}

// DetailedDispatchLog là một mục log phi chuẩn hóa cho analytics, lưu tại
// detailedDispatchLogs/{recipientID}/{id}, append-only. Reader analytics
// chỉ cần nguồn này; bản tổng hợp ở trên chỉ là đường tắt.
type DetailedDispatchLog struct {
	LogID         string             `bson:"logID" json:"logID"`
	RecipientID   string             `bson:"recipientID" json:"recipientID"`
	RecipientType string             `bson:"recipientType" json:"recipientType"`
	DispatchID    string             `bson:"dispatchID" json:"dispatchID"`
	ReleaseCode   string             `bson:"releaseCode" json:"releaseCode"`
	Items         []DispatchLineItem `bson:"items" json:"items"`
	TotalQuantity float64            `bson:"totalQuantity" json:"totalQuantity"`
	TotalValue    float64            `bson:"totalValue" json:"totalValue"`
	DispatchedAt  time.Time          `bson:"dispatchedAt" json:"dispatchedAt"`
}

// TrackingEvent là một sự kiện phẳng trong externalDispatchTracking/{id}.
type TrackingEvent struct {
	EventID       string    `bson:"eventID" json:"eventID"`
	DispatchID    string    `bson:"dispatchID" json:"dispatchID"`
	ReleaseCode   string    `bson:"releaseCode" json:"releaseCode"`
	RecipientID   string    `bson:"recipientID" json:"recipientID"`
	RecipientType string    `bson:"recipientType" json:"recipientType"`
	TotalValue    float64   `bson:"totalValue" json:"totalValue"`
	At            time.Time `bson:"at" json:"at"`
}

// MonthlyTrendPoint là một điểm trên báo cáo xu hướng theo tháng.
type MonthlyTrendPoint struct {
	Month         string  `json:"month"` // YYYY-MM
	DispatchCount int     `json:"dispatchCount"`
	TotalQuantity float64 `json:"totalQuantity"`
	TotalValue    float64 `json:"totalValue"`
}

// TopProduct là một dòng trong báo cáo sản phẩm nhận nhiều nhất.
type TopProduct struct {
	ProductID     string  `json:"productID"`
	ProductName   string  `json:"productName"`
	TotalQuantity float64 `json:"totalQuantity"`
	TotalValue    float64 `json:"totalValue"`
}
