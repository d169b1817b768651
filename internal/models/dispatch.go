// internal/models/dispatch.go
package models

import "time"

// RecipientDescriptor mô tả bên nhận hàng của một phiếu xuất.
type RecipientDescriptor struct {
	Type     string `bson:"type" json:"type"` // direct_shop | distributor | direct_representative
	ID       string `bson:"id" json:"id"`
	Name     string `bson:"name" json:"name"`
	Role     string `bson:"role,omitempty" json:"role,omitempty"`
	Location string `bson:"location,omitempty" json:"location,omitempty"`
	ShopName string `bson:"shopName,omitempty" json:"shopName,omitempty"`
}

// DispatchLineItem là một dòng hàng trên phiếu xuất. Đơn giá được
// "đóng băng" tại thời điểm xuất, không tham chiếu lại bảng giá.
type DispatchLineItem struct {
	ProductID   string   `bson:"productID" json:"productID"`
	ProductName string   `bson:"productName" json:"productName"`
	Variant     string   `bson:"variant,omitempty" json:"variant,omitempty"`
	BatchNumber string   `bson:"batchNumber" json:"batchNumber"`
	Quantity    Quantity `bson:"quantity" json:"quantity"`
	StockType   string   `bson:"stockType" json:"stockType"` // bulk | units
	UnitPrice   float64  `bson:"unitPrice" json:"unitPrice"`
	LineTotal   float64  `bson:"lineTotal" json:"lineTotal"`
}

// ExternalDispatch là một phiếu xuất hàng ra ngoài, lưu tại
// externalDispatches/{dispatchID}. Bất biến sau khi tạo trừ Status.
type ExternalDispatch struct {
	DispatchID  string              `bson:"dispatchID" json:"dispatchID"`
	ReleaseCode string              `bson:"releaseCode" json:"releaseCode"`
	Recipient   RecipientDescriptor `bson:"recipient" json:"recipient"`
	Items       []DispatchLineItem  `bson:"items" json:"items"`

	// Các số liệu tổng hợp, tính một lần lúc tạo và không tính lại.
	TotalItems    int     `bson:"totalItems" json:"totalItems"`
	TotalQuantity float64 `bson:"totalQuantity" json:"totalQuantity"`
	TotalValue    float64 `bson:"totalValue" json:"totalValue"`

	Status           string     `bson:"status" json:"status"` // dispatched
	Notes            string     `bson:"notes,omitempty" json:"notes,omitempty"`
	ExpectedDelivery *time.Time `bson:"expectedDelivery,omitempty" json:"expectedDelivery,omitempty"`
	Priority         string     `bson:"priority,omitempty" json:"priority,omitempty"`
	ProofPhotoURL    string     `bson:"proofPhotoURL,omitempty" json:"proofPhotoURL,omitempty"`

	DispatchedBy Actor     `bson:"dispatchedBy" json:"dispatchedBy"`
	SourceRequestID string `bson:"sourceRequestID,omitempty" json:"sourceRequestID,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// Các bước của một lần xuất hàng, ghi nhận trên intent để chẩn đoán
// và chạy lại được khi lỗi giữa chừng.
const (
	StepDispatchPersisted   = "dispatch_persisted"
	StepInventoryAdjusted   = "inventory_adjusted"
	StepTrackingUpdated     = "tracking_updated"
	StepNotificationsQueued = "notifications_queued"
)

// Trạng thái của intent.
const (
	IntentPending   = "pending"
	IntentCompleted = "completed"
	IntentFailed    = "failed"
)

// DispatchIntent là bản ghi ý định xuất hàng, lưu tại
// externalDispatchIntents/{intentID} TRƯỚC khi thực hiện các side effect.
// Mỗi bước hoàn thành được đánh dấu vào CompletedSteps; nếu server chết
// giữa chừng, intent pending cho biết chính xác hệ thống đang dở ở đâu.
type DispatchIntent struct {
	IntentID       string    `bson:"intentID" json:"intentID"`
	DispatchID     string    `bson:"dispatchID" json:"dispatchID"`
	Status         string    `bson:"status" json:"status"`
	CompletedSteps []string  `bson:"completedSteps" json:"completedSteps"`
	FailedStep     string    `bson:"failedStep,omitempty" json:"failedStep,omitempty"`
	FailureReason  string    `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}
