// internal/models/sales_request.go
package models

import "time"

// Trạng thái của biến thể sales request. Chuỗi phải giữ nguyên
// (chú ý "Approved" viết hoa - dữ liệu cũ đã lưu như vậy).
const (
	SalesStatusApproved = "Approved"
	SalesStatusSent     = "sent"
)

// SalesRequest là biến thể yêu cầu bán hàng với chuỗi duyệt ngắn hơn:
// MD và HO gộp thành một trạng thái Approved duy nhất, sau đó kho FG
// hoàn tất. Lưu tại salesApprovalHistory/{requestID}.
type SalesRequest struct {
	RequestID string         `bson:"requestID" json:"requestID"`
	Requester Actor          `bson:"requester" json:"requester"`
	Payload   RequestPayload `bson:"payload" json:"payload"`
	Notes     string         `bson:"notes,omitempty" json:"notes,omitempty"`

	Status          string     `bson:"status" json:"status"`
	ApprovedBy      *Actor     `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	IsCompletedByFG bool       `bson:"isCompletedByFG" json:"isCompletedByFG"`
	SentAt          *time.Time `bson:"sentAt,omitempty" json:"sentAt,omitempty"`

	DispatchID  string `bson:"dispatchID,omitempty" json:"dispatchID,omitempty"`
	ReleaseCode string `bson:"releaseCode,omitempty" json:"releaseCode,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
