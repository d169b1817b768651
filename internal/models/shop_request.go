// internal/models/shop_request.go
package models

import "time"

// Các trạng thái của một yêu cầu lấy hàng từ cửa hàng trực tiếp.
// Chuỗi trạng thái phải giữ nguyên để tương thích với mobile app và UI cũ.
const (
	StatusPending       = "pending"
	StatusMDApproved    = "md_approved_forwarded_to_ho"
	StatusHOApproved    = "ho_approved_forwarded_to_fg"
	StatusDispatched    = "dispatched"
	StatusMDRejected    = "md_rejected"
	StatusHORejected    = "ho_rejected"
)

// Các dạng payload của yêu cầu (tagged union).
const (
	PayloadSingleProduct = "single_product"
	PayloadItemList      = "item_list"
)

// RequestItem là một dòng hàng trong payload dạng danh sách.
type RequestItem struct {
	ProductID   string   `bson:"productID" json:"productID"`
	ProductName string   `bson:"productName" json:"productName"`
	Variant     string   `bson:"variant,omitempty" json:"variant,omitempty"`
	Quantity    Quantity `bson:"quantity" json:"quantity"`
}

// RequestPayload chuẩn hóa "cái gì được yêu cầu" về một dạng duy nhất.
// Yêu cầu một sản phẩm và yêu cầu nhiều mặt hàng đều được đưa về đây
// ngay khi tạo, thay vì kiểm tra sự tồn tại của từng field ở mọi nơi.
type RequestPayload struct {
	Type  string        `bson:"type" json:"type"` // single_product | item_list
	Items []RequestItem `bson:"items" json:"items"`
}

// ApprovalEntry là một mục trong vệt phê duyệt, mỗi vòng ghi đúng một lần.
type ApprovalEntry struct {
	Stage    string    `bson:"stage" json:"stage"` // md | ho
	Actor    Actor     `bson:"actor" json:"actor"`
	Comments string    `bson:"comments,omitempty" json:"comments,omitempty"`
	At       time.Time `bson:"at" json:"at"`
}

// RejectionEntry ghi lại việc từ chối, chỉ đặt một lần và là trạng thái cuối.
type RejectionEntry struct {
	Stage  string    `bson:"stage" json:"stage"`
	Actor  Actor     `bson:"actor" json:"actor"`
	Reason string    `bson:"reason" json:"reason"`
	At     time.Time `bson:"at" json:"at"`
}

// ShopRequest là một yêu cầu lấy hàng của cửa hàng trực tiếp,
// lưu tại dsreqs/{requestID}.
type ShopRequest struct {
	RequestID string         `bson:"requestID" json:"requestID"`
	Requester Actor          `bson:"requester" json:"requester"`
	ShopName  string         `bson:"shopName,omitempty" json:"shopName,omitempty"`
	Location  string         `bson:"location,omitempty" json:"location,omitempty"`
	Payload   RequestPayload `bson:"payload" json:"payload"`
	Urgent    bool           `bson:"urgent,omitempty" json:"urgent,omitempty"`
	Notes     string         `bson:"notes,omitempty" json:"notes,omitempty"`

	Status    string          `bson:"status" json:"status"`
	Approvals []ApprovalEntry `bson:"approvals,omitempty" json:"approvals,omitempty"`
	Rejection *RejectionEntry `bson:"rejection,omitempty" json:"rejection,omitempty"`

	// Liên kết đến phiếu xuất, chỉ có sau khi xuất hàng thành công.
	DispatchID  string `bson:"dispatchID,omitempty" json:"dispatchID,omitempty"`
	ReleaseCode string `bson:"releaseCode,omitempty" json:"releaseCode,omitempty"`

	// ID của bản ghi sales approval nếu yêu cầu đi qua cầu nối sales request.
	SalesRequestID string `bson:"salesRequestID,omitempty" json:"salesRequestID,omitempty"`

	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	DispatchedAt *time.Time `bson:"dispatchedAt,omitempty" json:"dispatchedAt,omitempty"`
	DispatchedBy *Actor     `bson:"dispatchedBy,omitempty" json:"dispatchedBy,omitempty"`
}
