// internal/models/notification.go
package models

import "time"

// Trạng thái giao của một thông báo trong outbox.
const (
	NotificationPending   = "pending"
	NotificationDelivered = "delivered"
	NotificationFailed    = "failed" // đã hết số lần thử lại
)

// Notification là một thông báo cho người dùng nội bộ, lưu tại
// notifications/{userID}/{id}. Ghi vào outbox luôn thành công về phía
// workflow; việc giao đi do dispatcher nền đảm nhiệm.
type Notification struct {
	NotificationID string                 `bson:"notificationID" json:"notificationID"`
	UserID         string                 `bson:"userID" json:"userID"`
	Event          string                 `bson:"event" json:"event"`
	Title          string                 `bson:"title" json:"title"`
	Body           string                 `bson:"body,omitempty" json:"body,omitempty"`
	Data           map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`

	Status      string     `bson:"status" json:"status"`
	Attempts    int        `bson:"attempts" json:"attempts"`
	NextRetryAt time.Time  `bson:"nextRetryAt" json:"nextRetryAt"`
	DeliveredAt *time.Time `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
}

// MobileNotification là thông báo cho mobile client, khóa theo
// recipient hoặc requestID: mobileNotifications/{key}/{id}.
type MobileNotification struct {
	NotificationID string                 `bson:"notificationID" json:"notificationID"`
	TargetKey      string                 `bson:"targetKey" json:"targetKey"`
	Event          string                 `bson:"event" json:"event"`
	Title          string                 `bson:"title" json:"title"`
	Body           string                 `bson:"body,omitempty" json:"body,omitempty"`
	Data           map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`

	Status      string     `bson:"status" json:"status"`
	Attempts    int        `bson:"attempts" json:"attempts"`
	NextRetryAt time.Time  `bson:"nextRetryAt" json:"nextRetryAt"`
	DeliveredAt *time.Time `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
}
