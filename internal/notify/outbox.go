// internal/notify/outbox.go
package notify

import (
	"context"
	"log"
	"time"

	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"

	"github.com/google/uuid"
)

// Outbox ghi thông báo vào kho trước, dispatcher nền lo việc giao đi.
// Mọi lời gọi từ workflow đều best-effort: lỗi được nuốt và ghi log,
// không bao giờ lan ngược về thao tác cha.
type Outbox struct {
	Store ledger.Store
}

func NewOutbox(store ledger.Store) *Outbox {
	return &Outbox{Store: store}
}

// NotifyRole fan-out một thông báo đến mọi người dùng mang vai trò đó:
// quét thư mục users và ghi một mục outbox cho từng người khớp.
func (o *Outbox) NotifyRole(ctx context.Context, role string, event, title, body string, data map[string]interface{}) {
	var users []models.User
	if err := o.Store.Query(ctx, "users", map[string]interface{}{"role": role}, &users); err != nil {
		log.Printf("notify: failed to scan users for role %s: %v", role, err)
		return
	}
	if len(users) == 0 {
		log.Printf("notify: no users found for role %s, notification dropped", role)
		return
	}

	now := time.Now()
	for _, user := range users {
		notification := models.Notification{
			NotificationID: uuid.New().String(),
			UserID:         user.UserID,
			Event:          event,
			Title:          title,
			Body:           body,
			Data:           data,
			Status:         models.NotificationPending,
			NextRetryAt:    now,
			CreatedAt:      now,
		}
		path := "notifications/" + user.UserID + "/" + notification.NotificationID
		if err := o.Store.Set(ctx, path, notification); err != nil {
			log.Printf("notify: failed to enqueue notification for %s: %v", user.UserID, err)
		}
	}
}

// NotifyMobile ghi một thông báo cho mobile client, key theo recipient
// hoặc requestID.
func (o *Outbox) NotifyMobile(ctx context.Context, targetKey string, event, title, body string, data map[string]interface{}) {
	now := time.Now()
	notification := models.MobileNotification{
		NotificationID: uuid.New().String(),
		TargetKey:      targetKey,
		Event:          event,
		Title:          title,
		Body:           body,
		Data:           data,
		Status:         models.NotificationPending,
		NextRetryAt:    now,
		CreatedAt:      now,
	}
	path := "mobileNotifications/" + targetKey + "/" + notification.NotificationID
	if err := o.Store.Set(ctx, path, notification); err != nil {
		log.Printf("notify: failed to enqueue mobile notification for %s: %v", targetKey, err)
	}
}
