// internal/notify/dispatcher.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"
	"mfg-backoffice-api-server/internal/socket"
)

// Số lần giao tối đa trước khi đánh dấu failed.
const maxAttempts = 5

// Dispatcher là vòng lặp nền giao các thông báo pending trong outbox:
// người dùng nội bộ qua WebSocket hub, mobile qua webhook push (nếu cấu
// hình). Giao thất bại thì lùi lịch thử lại với backoff; thông báo
// không bao giờ mất trước khi hết số lần thử.
type Dispatcher struct {
	Store      ledger.Store
	Hub        *socket.Hub
	WebhookURL string // webhook push cho mobile, rỗng thì chỉ chờ client tự kéo
	Interval   time.Duration

	httpClient *http.Client
}

func NewDispatcher(store ledger.Store, hub *socket.Hub, webhookURL string, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Dispatcher{
		Store:      store,
		Hub:        hub,
		WebhookURL: webhookURL,
		Interval:   interval,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Run chạy vòng giao cho đến khi ctx bị hủy. Gọi trong một goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DeliverPending(ctx)
		}
	}
}

// DeliverPending quét outbox và thử giao mọi thông báo đã đến hạn.
func (d *Dispatcher) DeliverPending(ctx context.Context) {
	now := time.Now()

	var pending []models.Notification
	if err := d.Store.Query(ctx, "notifications", map[string]interface{}{"status": models.NotificationPending}, &pending); err != nil {
		log.Printf("notify: failed to scan outbox: %v", err)
	} else {
		for _, n := range pending {
			if n.NextRetryAt.After(now) {
				continue
			}
			d.deliverUser(ctx, n)
		}
	}

	var pendingMobile []models.MobileNotification
	if err := d.Store.Query(ctx, "mobileNotifications", map[string]interface{}{"status": models.NotificationPending}, &pendingMobile); err != nil {
		log.Printf("notify: failed to scan mobile outbox: %v", err)
		return
	}
	for _, n := range pendingMobile {
		if n.NextRetryAt.After(now) {
			continue
		}
		d.deliverMobile(ctx, n)
	}
}

func (d *Dispatcher) deliverUser(ctx context.Context, n models.Notification) {
	path := "notifications/" + n.UserID + "/" + n.NotificationID

	delivered, err := d.Hub.SendJSON(n.UserID, map[string]interface{}{
		"event": n.Event,
		"title": n.Title,
		"body":  n.Body,
		"data":  n.Data,
	})
	if err != nil {
		log.Printf("notify: websocket send to %s failed: %v", n.UserID, err)
	}
	if !delivered {
		// Client offline: không tính là một lần thử hỏng, thông báo
		// nằm lại outbox và client sẽ kéo về khi đăng nhập.
		return
	}
	d.markDelivered(ctx, path)
}

func (d *Dispatcher) deliverMobile(ctx context.Context, n models.MobileNotification) {
	path := "mobileNotifications/" + n.TargetKey + "/" + n.NotificationID

	if d.WebhookURL == "" {
		// Không có kênh push; mobile client đọc outbox trực tiếp.
		d.markDelivered(ctx, path)
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"targetKey": n.TargetKey,
		"event":     n.Event,
		"title":     n.Title,
		"body":      n.Body,
		"data":      n.Data,
	})
	if err != nil {
		log.Printf("notify: failed to marshal mobile notification %s: %v", n.NotificationID, err)
		return
	}

	resp, err := d.httpClient.Post(d.WebhookURL, "application/json", bytes.NewReader(payload))
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode < 300 {
			d.markDelivered(ctx, path)
			return
		}
		err = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	log.Printf("notify: mobile push for %s failed (attempt %d): %v", n.TargetKey, n.Attempts+1, err)
	d.recordFailure(ctx, path, n.Attempts)
}

func (d *Dispatcher) markDelivered(ctx context.Context, path string) {
	now := time.Now()
	err := d.Store.Update(ctx, path, map[string]interface{}{
		"status":      models.NotificationDelivered,
		"deliveredAt": now,
	})
	if err != nil {
		log.Printf("notify: failed to mark %s delivered: %v", path, err)
	}
}

func (d *Dispatcher) recordFailure(ctx context.Context, path string, attempts int) {
	attempts++
	fields := map[string]interface{}{"attempts": attempts}
	if attempts >= maxAttempts {
		fields["status"] = models.NotificationFailed
	} else {
		// Backoff lũy tiến: 30s, 60s, 120s...
		backoff := 30 * time.Second << (attempts - 1)
		fields["nextRetryAt"] = time.Now().Add(backoff)
	}
	if err := d.Store.Update(ctx, path, fields); err != nil {
		log.Printf("notify: failed to record delivery failure for %s: %v", path, err)
	}
}
