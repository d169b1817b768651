// internal/api/handlers/notification_handler.go
package handlers

import (
	"net/http"

	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	Store ledger.Store
}

// GetMyNotifications cho người dùng đã đăng nhập kéo outbox của mình.
// Đây là đường dự phòng khi client không giữ kết nối WebSocket.
func (h *NotificationHandler) GetMyNotifications(c *gin.Context) {
	userID := c.GetString("user_id")

	var notifications []models.Notification
	if err := h.Store.Query(c.Request.Context(), "notifications/"+userID, nil, &notifications); err != nil {
		respondError(c, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}

// GetMobileNotifications cho mobile client kéo thông báo theo target key
// (requestID hoặc recipientID).
func (h *NotificationHandler) GetMobileNotifications(c *gin.Context) {
	var notifications []models.MobileNotification
	if err := h.Store.Query(c.Request.Context(), "mobileNotifications/"+c.Param("key"), nil, &notifications); err != nil {
		respondError(c, err)
		return
	}
	if notifications == nil {
		notifications = []models.MobileNotification{}
	}
	c.JSON(http.StatusOK, notifications)
}
