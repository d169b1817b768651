// internal/socket/hub.go
package socket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub quản lý các kết nối WebSocket đang mở, key theo userID.
// Đây là kênh giao nhanh của outbox thông báo: client offline không
// phải là lỗi, thông báo vẫn nằm trong outbox chờ lần giao sau.
type Hub struct {
	clients map[string]*websocket.Conn
	mu      sync.RWMutex
}

// NewHub tạo một Hub mới.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*websocket.Conn),
	}
}

// Register thêm một client mới vào Hub.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[userID] = conn
	log.Printf("WebSocket client registered: %s", userID)
}

// Unregister xóa một client khỏi Hub.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; ok {
		delete(h.clients, userID)
		log.Printf("WebSocket client unregistered: %s", userID)
	}
}

// Send gửi một tin nhắn đến một client cụ thể. Trả về false nếu client
// không online (không coi là lỗi).
func (h *Hub) Send(userID string, message []byte) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conn, ok := h.clients[userID]
	if !ok {
		return false, nil
	}

	if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return false, err
	}
	return true, nil
}

// SendJSON marshal payload và gửi đến một client cụ thể.
func (h *Hub) SendJSON(userID string, payload interface{}) (bool, error) {
	message, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}
	return h.Send(userID, message)
}
