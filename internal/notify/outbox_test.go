package notify

import (
	"context"
	"testing"

	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"
)

func seedUser(t *testing.T, store ledger.Store, userID, role string) {
	t.Helper()
	user := models.User{UserID: userID, Email: userID + "@example.com", Name: userID, Role: role, Status: "active"}
	if err := store.Set(context.Background(), "users/"+userID, user); err != nil {
		t.Fatal(err)
	}
}

func TestNotifyRoleFansOutPerUser(t *testing.T) {
	store := ledger.NewMemoryStore()
	outbox := NewOutbox(store)
	ctx := context.Background()

	seedUser(t, store, "md-1", models.RoleMD)
	seedUser(t, store, "md-2", models.RoleMD)
	seedUser(t, store, "ho-1", models.RoleHO)

	outbox.NotifyRole(ctx, models.RoleMD, "shop_request_submitted", "New request", "", map[string]interface{}{"requestID": "DSR-1"})

	// Mỗi user mang vai trò md nhận đúng một mục outbox, ho không nhận.
	for _, userID := range []string{"md-1", "md-2"} {
		var notifications []models.Notification
		if err := store.Query(ctx, "notifications/"+userID, nil, &notifications); err != nil {
			t.Fatal(err)
		}
		if len(notifications) != 1 {
			t.Errorf("user %s has %d notifications, want 1", userID, len(notifications))
			continue
		}
		n := notifications[0]
		if n.Status != models.NotificationPending || n.Event != "shop_request_submitted" {
			t.Errorf("notification for %s wrong: %+v", userID, n)
		}
	}

	var hoNotifications []models.Notification
	if err := store.Query(ctx, "notifications/ho-1", nil, &hoNotifications); err != nil {
		t.Fatal(err)
	}
	if len(hoNotifications) != 0 {
		t.Errorf("ho-1 should have no notifications, got %d", len(hoNotifications))
	}
}

func TestNotifyRoleWithNoMatchingUsersIsSilent(t *testing.T) {
	store := ledger.NewMemoryStore()
	outbox := NewOutbox(store)

	// Không có user nào: không panic, không ghi gì.
	outbox.NotifyRole(context.Background(), models.RoleMD, "event", "title", "", nil)

	var notifications []models.Notification
	if err := store.Query(context.Background(), "notifications", nil, &notifications); err != nil {
		t.Fatal(err)
	}
	if len(notifications) != 0 {
		t.Errorf("expected empty outbox, got %d entries", len(notifications))
	}
}

func TestNotifyMobileWritesToTargetKey(t *testing.T) {
	store := ledger.NewMemoryStore()
	outbox := NewOutbox(store)
	ctx := context.Background()

	outbox.NotifyMobile(ctx, "DSR-42", "shop_request_rejected", "Rejected", "out of stock",
		map[string]interface{}{"reason": "out of stock"})

	var notifications []models.MobileNotification
	if err := store.Query(ctx, "mobileNotifications/DSR-42", nil, &notifications); err != nil {
		t.Fatal(err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 mobile notification, got %d", len(notifications))
	}
	n := notifications[0]
	if n.TargetKey != "DSR-42" || n.Status != models.NotificationPending {
		t.Errorf("mobile notification wrong: %+v", n)
	}
}
