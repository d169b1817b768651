package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mfg-backoffice-api-server/internal/models"
)

func createTestSalesRequest(t *testing.T, svc *Service) *models.SalesRequest {
	t.Helper()
	request, err := svc.CreateSalesRequest(context.Background(),
		models.Actor{UserID: "dist-1", Name: "Distributor One"},
		models.Actor{UserID: "md-1", Name: "MD", Role: models.RoleMD},
		[]models.RequestItem{
			{ProductID: "PROD-9", ProductName: "Keo Dua", Quantity: models.Quantity{Unit: "carton", Value: 20}},
		},
		"quarterly order")
	if err != nil {
		t.Fatalf("CreateSalesRequest failed: %v", err)
	}
	return request
}

func TestCreateSalesRequest(t *testing.T) {
	svc, notifier := newTestService()
	request := createTestSalesRequest(t, svc)

	if !strings.HasPrefix(request.RequestID, "SR-") {
		t.Errorf("unexpected request ID %q", request.RequestID)
	}
	// Sales request được tạo đã ở trạng thái duyệt, không qua hai vòng.
	if request.Status != models.SalesStatusApproved {
		t.Errorf("status = %q, want %q", request.Status, models.SalesStatusApproved)
	}
	if request.IsCompletedByFG {
		t.Error("new sales request must not be completed")
	}

	if len(notifier.roleCalls) != 1 || notifier.roleCalls[0].Target != models.RoleFGStore {
		t.Fatalf("expected FG store notification, got %+v", notifier.roleCalls)
	}
}

func TestCompleteSalesDispatch(t *testing.T) {
	svc, notifier := newTestService()
	request := createTestSalesRequest(t, svc)
	ctx := context.Background()

	prepared, err := svc.PrepareSalesForDispatch(ctx, request.RequestID)
	if err != nil {
		t.Fatalf("PrepareSalesForDispatch failed: %v", err)
	}

	if err := svc.CompleteSalesDispatch(ctx, prepared, "EXD-TEST1234", "2503071405ABCDEF"); err != nil {
		t.Fatalf("CompleteSalesDispatch failed: %v", err)
	}

	stored, err := svc.GetSalesRequest(ctx, request.RequestID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.SalesStatusSent {
		t.Errorf("status = %q, want %q", stored.Status, models.SalesStatusSent)
	}
	if !stored.IsCompletedByFG {
		t.Error("isCompletedByFG not set")
	}
	if stored.DispatchID != "EXD-TEST1234" || stored.ReleaseCode != "2503071405ABCDEF" {
		t.Errorf("dispatch linkage missing: %+v", stored)
	}
	if stored.SentAt == nil {
		t.Error("sentAt not set")
	}

	if len(notifier.mobileCalls) != 1 || notifier.mobileCalls[0].Target != request.RequestID {
		t.Fatalf("expected mobile notification keyed by request ID, got %+v", notifier.mobileCalls)
	}

	// Đã gửi thì không chuẩn bị xuất lần nữa được.
	if _, err := svc.PrepareSalesForDispatch(ctx, request.RequestID); !errors.Is(err, ErrNotReadyForDispatch) {
		t.Fatalf("completed sales request should not be dispatchable, got %v", err)
	}
}

func TestCreateSalesRequestRejectsEmptyItems(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateSalesRequest(context.Background(),
		models.Actor{UserID: "dist-1"}, models.Actor{UserID: "md-1", Role: models.RoleMD},
		nil, "")
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}
