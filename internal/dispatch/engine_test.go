package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"
	"mfg-backoffice-api-server/internal/notify"
	"mfg-backoffice-api-server/internal/pricing"
	"mfg-backoffice-api-server/internal/tracking"
	"mfg-backoffice-api-server/internal/workflow"
)

const testDefaultPrice = 100.0

func newTestEngine() (*Engine, ledger.Store) {
	store := ledger.NewMemoryStore()
	outbox := notify.NewOutbox(store)
	wf := workflow.NewService(store, outbox)
	resolver := pricing.NewResolver(store)
	tracker := tracking.NewTracker(store)
	return NewEngine(store, wf, resolver, tracker, outbox, testDefaultPrice), store
}

func seedPackagedStock(t *testing.T, store ledger.Store, productID, batch string, qty float64) string {
	t.Helper()
	key := models.InventoryKey{ProductID: productID, BatchNumber: batch}.Encode()
	record := models.FinishedGoodsRecord{
		Key:         key,
		ProductID:   productID,
		BatchNumber: batch,
		Quantity:    qty,
		Unit:        "box",
		Location:    "FG-MAIN",
	}
	if err := store.Set(context.Background(), "finishedGoodsPackagedInventory/"+key, record); err != nil {
		t.Fatalf("failed to seed inventory: %v", err)
	}
	return key
}

func seedPrice(t *testing.T, store ledger.Store, productKey string, price float64) {
	t.Helper()
	record := models.ProductPricing{
		ProductKey: productKey,
		Price:      price,
		Currency:   "VND",
		PriceType:  models.PriceTypeRetail,
		UpdatedAt:  time.Now(),
	}
	if err := store.Set(context.Background(), "productPricing/"+productKey, record); err != nil {
		t.Fatalf("failed to seed price: %v", err)
	}
}

func testRecipient(recipientType, id string) models.RecipientDescriptor {
	return models.RecipientDescriptor{Type: recipientType, ID: id, Name: "Recipient " + id}
}

func TestDispatchToExternalComputesTotals(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	result, err := engine.DispatchToExternal(ctx, ExternalDispatchInput{
		Recipient: testRecipient(models.RecipientDistributor, "dist-1"),
		Items: []LineItemInput{
			{ProductID: "PROD-1", ProductName: "A", BatchNumber: "B01", Quantity: models.Quantity{Value: 10}, StockType: models.StockTypeUnits, UnitPrice: 50},
			{ProductID: "PROD-2", ProductName: "B", BatchNumber: "B01", Quantity: models.Quantity{Value: 4}, StockType: models.StockTypeUnits, UnitPrice: 25},
		},
		Actor: models.Actor{UserID: "fg-1", Role: models.RoleFGStore},
	})
	if err != nil {
		t.Fatalf("DispatchToExternal failed: %v", err)
	}

	if !strings.HasPrefix(result.DispatchID, "EXD-") {
		t.Errorf("unexpected dispatch ID %q", result.DispatchID)
	}
	if len(result.ReleaseCode) != 16 {
		t.Errorf("release code length = %d", len(result.ReleaseCode))
	}
	if result.TotalItems != 2 {
		t.Errorf("totalItems = %d, want 2", result.TotalItems)
	}
	if result.TotalQuantity != 14 {
		t.Errorf("totalQuantity = %v, want 14", result.TotalQuantity)
	}
	if result.TotalValue != 600 {
		t.Errorf("totalValue = %v, want 600", result.TotalValue)
	}
	if result.Items[0].LineTotal != 500 || result.Items[1].LineTotal != 100 {
		t.Errorf("line totals wrong: %+v", result.Items)
	}
}

func TestDispatchToExternalValidation(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	_, err := engine.DispatchToExternal(ctx, ExternalDispatchInput{
		Recipient: testRecipient(models.RecipientDistributor, "dist-1"),
	})
	if !errors.Is(err, ErrEmptyDispatch) {
		t.Fatalf("expected ErrEmptyDispatch, got %v", err)
	}

	_, err = engine.DispatchToExternal(ctx, ExternalDispatchInput{
		Recipient: testRecipient(models.RecipientDistributor, "dist-1"),
		Items: []LineItemInput{
			{ProductID: "PROD-1", BatchNumber: "B01", Quantity: models.Quantity{Value: -1}, StockType: models.StockTypeUnits, UnitPrice: 10},
		},
	})
	if !errors.Is(err, ErrNegativeQuantity) {
		t.Fatalf("expected ErrNegativeQuantity, got %v", err)
	}
}

func TestDispatchResolvesPriceFromTable(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	seedPrice(t, store, "PROD-1", 120)

	result, err := engine.DispatchToExternal(ctx, ExternalDispatchInput{
		Recipient: testRecipient(models.RecipientDistributor, "dist-1"),
		Items: []LineItemInput{
			{ProductID: "PROD-1", ProductName: "A", BatchNumber: "B01", Quantity: models.Quantity{Value: 50}, StockType: models.StockTypeUnits},
		},
		Actor: models.Actor{UserID: "fg-1", Role: models.RoleFGStore},
	})
	if err != nil {
		t.Fatalf("DispatchToExternal failed: %v", err)
	}
	if result.Items[0].UnitPrice != 120 {
		t.Errorf("unitPrice = %v, want 120 from price table", result.Items[0].UnitPrice)
	}
	if result.TotalValue != 6000 {
		t.Errorf("totalValue = %v, want 6000", result.TotalValue)
	}
}

func TestDispatchBootstrapsDefaultPrice(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	result, err := engine.DispatchToExternal(ctx, ExternalDispatchInput{
		Recipient: testRecipient(models.RecipientDistributor, "dist-1"),
		Items: []LineItemInput{
			{ProductID: "PROD-NEW", ProductName: "New Product", BatchNumber: "B01", Quantity: models.Quantity{Value: 3}, StockType: models.StockTypeUnits},
		},
		Actor: models.Actor{UserID: "fg-1", Role: models.RoleFGStore},
	})
	if err != nil {
		t.Fatalf("DispatchToExternal failed: %v", err)
	}
	if result.Items[0].UnitPrice != testDefaultPrice {
		t.Errorf("unitPrice = %v, want default %v", result.Items[0].UnitPrice, testDefaultPrice)
	}

	// Bootstrap phải tạo bản ghi giá sống và một mục lịch sử khai trương.
	var record models.ProductPricing
	if err := store.Get(ctx, "productPricing/PROD-NEW", &record); err != nil {
		t.Fatalf("pricing record not created: %v", err)
	}
	if record.Price != testDefaultPrice {
		t.Errorf("bootstrapped price = %v", record.Price)
	}

	var history []models.PriceHistoryEntry
	if err := store.Query(ctx, "productPriceHistory", map[string]interface{}{"productKey": "PROD-NEW"}, &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].PreviousPrice != 0 {
		t.Errorf("expected one opening history entry, got %+v", history)
	}
}

func TestDispatchDecrementsInventoryClampedAtZero(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	key := seedPackagedStock(t, store, "PROD-1", "B01", 30)

	_, err := engine.DispatchToExternal(ctx, ExternalDispatchInput{
		Recipient: testRecipient(models.RecipientDistributor, "dist-1"),
		Items: []LineItemInput{
			{ProductID: "PROD-1", ProductName: "A", BatchNumber: "B01", Quantity: models.Quantity{Value: 50}, StockType: models.StockTypeUnits, UnitPrice: 10},
		},
		Actor: models.Actor{UserID: "fg-1", Role: models.RoleFGStore},
	})
	if err != nil {
		t.Fatalf("DispatchToExternal failed: %v", err)
	}

	var record models.FinishedGoodsRecord
	if err := store.Get(ctx, "finishedGoodsPackagedInventory/"+key, &record); err != nil {
		t.Fatal(err)
	}
	if record.Quantity != 0 {
		t.Errorf("quantity = %v, want clamped to 0", record.Quantity)
	}

	var movements []models.InventoryMovement
	if err := store.Query(ctx, "inventoryMovements", map[string]interface{}{"key": key}, &movements); err != nil {
		t.Fatal(err)
	}
	if len(movements) != 1 || movements[0].Direction != "out" || movements[0].Quantity != 50 {
		t.Errorf("unexpected movements: %+v", movements)
	}
	// Mục audit phải ghi cả vị trí nguồn lẫn phiếu xuất gây ra nó.
	if movements[0].Location != "FG-MAIN" {
		t.Errorf("movement location = %q, want FG-MAIN", movements[0].Location)
	}
	if movements[0].Source == "" {
		t.Error("movement source dispatch reference missing")
	}
}

func TestListDispatchesFiltersByRecipientType(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	create := func(recipientType, id string) {
		t.Helper()
		_, err := engine.DispatchToExternal(ctx, ExternalDispatchInput{
			Recipient: testRecipient(recipientType, id),
			Items: []LineItemInput{
				{ProductID: "PROD-1", ProductName: "A", BatchNumber: "B01", Quantity: models.Quantity{Value: 2}, StockType: models.StockTypeUnits, UnitPrice: 10},
			},
			Actor: models.Actor{UserID: "fg-1", Role: models.RoleFGStore},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	create(models.RecipientDistributor, "dist-1")
	create(models.RecipientDirectShop, "shop-1")

	all, err := engine.ListDispatches(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered list = %d dispatches, want 2", len(all))
	}

	distributors, err := engine.ListDispatches(ctx, models.RecipientDistributor)
	if err != nil {
		t.Fatal(err)
	}
	if len(distributors) != 1 || distributors[0].Recipient.ID != "dist-1" {
		t.Errorf("distributor filter wrong: %+v", distributors)
	}

	reps, err := engine.ListDispatches(ctx, models.RecipientDirectRep)
	if err != nil {
		t.Fatal(err)
	}
	if len(reps) != 0 {
		t.Errorf("expected no direct_representative dispatches, got %+v", reps)
	}
}

func TestDispatchMarksIntentCompleted(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	result, err := engine.DispatchToExternal(ctx, ExternalDispatchInput{
		Recipient: testRecipient(models.RecipientDistributor, "dist-1"),
		Items: []LineItemInput{
			{ProductID: "PROD-1", ProductName: "A", BatchNumber: "B01", Quantity: models.Quantity{Value: 5}, StockType: models.StockTypeUnits, UnitPrice: 10},
		},
		Actor: models.Actor{UserID: "fg-1", Role: models.RoleFGStore},
	})
	if err != nil {
		t.Fatal(err)
	}

	var intents []models.DispatchIntent
	if err := store.Query(ctx, "externalDispatchIntents", map[string]interface{}{"dispatchID": result.DispatchID}, &intents); err != nil {
		t.Fatal(err)
	}
	if len(intents) != 1 {
		t.Fatalf("expected one intent, got %d", len(intents))
	}
	intent := intents[0]
	if intent.Status != models.IntentCompleted {
		t.Errorf("intent status = %q", intent.Status)
	}
	if len(intent.CompletedSteps) != 4 {
		t.Errorf("completed steps = %v", intent.CompletedSteps)
	}
}

func TestDispatchNotifiesDirectShopMobile(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()

	_, err := engine.DispatchToExternal(ctx, ExternalDispatchInput{
		Recipient: testRecipient(models.RecipientDirectShop, "shop-7"),
		Items: []LineItemInput{
			{ProductID: "PROD-1", ProductName: "A", BatchNumber: "B01", Quantity: models.Quantity{Value: 5}, StockType: models.StockTypeUnits, UnitPrice: 10},
		},
		Actor: models.Actor{UserID: "fg-1", Role: models.RoleFGStore},
	})
	if err != nil {
		t.Fatal(err)
	}

	var notifications []models.MobileNotification
	if err := store.Query(ctx, "mobileNotifications/shop-7", nil, &notifications); err != nil {
		t.Fatal(err)
	}
	if len(notifications) != 1 || notifications[0].Event != "dispatch_sent" {
		t.Fatalf("expected dispatch_sent mobile notification, got %+v", notifications)
	}
}

// Đường đi đầy đủ của một yêu cầu cửa hàng trực tiếp: gửi, MD duyệt,
// HO duyệt, kho FG xuất 50 hộp giá 120.
func TestDispatchDirectShopRequestEndToEnd(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	seedPrice(t, store, "PROD-1", 120)
	key := seedPackagedStock(t, store, "PROD-1", "B01", 50)

	request, err := engine.Workflow.SubmitShopRequest(ctx, workflow.SubmitShopRequestInput{
		Requester: models.Actor{UserID: "shop-1", Name: "Shop A", Role: models.RoleShopOwner},
		ShopName:  "Shop A",
		Items: []models.RequestItem{
			{ProductID: "PROD-1", ProductName: "A", Quantity: models.Quantity{Unit: "box", Value: 50}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	md := models.Actor{UserID: "md-1", Role: models.RoleMD}
	ho := models.Actor{UserID: "ho-1", Role: models.RoleHO}
	if _, err := engine.Workflow.Approve(ctx, request.RequestID, md, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Workflow.Approve(ctx, request.RequestID, ho, ""); err != nil {
		t.Fatal(err)
	}

	fg := models.Actor{UserID: "fg-1", Name: "FG Keeper", Role: models.RoleFGStore}
	result, err := engine.DispatchDirectShopRequest(ctx, request.RequestID, DispatchShopRequestInput{
		Actor:       fg,
		BatchNumber: "B01",
	})
	if err != nil {
		t.Fatalf("DispatchDirectShopRequest failed: %v", err)
	}

	if result.TotalValue != 6000 {
		t.Errorf("totalValue = %v, want 6000 (50 x 120)", result.TotalValue)
	}
	if len(result.ReleaseCode) != 16 {
		t.Errorf("release code length = %d", len(result.ReleaseCode))
	}
	if result.Recipient.Type != models.RecipientDirectShop || result.Recipient.ID != "shop-1" {
		t.Errorf("recipient wrong: %+v", result.Recipient)
	}

	// Yêu cầu phải mang trạng thái dispatched và liên kết phiếu xuất.
	updated, err := engine.Workflow.GetShopRequest(ctx, request.RequestID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.StatusDispatched {
		t.Errorf("request status = %q", updated.Status)
	}
	if updated.DispatchID != result.DispatchID || updated.ReleaseCode != result.ReleaseCode {
		t.Errorf("dispatch linkage missing: %+v", updated)
	}

	// Tồn kho 50 - 50 = 0.
	var stock models.FinishedGoodsRecord
	if err := store.Get(ctx, "finishedGoodsPackagedInventory/"+key, &stock); err != nil {
		t.Fatal(err)
	}
	if stock.Quantity != 0 {
		t.Errorf("stock = %v, want 0", stock.Quantity)
	}

	// Tracking tổng hợp của cửa hàng.
	aggregate, err := engine.Tracker.GetAggregate(ctx, models.RecipientDirectShop, "shop-1")
	if err != nil {
		t.Fatal(err)
	}
	if aggregate.DispatchCount != 1 || aggregate.ValueReceived != 6000 {
		t.Errorf("aggregate = %+v", aggregate)
	}

	// Không xuất lại được yêu cầu đã dispatched.
	_, err = engine.DispatchDirectShopRequest(ctx, request.RequestID, DispatchShopRequestInput{Actor: fg, BatchNumber: "B01"})
	if !errors.Is(err, workflow.ErrNotReadyForDispatch) {
		t.Fatalf("re-dispatch should fail, got %v", err)
	}
}

func TestDispatchRequiresApprovedRequest(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	request, err := engine.Workflow.SubmitShopRequest(ctx, workflow.SubmitShopRequestInput{
		Requester: models.Actor{UserID: "shop-1", Role: models.RoleShopOwner},
		Items: []models.RequestItem{
			{ProductID: "PROD-1", ProductName: "A", Quantity: models.Quantity{Value: 5}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = engine.DispatchDirectShopRequest(ctx, request.RequestID, DispatchShopRequestInput{
		Actor:       models.Actor{UserID: "fg-1", Role: models.RoleFGStore},
		BatchNumber: "B01",
	})
	if !errors.Is(err, workflow.ErrNotReadyForDispatch) {
		t.Fatalf("expected ErrNotReadyForDispatch, got %v", err)
	}
}

func TestDispatchSalesRequestEndToEnd(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	request, err := engine.Workflow.CreateSalesRequest(ctx,
		models.Actor{UserID: "dist-1", Name: "Distributor One"},
		models.Actor{UserID: "md-1", Role: models.RoleMD},
		[]models.RequestItem{
			{ProductID: "PROD-2", ProductName: "B", Quantity: models.Quantity{Unit: "carton", Value: 8}},
		}, "")
	if err != nil {
		t.Fatal(err)
	}

	result, err := engine.DispatchSalesRequest(ctx, request.RequestID, DispatchSalesRequestInput{
		Actor:       models.Actor{UserID: "fg-1", Role: models.RoleFGStore},
		Recipient:   testRecipient(models.RecipientDistributor, "dist-1"),
		BatchNumber: "B02",
		UnitPrice:   40,
	})
	if err != nil {
		t.Fatalf("DispatchSalesRequest failed: %v", err)
	}
	if result.TotalValue != 320 {
		t.Errorf("totalValue = %v, want 320", result.TotalValue)
	}

	stored, err := engine.Workflow.GetSalesRequest(ctx, request.RequestID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.SalesStatusSent || !stored.IsCompletedByFG {
		t.Errorf("sales request not completed: %+v", stored)
	}
}

// Intent dở dang sau bước ghi phiếu phải chạy lại được và không trừ kho
// hai lần cho dòng đã trừ.
func TestResumePendingCompletesInterruptedDispatch(t *testing.T) {
	engine, store := newTestEngine()
	ctx := context.Background()
	key := seedPackagedStock(t, store, "PROD-1", "B01", 20)

	now := time.Now()
	dispatch := models.ExternalDispatch{
		DispatchID:  "EXD-RESUME01",
		ReleaseCode: GenerateReleaseCode(now),
		Recipient:   testRecipient(models.RecipientDistributor, "dist-1"),
		Items: []models.DispatchLineItem{
			{ProductID: "PROD-1", ProductName: "A", BatchNumber: "B01", Quantity: models.Quantity{Value: 5}, StockType: models.StockTypeUnits, UnitPrice: 10, LineTotal: 50},
		},
		TotalItems:    1,
		TotalQuantity: 5,
		TotalValue:    50,
		Status:        "dispatched",
		CreatedAt:     now,
	}
	if err := store.Set(ctx, "externalDispatches/"+dispatch.DispatchID, dispatch); err != nil {
		t.Fatal(err)
	}
	intent := models.DispatchIntent{
		IntentID:       "intent-resume-1",
		DispatchID:     dispatch.DispatchID,
		Status:         models.IntentPending,
		CompletedSteps: []string{models.StepDispatchPersisted},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := store.Set(ctx, intentPath(intent.IntentID), intent); err != nil {
		t.Fatal(err)
	}

	engine.ResumePending(ctx)

	var resumed models.DispatchIntent
	if err := store.Get(ctx, intentPath(intent.IntentID), &resumed); err != nil {
		t.Fatal(err)
	}
	if resumed.Status != models.IntentCompleted {
		t.Fatalf("intent status = %q after resume", resumed.Status)
	}

	var stock models.FinishedGoodsRecord
	if err := store.Get(ctx, "finishedGoodsPackagedInventory/"+key, &stock); err != nil {
		t.Fatal(err)
	}
	if stock.Quantity != 15 {
		t.Errorf("stock = %v, want 15", stock.Quantity)
	}

	aggregate, err := engine.Tracker.GetAggregate(ctx, models.RecipientDistributor, "dist-1")
	if err != nil {
		t.Fatal(err)
	}
	if aggregate.DispatchCount != 1 {
		t.Errorf("aggregate dispatchCount = %d", aggregate.DispatchCount)
	}

	// Chạy resume lần nữa: không có gì để làm, không trừ kho thêm.
	engine.ResumePending(ctx)
	if err := store.Get(ctx, "finishedGoodsPackagedInventory/"+key, &stock); err != nil {
		t.Fatal(err)
	}
	if stock.Quantity != 15 {
		t.Errorf("stock changed on second resume: %v", stock.Quantity)
	}
}
