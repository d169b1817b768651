package tracking

import (
	"context"
	"testing"
	"time"

	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"
)

func testDispatch(id string, at time.Time, items ...models.DispatchLineItem) *models.ExternalDispatch {
	d := &models.ExternalDispatch{
		DispatchID:  id,
		ReleaseCode: "2503071405ABC" + id[len(id)-3:],
		Recipient:   models.RecipientDescriptor{Type: models.RecipientDistributor, ID: "dist-1", Name: "Distributor One"},
		Items:       items,
		TotalItems:  len(items),
		Status:      "dispatched",
		CreatedAt:   at,
	}
	for _, item := range items {
		d.TotalQuantity += item.Quantity.Value
		d.TotalValue += item.LineTotal
	}
	return d
}

func lineItem(productID, name string, qty, unitPrice float64) models.DispatchLineItem {
	return models.DispatchLineItem{
		ProductID:   productID,
		ProductName: name,
		BatchNumber: "B01",
		Quantity:    models.Quantity{Value: qty},
		StockType:   models.StockTypeUnits,
		UnitPrice:   unitPrice,
		LineTotal:   qty * unitPrice,
	}
}

func TestRecordDispatchAccumulates(t *testing.T) {
	tracker := NewTracker(ledger.NewMemoryStore())
	ctx := context.Background()

	first := testDispatch("EXD-AAA111", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		lineItem("PROD-1", "A", 10, 5))
	second := testDispatch("EXD-BBB222", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
		lineItem("PROD-2", "B", 4, 25))

	if err := tracker.RecordDispatch(ctx, first); err != nil {
		t.Fatalf("first RecordDispatch failed: %v", err)
	}
	if err := tracker.RecordDispatch(ctx, second); err != nil {
		t.Fatalf("second RecordDispatch failed: %v", err)
	}

	aggregate, err := tracker.GetAggregate(ctx, models.RecipientDistributor, "dist-1")
	if err != nil {
		t.Fatal(err)
	}
	if aggregate.DispatchCount != 2 {
		t.Errorf("dispatchCount = %d, want 2", aggregate.DispatchCount)
	}
	if aggregate.QuantityReceived != 14 {
		t.Errorf("quantityReceived = %v, want 14", aggregate.QuantityReceived)
	}
	if aggregate.ValueReceived != 150 {
		t.Errorf("valueReceived = %v, want 150", aggregate.ValueReceived)
	}
	// Con trỏ "lần cuối" phải trỏ về phiếu thứ hai.
	if aggregate.LastDispatchID != "EXD-BBB222" || aggregate.LastProduct != "B" {
		t.Errorf("last pointers wrong: %+v", aggregate)
	}
	if aggregate.FirstDispatchDate == nil || !aggregate.FirstDispatchDate.Equal(first.CreatedAt) {
		t.Errorf("firstDispatchDate = %v", aggregate.FirstDispatchDate)
	}
	if aggregate.Version != 2 {
		t.Errorf("version = %d, want 2", aggregate.Version)
	}
}

func TestRecordDispatchIdempotentByDispatchID(t *testing.T) {
	tracker := NewTracker(ledger.NewMemoryStore())
	ctx := context.Background()

	d := testDispatch("EXD-AAA111", time.Now(), lineItem("PROD-1", "A", 10, 5))
	if err := tracker.RecordDispatch(ctx, d); err != nil {
		t.Fatal(err)
	}
	// Saga chạy lại cùng phiếu: không cộng dồn lần nữa.
	if err := tracker.RecordDispatch(ctx, d); err != nil {
		t.Fatal(err)
	}

	aggregate, err := tracker.GetAggregate(ctx, models.RecipientDistributor, "dist-1")
	if err != nil {
		t.Fatal(err)
	}
	if aggregate.DispatchCount != 1 {
		t.Errorf("dispatchCount = %d, want 1", aggregate.DispatchCount)
	}

	logs, err := tracker.Logs(ctx, "dist-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Errorf("expected 1 log entry, got %d", len(logs))
	}
}

func TestMonthlyTrendGroupsByMonth(t *testing.T) {
	tracker := NewTracker(ledger.NewMemoryStore())
	ctx := context.Background()

	march1 := testDispatch("EXD-AAA111", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), lineItem("PROD-1", "A", 10, 5))
	march2 := testDispatch("EXD-BBB222", time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), lineItem("PROD-1", "A", 5, 5))
	april := testDispatch("EXD-CCC333", time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), lineItem("PROD-1", "A", 2, 5))

	for _, d := range []*models.ExternalDispatch{march1, march2, april} {
		if err := tracker.RecordDispatch(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	trend, err := tracker.MonthlyTrend(ctx, "dist-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(trend) != 2 {
		t.Fatalf("expected 2 trend points, got %d", len(trend))
	}
	if trend[0].Month != "2025-03" || trend[0].DispatchCount != 2 || trend[0].TotalQuantity != 15 {
		t.Errorf("march point wrong: %+v", trend[0])
	}
	if trend[1].Month != "2025-04" || trend[1].DispatchCount != 1 {
		t.Errorf("april point wrong: %+v", trend[1])
	}
}

func TestTopProductsRanksByQuantity(t *testing.T) {
	tracker := NewTracker(ledger.NewMemoryStore())
	ctx := context.Background()

	d := testDispatch("EXD-AAA111", time.Now(),
		lineItem("PROD-1", "A", 3, 10),
		lineItem("PROD-2", "B", 20, 1),
		lineItem("PROD-3", "C", 7, 5))
	if err := tracker.RecordDispatch(ctx, d); err != nil {
		t.Fatal(err)
	}

	top, err := tracker.TopProducts(ctx, "dist-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 products, got %d", len(top))
	}
	if top[0].ProductID != "PROD-2" || top[1].ProductID != "PROD-3" {
		t.Errorf("ranking wrong: %+v", top)
	}
}

func TestGetAggregateUnknownRecipient(t *testing.T) {
	tracker := NewTracker(ledger.NewMemoryStore())
	if _, err := tracker.GetAggregate(context.Background(), models.RecipientDistributor, "missing"); err != ledger.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
