// internal/dispatch/engine.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"
	"mfg-backoffice-api-server/internal/pricing"
	"mfg-backoffice-api-server/internal/tracking"
	"mfg-backoffice-api-server/internal/workflow"

	"github.com/google/uuid"
)

var (
	// ErrEmptyDispatch - phiếu xuất phải có ít nhất một dòng hàng.
	ErrEmptyDispatch = errors.New("dispatch must contain at least one line item")

	// ErrNegativeQuantity - số lượng trên dòng hàng không được âm.
	ErrNegativeQuantity = errors.New("line item quantity cannot be negative")

	// ErrPartialDispatchFailure - phiếu xuất đã được ghi nhưng một bước
	// sau đó (kho / tracking / thông báo) thất bại. Intent tương ứng giữ
	// lại dấu vết bước hỏng để chạy lại.
	ErrPartialDispatchFailure = errors.New("dispatch was persisted but a subsequent step failed")
)

// Engine chuyển một yêu cầu đã duyệt (hoặc một lệnh xuất ad-hoc) thành
// phiếu xuất hàng: sinh mã xuất kho, chốt giá, trừ tồn kho thành phẩm,
// cập nhật tracking và xếp thông báo vào outbox.
//
// Các side effect chạy tuần tự, không có transaction bao trùm; thay vào
// đó mỗi lần xuất có một bản ghi intent đánh dấu từng bước đã xong, và
// từng bước đều idempotent để intent dở dang chạy lại được an toàn.
type Engine struct {
	Store    ledger.Store
	Workflow *workflow.Service
	Pricing  *pricing.Resolver
	Tracker  *tracking.Tracker
	Notifier workflow.Notifier

	// Giá mặc định khi sản phẩm chưa từng có bản ghi giá.
	DefaultUnitPrice float64
}

func NewEngine(store ledger.Store, wf *workflow.Service, resolver *pricing.Resolver, tracker *tracking.Tracker, notifier workflow.Notifier, defaultUnitPrice float64) *Engine {
	return &Engine{
		Store:            store,
		Workflow:         wf,
		Pricing:          resolver,
		Tracker:          tracker,
		Notifier:         notifier,
		DefaultUnitPrice: defaultUnitPrice,
	}
}

// LineItemInput là một dòng hàng đầu vào. UnitPrice = 0 nghĩa là để
// Engine tự tra giá qua Pricing Resolver.
type LineItemInput struct {
	ProductID   string
	ProductName string
	Variant     string
	BatchNumber string
	Quantity    models.Quantity
	StockType   string // bulk | units
	UnitPrice   float64
}

// ExternalDispatchInput là đầu vào của một lần xuất hàng ra ngoài.
type ExternalDispatchInput struct {
	Recipient        models.RecipientDescriptor
	Items            []LineItemInput
	Notes            string
	ExpectedDelivery *time.Time
	Priority         string
	Actor            models.Actor
	SourceRequestID  string
}

// DispatchToExternal thực hiện một lần xuất hàng ra ngoài đầy đủ.
// Caller nhận về phiếu xuất với dispatchID, mã xuất kho và các tổng đã tính.
func (e *Engine) DispatchToExternal(ctx context.Context, input ExternalDispatchInput) (*models.ExternalDispatch, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyDispatch
	}
	for _, item := range input.Items {
		if item.Quantity.Value < 0 {
			return nil, ErrNegativeQuantity
		}
	}

	now := time.Now()
	releaseCode := GenerateReleaseCode(now)
	dispatchID := fmt.Sprintf("EXD-%s", strings.ToUpper(uuid.New().String()[:8]))

	// Chốt giá từng dòng trước khi ghi bất cứ thứ gì.
	lineItems := make([]models.DispatchLineItem, 0, len(input.Items))
	for _, item := range input.Items {
		unitPrice := item.UnitPrice
		if unitPrice <= 0 {
			resolved, err := e.resolveUnitPrice(ctx, item, input.Actor)
			if err != nil {
				return nil, err
			}
			unitPrice = resolved
		}
		lineItems = append(lineItems, models.DispatchLineItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Variant:     item.Variant,
			BatchNumber: item.BatchNumber,
			Quantity:    item.Quantity,
			StockType:   item.StockType,
			UnitPrice:   unitPrice,
			LineTotal:   item.Quantity.Value * unitPrice,
		})
	}

	dispatch := models.ExternalDispatch{
		DispatchID:       dispatchID,
		ReleaseCode:      releaseCode,
		Recipient:        input.Recipient,
		Items:            lineItems,
		TotalItems:       len(lineItems),
		Status:           "dispatched",
		Notes:            input.Notes,
		ExpectedDelivery: input.ExpectedDelivery,
		Priority:         input.Priority,
		DispatchedBy:     input.Actor,
		SourceRequestID:  input.SourceRequestID,
		CreatedAt:        now,
	}
	for _, line := range lineItems {
		dispatch.TotalQuantity += line.Quantity.Value
		dispatch.TotalValue += line.LineTotal
	}

	// Ghi intent trước mọi side effect.
	intent := models.DispatchIntent{
		IntentID:       uuid.New().String(),
		DispatchID:     dispatchID,
		Status:         models.IntentPending,
		CompletedSteps: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.Store.Set(ctx, intentPath(intent.IntentID), intent); err != nil {
		return nil, fmt.Errorf("failed to persist dispatch intent: %w", err)
	}

	if err := e.runSteps(ctx, &intent, &dispatch); err != nil {
		return nil, err
	}
	return &dispatch, nil
}

// resolveUnitPrice tra giá qua resolver, rơi về bootstrap giá mặc định
// khi sản phẩm chưa có bản ghi giá nào.
func (e *Engine) resolveUnitPrice(ctx context.Context, item LineItemInput, actor models.Actor) (float64, error) {
	key := pricingKey(item)
	record, err := e.Pricing.Resolve(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve price for %s: %w", key, err)
	}
	if record != nil {
		return record.Price, nil
	}

	record, err = e.Pricing.BootstrapDefault(ctx, key, item.ProductName, e.DefaultUnitPrice, actor)
	if err != nil {
		return 0, fmt.Errorf("failed to bootstrap default price for %s: %w", key, err)
	}
	return record.Price, nil
}

func pricingKey(item LineItemInput) string {
	if item.Variant != "" {
		return item.ProductID + "_" + item.Variant
	}
	return item.ProductID
}

// DispatchShopRequestInput là đầu vào khi kho FG xuất cho một yêu cầu
// cửa hàng trực tiếp đã duyệt đủ hai vòng.
type DispatchShopRequestInput struct {
	Actor       models.Actor
	BatchNumber string
	StockType   string  // bulk | units, mặc định units
	UnitPrice   float64 // 0 = tra giá
	Notes       string
}

// DispatchDirectShopRequest xuất hàng cho một yêu cầu cửa hàng trực
// tiếp: kiểm tra trạng thái, dựng phiếu xuất qua đường đi chung, rồi
// đánh dấu yêu cầu đã xuất kèm mã xuất kho và dấu người thực hiện.
func (e *Engine) DispatchDirectShopRequest(ctx context.Context, requestID string, input DispatchShopRequestInput) (*models.ExternalDispatch, error) {
	request, err := e.Workflow.PrepareForDispatch(ctx, requestID)
	if err != nil {
		return nil, err
	}

	stockType := input.StockType
	if stockType == "" {
		stockType = models.StockTypeUnits
	}

	items := make([]LineItemInput, 0, len(request.Payload.Items))
	for _, item := range request.Payload.Items {
		items = append(items, LineItemInput{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Variant:     item.Variant,
			BatchNumber: input.BatchNumber,
			Quantity:    item.Quantity,
			StockType:   stockType,
			UnitPrice:   input.UnitPrice,
		})
	}

	dispatch, err := e.DispatchToExternal(ctx, ExternalDispatchInput{
		Recipient: models.RecipientDescriptor{
			Type:     models.RecipientDirectShop,
			ID:       request.Requester.UserID,
			Name:     request.Requester.Name,
			Role:     request.Requester.Role,
			Location: request.Location,
			ShopName: request.ShopName,
		},
		Items:           items,
		Notes:           input.Notes,
		Actor:           input.Actor,
		SourceRequestID: request.RequestID,
	})
	if err != nil {
		return nil, err
	}

	if err := e.Workflow.CompleteDispatch(ctx, request, dispatch.DispatchID, dispatch.ReleaseCode, input.Actor); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPartialDispatchFailure, err)
	}
	return dispatch, nil
}

// DispatchSalesRequestInput là đầu vào khi kho FG hoàn tất một sales request.
type DispatchSalesRequestInput struct {
	Actor       models.Actor
	Recipient   models.RecipientDescriptor
	BatchNumber string
	StockType   string
	UnitPrice   float64
	Notes       string
}

// DispatchSalesRequest hoàn tất biến thể sales request: xuất hàng qua
// đường đi chung rồi đánh dấu bản ghi sales approval là đã gửi.
func (e *Engine) DispatchSalesRequest(ctx context.Context, requestID string, input DispatchSalesRequestInput) (*models.ExternalDispatch, error) {
	request, err := e.Workflow.PrepareSalesForDispatch(ctx, requestID)
	if err != nil {
		return nil, err
	}

	stockType := input.StockType
	if stockType == "" {
		stockType = models.StockTypeUnits
	}

	items := make([]LineItemInput, 0, len(request.Payload.Items))
	for _, item := range request.Payload.Items {
		items = append(items, LineItemInput{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Variant:     item.Variant,
			BatchNumber: input.BatchNumber,
			Quantity:    item.Quantity,
			StockType:   stockType,
			UnitPrice:   input.UnitPrice,
		})
	}

	dispatch, err := e.DispatchToExternal(ctx, ExternalDispatchInput{
		Recipient:       input.Recipient,
		Items:           items,
		Notes:           input.Notes,
		Actor:           input.Actor,
		SourceRequestID: request.RequestID,
	})
	if err != nil {
		return nil, err
	}

	if err := e.Workflow.CompleteSalesDispatch(ctx, request, dispatch.DispatchID, dispatch.ReleaseCode); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPartialDispatchFailure, err)
	}
	return dispatch, nil
}

// GetDispatch đọc một phiếu xuất theo ID.
func (e *Engine) GetDispatch(ctx context.Context, dispatchID string) (*models.ExternalDispatch, error) {
	var dispatch models.ExternalDispatch
	if err := e.Store.Get(ctx, "externalDispatches/"+dispatchID, &dispatch); err != nil {
		return nil, err
	}
	return &dispatch, nil
}

// ListDispatches lấy danh sách phiếu xuất, lọc theo loại bên nhận nếu có.
func (e *Engine) ListDispatches(ctx context.Context, recipientType string) ([]models.ExternalDispatch, error) {
	filter := map[string]interface{}{}
	if recipientType != "" {
		filter["recipient.type"] = recipientType
	}
	var dispatches []models.ExternalDispatch
	if err := e.Store.Query(ctx, "externalDispatches", filter, &dispatches); err != nil {
		return nil, err
	}
	if dispatches == nil {
		dispatches = []models.ExternalDispatch{}
	}
	return dispatches, nil
}
