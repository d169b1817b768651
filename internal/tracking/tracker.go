// internal/tracking/tracker.go
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"

	"github.com/google/uuid"
)

// ErrConcurrentUpdate - không giành được bản ghi tổng hợp sau số lần thử cho phép.
var ErrConcurrentUpdate = errors.New("tracking aggregate was modified concurrently, retries exhausted")

// Số lần thử lại khi version check thất bại.
const maxRetries = 5

// Tracker duy trì bản tổng hợp lũy kế theo từng bên nhận và log phi
// chuẩn hóa phục vụ analytics. Cập nhật tổng hợp dùng version check
// lạc quan thay vì đọc-rồi-ghi-đè mù để tránh lost update.
type Tracker struct {
	Store ledger.Store
}

func NewTracker(store ledger.Store) *Tracker {
	return &Tracker{Store: store}
}

func aggregatePath(recipientType, recipientID string) string {
	return recipientType + "Tracking/" + recipientID
}

func logDir(recipientID string) string {
	return "detailedDispatchLogs/" + recipientID
}

// RecordDispatch cập nhật bản tổng hợp của bên nhận và ghi log chi tiết
// cho một phiếu xuất. Idempotent theo dispatchID: gọi lại cho cùng một
// phiếu (saga chạy lại sau lỗi giữa chừng) không cộng dồn lần nữa.
func (t *Tracker) RecordDispatch(ctx context.Context, dispatch *models.ExternalDispatch) error {
	recipient := dispatch.Recipient

	// Đã ghi log cho phiếu này rồi thì bỏ qua.
	var existing []models.DetailedDispatchLog
	err := t.Store.Query(ctx, logDir(recipient.ID), map[string]interface{}{"dispatchID": dispatch.DispatchID}, &existing)
	if err != nil {
		return fmt.Errorf("failed to check dispatch log: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	if err := t.applyToAggregate(ctx, dispatch); err != nil {
		return err
	}

	logEntry := models.DetailedDispatchLog{
		LogID:         uuid.New().String(),
		RecipientID:   recipient.ID,
		RecipientType: recipient.Type,
		DispatchID:    dispatch.DispatchID,
		ReleaseCode:   dispatch.ReleaseCode,
		Items:         dispatch.Items,
		TotalQuantity: dispatch.TotalQuantity,
		TotalValue:    dispatch.TotalValue,
		DispatchedAt:  dispatch.CreatedAt,
	}
	if err := t.Store.Set(ctx, logDir(recipient.ID)+"/"+logEntry.LogID, logEntry); err != nil {
		return fmt.Errorf("failed to append dispatch log: %w", err)
	}

	event := models.TrackingEvent{
		EventID:       uuid.New().String(),
		DispatchID:    dispatch.DispatchID,
		ReleaseCode:   dispatch.ReleaseCode,
		RecipientID:   recipient.ID,
		RecipientType: recipient.Type,
		TotalValue:    dispatch.TotalValue,
		At:            dispatch.CreatedAt,
	}
	if err := t.Store.Set(ctx, "externalDispatchTracking/"+event.EventID, event); err != nil {
		return fmt.Errorf("failed to append tracking event: %w", err)
	}

	return nil
}

func (t *Tracker) applyToAggregate(ctx context.Context, dispatch *models.ExternalDispatch) error {
	recipient := dispatch.Recipient
	path := aggregatePath(recipient.Type, recipient.ID)
	dispatchedAt := dispatch.CreatedAt

	lastProduct := ""
	lastQuantity := 0.0
	if len(dispatch.Items) > 0 {
		last := dispatch.Items[len(dispatch.Items)-1]
		lastProduct = last.ProductName
		lastQuantity = last.Quantity.Value
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		var aggregate models.RecipientTracking
		err := t.Store.Get(ctx, path, &aggregate)
		if err == ledger.ErrNotFound {
			now := time.Now()
			aggregate = models.RecipientTracking{
				RecipientID:       recipient.ID,
				RecipientType:     recipient.Type,
				RecipientName:     recipient.Name,
				DispatchCount:     1,
				ItemsReceived:     dispatch.TotalItems,
				QuantityReceived:  dispatch.TotalQuantity,
				ValueReceived:     dispatch.TotalValue,
				LastDispatchDate:  &dispatchedAt,
				LastDispatchID:    dispatch.DispatchID,
				LastReleaseCode:   dispatch.ReleaseCode,
				LastProduct:       lastProduct,
				LastQuantity:      lastQuantity,
				FirstDispatchDate: &dispatchedAt,
				CreatedAt:         now,
				Version:           1,
			}
			if err := t.Store.Set(ctx, path, aggregate); err != nil {
				return fmt.Errorf("failed to create tracking aggregate: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tracking aggregate: %w", err)
		}

		fields := map[string]interface{}{
			"dispatchCount":    aggregate.DispatchCount + 1,
			"itemsReceived":    aggregate.ItemsReceived + dispatch.TotalItems,
			"quantityReceived": aggregate.QuantityReceived + dispatch.TotalQuantity,
			"valueReceived":    aggregate.ValueReceived + dispatch.TotalValue,
			"lastDispatchDate": dispatchedAt,
			"lastDispatchID":   dispatch.DispatchID,
			"lastReleaseCode":  dispatch.ReleaseCode,
			"lastProduct":      lastProduct,
			"lastQuantity":     lastQuantity,
			"version":          aggregate.Version + 1,
		}
		ok, err := t.Store.UpdateIf(ctx, path, fields, map[string]interface{}{"version": aggregate.Version})
		if err != nil {
			return fmt.Errorf("failed to update tracking aggregate: %w", err)
		}
		if ok {
			return nil
		}
		// Version đã đổi dưới chân - đọc lại và thử lần nữa.
	}
	return ErrConcurrentUpdate
}

// GetAggregate đọc bản tổng hợp của một bên nhận.
func (t *Tracker) GetAggregate(ctx context.Context, recipientType, recipientID string) (*models.RecipientTracking, error) {
	var aggregate models.RecipientTracking
	if err := t.Store.Get(ctx, aggregatePath(recipientType, recipientID), &aggregate); err != nil {
		return nil, err
	}
	return &aggregate, nil
}

// Logs đọc toàn bộ log chi tiết của một bên nhận.
func (t *Tracker) Logs(ctx context.Context, recipientID string) ([]models.DetailedDispatchLog, error) {
	var logs []models.DetailedDispatchLog
	if err := t.Store.Query(ctx, logDir(recipientID), nil, &logs); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.DetailedDispatchLog{}
	}
	return logs, nil
}

// MonthlyTrend gom log chi tiết theo tháng (YYYY-MM) cho báo cáo xu hướng.
func (t *Tracker) MonthlyTrend(ctx context.Context, recipientID string) ([]models.MonthlyTrendPoint, error) {
	logs, err := t.Logs(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	byMonth := map[string]*models.MonthlyTrendPoint{}
	for _, entry := range logs {
		month := entry.DispatchedAt.Format("2006-01")
		point, ok := byMonth[month]
		if !ok {
			point = &models.MonthlyTrendPoint{Month: month}
			byMonth[month] = point
		}
		point.DispatchCount++
		point.TotalQuantity += entry.TotalQuantity
		point.TotalValue += entry.TotalValue
	}

	trend := make([]models.MonthlyTrendPoint, 0, len(byMonth))
	for _, point := range byMonth {
		trend = append(trend, *point)
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Month < trend[j].Month })
	return trend, nil
}

// TopProducts xếp hạng sản phẩm theo tổng số lượng đã nhận.
func (t *Tracker) TopProducts(ctx context.Context, recipientID string, limit int) ([]models.TopProduct, error) {
	logs, err := t.Logs(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	byProduct := map[string]*models.TopProduct{}
	for _, entry := range logs {
		for _, item := range entry.Items {
			product, ok := byProduct[item.ProductID]
			if !ok {
				product = &models.TopProduct{ProductID: item.ProductID, ProductName: item.ProductName}
				byProduct[item.ProductID] = product
			}
			product.TotalQuantity += item.Quantity.Value
			product.TotalValue += item.LineTotal
		}
	}

	top := make([]models.TopProduct, 0, len(byProduct))
	for _, product := range byProduct {
		top = append(top, *product)
	}
	sort.Slice(top, func(i, j int) bool { return top[i].TotalQuantity > top[j].TotalQuantity })
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}
