// internal/pricing/resolver.go
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mfg-backoffice-api-server/internal/cache"
	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"

	"github.com/google/uuid"
)

// ErrInvalidPrice - giá phải là số dương.
var ErrInvalidPrice = errors.New("price must be a positive number")

const cacheTTL = 10 * time.Minute

func cacheKey(productKey string) string {
	return "pricing:" + productKey
}

func pricingPath(productKey string) string {
	return "productPricing/" + productKey
}

// Resolver tra giá đơn vị cho sản phẩm tại thời điểm xuất hàng và giữ
// sổ cái lịch sử giá bất biến.
type Resolver struct {
	Store ledger.Store
}

func NewResolver(store ledger.Store) *Resolver {
	return &Resolver{Store: store}
}

// Resolve tìm bản ghi giá theo chuỗi fallback: đúng khóa -> quét danh
// mục sản phẩm theo tên -> quét field tên ngay trên các bản ghi giá.
// Trả về nil (không phải lỗi) khi không tìm thấy. Chỉ đọc.
func (r *Resolver) Resolve(ctx context.Context, productKey string) (*models.ProductPricing, error) {
	if data, ok := cache.GetCached(ctx, cacheKey(productKey)); ok {
		var cached models.ProductPricing
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	var record models.ProductPricing
	err := r.Store.Get(ctx, pricingPath(productKey), &record)
	if err == nil {
		r.cacheRecord(ctx, productKey, &record)
		return &record, nil
	}
	if err != ledger.ErrNotFound {
		return nil, err
	}

	// Fallback 1: tìm trong danh mục sản phẩm theo tên rồi thử lại khóa.
	var products []models.Product
	if err := r.Store.Query(ctx, "products", map[string]interface{}{"name": productKey}, &products); err != nil {
		return nil, err
	}
	for _, p := range products {
		err := r.Store.Get(ctx, pricingPath(p.ProductID), &record)
		if err == nil {
			r.cacheRecord(ctx, productKey, &record)
			return &record, nil
		}
		if err != ledger.ErrNotFound {
			return nil, err
		}
	}

	// Fallback 2: quét field tên trên chính các bản ghi giá.
	var byName []models.ProductPricing
	if err := r.Store.Query(ctx, "productPricing", map[string]interface{}{"productName": productKey}, &byName); err != nil {
		return nil, err
	}
	if len(byName) > 0 {
		r.cacheRecord(ctx, productKey, &byName[0])
		return &byName[0], nil
	}

	return nil, nil
}

// BootstrapDefault tạo bản ghi giá với giá mặc định khi Resolve trả nil
// lúc xuất hàng, kèm một mục lịch sử khai trương (giá trước = 0).
//
// KHÔNG idempotent: gọi hai lần cho cùng sản phẩm sẽ tạo hai mục lịch sử
// và ghi đè bản ghi sống. Caller phải kiểm tra Resolve trước.
func (r *Resolver) BootstrapDefault(ctx context.Context, productKey, productName string, defaultPrice float64, actor models.Actor) (*models.ProductPricing, error) {
	if !(defaultPrice > 0) {
		return nil, ErrInvalidPrice
	}

	now := time.Now()
	record := models.ProductPricing{
		ProductKey:    productKey,
		ProductName:   productName,
		Price:         defaultPrice,
		Currency:      "VND",
		PriceType:     models.PriceTypeRetail,
		EffectiveDate: now,
		UpdatedBy:     actor,
		UpdatedAt:     now,
	}
	if err := r.Store.Set(ctx, pricingPath(productKey), record); err != nil {
		return nil, fmt.Errorf("failed to persist pricing record: %w", err)
	}

	if err := r.appendHistory(ctx, productKey, 0, defaultPrice, "opening price (default bootstrap)", now, actor); err != nil {
		return nil, err
	}

	cache.InvalidateKeys(ctx, cacheKey(productKey))
	return &record, nil
}

// UpdatePrice đổi giá sống của sản phẩm. Nếu đã có bản ghi và giá khác
// giá mới thì chụp một mục lịch sử trước khi ghi đè; giá bằng nhau là
// no-op lặng lẽ, không sinh lịch sử.
func (r *Resolver) UpdatePrice(ctx context.Context, productKey string, newPrice float64, reason string, effectiveDate time.Time, actor models.Actor) (*models.ProductPricing, error) {
	if !(newPrice > 0) {
		return nil, ErrInvalidPrice
	}

	var previous models.ProductPricing
	previousPrice := 0.0
	hasPrevious := false
	err := r.Store.Get(ctx, pricingPath(productKey), &previous)
	if err == nil {
		hasPrevious = true
		previousPrice = previous.Price
	} else if err != ledger.ErrNotFound {
		return nil, err
	}

	if hasPrevious && previousPrice == newPrice {
		return &previous, nil
	}

	now := time.Now()
	record := models.ProductPricing{
		ProductKey:    productKey,
		ProductName:   previous.ProductName,
		Price:         newPrice,
		Currency:      "VND",
		PriceType:     models.PriceTypeRetail,
		EffectiveDate: effectiveDate,
		UpdatedBy:     actor,
		UpdatedAt:     now,
	}
	if hasPrevious {
		record.Currency = previous.Currency
		record.PriceType = previous.PriceType
	}

	if err := r.appendHistory(ctx, productKey, previousPrice, newPrice, reason, effectiveDate, actor); err != nil {
		return nil, err
	}
	if err := r.Store.Set(ctx, pricingPath(productKey), record); err != nil {
		return nil, fmt.Errorf("failed to persist pricing record: %w", err)
	}

	cache.InvalidateKeys(ctx, cacheKey(productKey))
	return &record, nil
}

// History đọc các mục lịch sử giá của một sản phẩm.
func (r *Resolver) History(ctx context.Context, productKey string) ([]models.PriceHistoryEntry, error) {
	var entries []models.PriceHistoryEntry
	if err := r.Store.Query(ctx, "productPriceHistory", map[string]interface{}{"productKey": productKey}, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.PriceHistoryEntry{}
	}
	return entries, nil
}

func (r *Resolver) appendHistory(ctx context.Context, productKey string, previousPrice, newPrice float64, reason string, effectiveDate time.Time, actor models.Actor) error {
	entry := models.PriceHistoryEntry{
		EntryID:       uuid.New().String(),
		ProductKey:    productKey,
		PreviousPrice: previousPrice,
		NewPrice:      newPrice,
		ChangePercent: PriceChangePercent(previousPrice, newPrice),
		Reason:        reason,
		EffectiveDate: effectiveDate,
		ChangedBy:     actor,
		ChangedAt:     time.Now(),
	}
	if err := r.Store.Set(ctx, "productPriceHistory/"+entry.EntryID, entry); err != nil {
		return fmt.Errorf("failed to append price history: %w", err)
	}
	return nil
}

func (r *Resolver) cacheRecord(ctx context.Context, productKey string, record *models.ProductPricing) {
	if data, err := json.Marshal(record); err == nil {
		cache.SetCached(ctx, cacheKey(productKey), data, cacheTTL)
	}
}

// PriceChangePercent tính phần trăm thay đổi giá cho analytics.
// Trả 0 khi giá trước bằng 0 để tránh chia cho 0 - công thức này phải
// giữ nguyên để số liệu khớp với báo cáo cũ.
func PriceChangePercent(previous, next float64) float64 {
	if previous == 0 {
		return 0
	}
	return (next - previous) / previous * 100
}
