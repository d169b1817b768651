// internal/workflow/sales.go
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"

	"github.com/google/uuid"
)

// Biến thể sales request có chuỗi duyệt ngắn hơn: bản ghi được tạo đã ở
// trạng thái Approved (MD và HO gộp một vòng), kho FG hoàn tất bằng cách
// chuyển sang sent. Giữ tách biệt với máy trạng thái cửa hàng trực tiếp,
// không gộp chung.

func salesRequestPath(requestID string) string {
	return "salesApprovalHistory/" + requestID
}

// CreateSalesRequest tạo một bản ghi sales approval ở trạng thái Approved
// và báo cho kho FG.
func (s *Service) CreateSalesRequest(ctx context.Context, requester models.Actor, approver models.Actor, items []models.RequestItem, notes string) (*models.SalesRequest, error) {
	if len(items) == 0 {
		return nil, ErrInvalidQuantity
	}
	for _, item := range items {
		if item.Quantity.Value <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	payloadType := models.PayloadItemList
	if len(items) == 1 {
		payloadType = models.PayloadSingleProduct
	}

	request := models.SalesRequest{
		RequestID: fmt.Sprintf("SR-%s", strings.ToUpper(uuid.New().String()[:8])),
		Requester: requester,
		Payload: models.RequestPayload{
			Type:  payloadType,
			Items: items,
		},
		Notes:           notes,
		Status:          models.SalesStatusApproved,
		ApprovedBy:      &approver,
		IsCompletedByFG: false,
		CreatedAt:       time.Now(),
	}

	if err := s.Store.Set(ctx, salesRequestPath(request.RequestID), request); err != nil {
		return nil, fmt.Errorf("failed to persist sales request: %w", err)
	}

	s.Notifier.NotifyRole(ctx, models.RoleFGStore, "sales_request_approved",
		fmt.Sprintf("Sales request %s approved, awaiting dispatch", request.RequestID),
		notes,
		map[string]interface{}{"requestID": request.RequestID})

	return &request, nil
}

// GetSalesRequest đọc một bản ghi sales approval theo ID.
func (s *Service) GetSalesRequest(ctx context.Context, requestID string) (*models.SalesRequest, error) {
	var request models.SalesRequest
	if err := s.Store.Get(ctx, salesRequestPath(requestID), &request); err != nil {
		if err == ledger.ErrNotFound {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

// ListSalesRequests lấy danh sách bản ghi sales approval, lọc theo status nếu có.
func (s *Service) ListSalesRequests(ctx context.Context, status string) ([]models.SalesRequest, error) {
	filter := map[string]interface{}{}
	if status != "" {
		filter["status"] = status
	}
	var requests []models.SalesRequest
	if err := s.Store.Query(ctx, "salesApprovalHistory", filter, &requests); err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []models.SalesRequest{}
	}
	return requests, nil
}

// PrepareSalesForDispatch kiểm tra điều kiện xuất hàng của biến thể sales:
// trạng thái Approved và chưa được FG hoàn tất.
func (s *Service) PrepareSalesForDispatch(ctx context.Context, requestID string) (*models.SalesRequest, error) {
	request, err := s.GetSalesRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.SalesStatusApproved || request.IsCompletedByFG {
		return nil, fmt.Errorf("%w: status is %s", ErrNotReadyForDispatch, request.Status)
	}
	return request, nil
}

// CompleteSalesDispatch đánh dấu bản ghi sales là đã gửi và lưu liên kết
// phiếu xuất.
func (s *Service) CompleteSalesDispatch(ctx context.Context, request *models.SalesRequest, dispatchID, releaseCode string) error {
	if err := s.markSalesRequestSent(ctx, request.RequestID, dispatchID, releaseCode); err != nil {
		return err
	}

	s.Notifier.NotifyMobile(ctx, request.RequestID, "sales_request_sent",
		fmt.Sprintf("Sales request %s has been dispatched", request.RequestID),
		"Release code: "+releaseCode,
		map[string]interface{}{"requestID": request.RequestID, "releaseCode": releaseCode})

	return nil
}

func (s *Service) markSalesRequestSent(ctx context.Context, requestID, dispatchID, releaseCode string) error {
	now := time.Now()
	err := s.Store.Update(ctx, salesRequestPath(requestID), map[string]interface{}{
		"status":          models.SalesStatusSent,
		"isCompletedByFG": true,
		"sentAt":          now,
		"dispatchID":      dispatchID,
		"releaseCode":     releaseCode,
	})
	if err != nil {
		return fmt.Errorf("failed to mark sales request as sent: %w", err)
	}
	return nil
}
