// internal/workflow/service.go
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

// Notifier là cổng fan-out thông báo. Mọi lời gọi đều best-effort:
// implementation không được trả lỗi về workflow.
type Notifier interface {
	NotifyRole(ctx context.Context, role string, event, title, body string, data map[string]interface{})
	NotifyMobile(ctx context.Context, targetKey string, event, title, body string, data map[string]interface{})
}

// Service điều khiển vòng đời yêu cầu của cửa hàng trực tiếp qua máy
// trạng thái pending -> md_approved_forwarded_to_ho ->
// ho_approved_forwarded_to_fg -> dispatched, với hai nhánh từ chối.
type Service struct {
	Store    ledger.Store
	Notifier Notifier
}

func NewService(store ledger.Store, notifier Notifier) *Service {
	return &Service{Store: store, Notifier: notifier}
}

func shopRequestPath(requestID string) string {
	return "dsreqs/" + requestID
}

// SubmitShopRequestInput là đầu vào tạo yêu cầu. Mobile app cũ gửi một
// sản phẩm duy nhất, UI mới gửi danh sách mặt hàng; cả hai được chuẩn
// hóa về models.RequestPayload ngay tại đây.
type SubmitShopRequestInput struct {
	Requester models.Actor
	ShopName  string
	Location  string
	Items     []models.RequestItem
	Urgent    bool
	Notes     string
}

// SubmitShopRequest tạo một yêu cầu mới ở trạng thái pending và báo cho MD.
func (s *Service) SubmitShopRequest(ctx context.Context, input SubmitShopRequestInput) (*models.ShopRequest, error) {
	if len(input.Items) == 0 {
		return nil, ErrInvalidQuantity
	}
	for _, item := range input.Items {
		if item.Quantity.Value <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	payloadType := models.PayloadItemList
	if len(input.Items) == 1 {
		payloadType = models.PayloadSingleProduct
	}

	request := models.ShopRequest{
		RequestID: fmt.Sprintf("DSR-%s", strings.ToUpper(uuid.New().String()[:8])),
		Requester: input.Requester,
		ShopName:  input.ShopName,
		Location:  input.Location,
		Payload: models.RequestPayload{
			Type:  payloadType,
			Items: input.Items,
		},
		Urgent:    input.Urgent,
		Notes:     input.Notes,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}

	if err := s.Store.Set(ctx, shopRequestPath(request.RequestID), request); err != nil {
		return nil, fmt.Errorf("failed to persist shop request: %w", err)
	}

	s.Notifier.NotifyRole(ctx, models.RoleMD, "shop_request_submitted",
		"New shop request awaiting approval",
		fmt.Sprintf("Request %s from %s", request.RequestID, input.Requester.Name),
		map[string]interface{}{"requestID": request.RequestID})

	return &request, nil
}

// GetShopRequest đọc một yêu cầu theo ID.
func (s *Service) GetShopRequest(ctx context.Context, requestID string) (*models.ShopRequest, error) {
	var request models.ShopRequest
	if err := s.Store.Get(ctx, shopRequestPath(requestID), &request); err != nil {
		if err == ledger.ErrNotFound {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

// ListShopRequests lấy danh sách yêu cầu, lọc theo status nếu có.
func (s *Service) ListShopRequests(ctx context.Context, status string) ([]models.ShopRequest, error) {
	filter := map[string]interface{}{}
	if status != "" {
		filter["status"] = status
	}
	var requests []models.ShopRequest
	if err := s.Store.Query(ctx, "dsreqs", filter, &requests); err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []models.ShopRequest{}
	}
	return requests, nil
}

// Approve chuyển yêu cầu sang trạng thái kế tiếp theo vai trò của actor:
// MD duyệt từ pending, HO duyệt từ md_approved_forwarded_to_ho.
// Mỗi vòng chỉ ghi vệt phê duyệt đúng một lần.
func (s *Service) Approve(ctx context.Context, requestID string, actor models.Actor, comments string) (*models.ShopRequest, error) {
	request, err := s.GetShopRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var stage, expectedStatus, nextStatus, nextRole string
	switch actor.Role {
	case models.RoleMD:
		stage, expectedStatus, nextStatus, nextRole = "md", models.StatusPending, models.StatusMDApproved, models.RoleHO
	case models.RoleHO:
		stage, expectedStatus, nextStatus, nextRole = "ho", models.StatusMDApproved, models.StatusHOApproved, models.RoleFGStore
	default:
		return nil, fmt.Errorf("%w: role %s cannot approve", ErrInvalidStateTransition, actor.Role)
	}

	if request.Status != expectedStatus {
		return nil, fmt.Errorf("%w: cannot approve from status %s", ErrInvalidStateTransition, request.Status)
	}
	for _, entry := range request.Approvals {
		if entry.Stage == stage {
			return nil, fmt.Errorf("%w: stage %s already approved", ErrInvalidStateTransition, stage)
		}
	}

	request.Status = nextStatus
	request.Approvals = append(request.Approvals, models.ApprovalEntry{
		Stage:    stage,
		Actor:    actor,
		Comments: comments,
		At:       time.Now(),
	})

	err = s.Store.Update(ctx, shopRequestPath(requestID), map[string]interface{}{
		"status":    request.Status,
		"approvals": request.Approvals,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update shop request: %w", err)
	}

	s.Notifier.NotifyRole(ctx, nextRole, "shop_request_"+stage+"_approved",
		fmt.Sprintf("Request %s approved, awaiting your action", requestID),
		comments,
		map[string]interface{}{"requestID": requestID, "status": request.Status})

	return request, nil
}

// Reject chuyển yêu cầu sang trạng thái từ chối cuối cùng của vòng mà
// actor sở hữu. Lý do là bắt buộc; yêu cầu không bị đụng tới nếu thiếu.
func (s *Service) Reject(ctx context.Context, requestID string, actor models.Actor, reason string) (*models.ShopRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrMissingReason
	}

	request, err := s.GetShopRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var stage, expectedStatus, rejectedStatus string
	switch actor.Role {
	case models.RoleMD:
		stage, expectedStatus, rejectedStatus = "md", models.StatusPending, models.StatusMDRejected
	case models.RoleHO:
		stage, expectedStatus, rejectedStatus = "ho", models.StatusMDApproved, models.StatusHORejected
	default:
		return nil, fmt.Errorf("%w: role %s cannot reject", ErrInvalidStateTransition, actor.Role)
	}

	if request.Status != expectedStatus {
		return nil, fmt.Errorf("%w: cannot reject from status %s", ErrInvalidStateTransition, request.Status)
	}

	request.Status = rejectedStatus
	request.Rejection = &models.RejectionEntry{
		Stage:  stage,
		Actor:  actor,
		Reason: reason,
		At:     time.Now(),
	}

	err = s.Store.Update(ctx, shopRequestPath(requestID), map[string]interface{}{
		"status":    request.Status,
		"rejection": request.Rejection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update shop request: %w", err)
	}

	// Báo cho mobile client của cửa hàng đã gửi yêu cầu.
	s.Notifier.NotifyMobile(ctx, requestID, "shop_request_rejected",
		fmt.Sprintf("Request %s was rejected", requestID),
		reason,
		map[string]interface{}{"requestID": requestID, "status": request.Status, "reason": reason})

	return request, nil
}

// PrepareForDispatch kiểm tra điều kiện trước khi kho FG xuất hàng.
// Chỉ hợp lệ từ ho_approved_forwarded_to_fg.
func (s *Service) PrepareForDispatch(ctx context.Context, requestID string) (*models.ShopRequest, error) {
	request, err := s.GetShopRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusHOApproved {
		return nil, fmt.Errorf("%w: status is %s", ErrNotReadyForDispatch, request.Status)
	}
	return request, nil
}

// CompleteDispatch đánh dấu yêu cầu đã xuất hàng, lưu liên kết phiếu
// xuất, báo mobile và báo HO hoàn tất. Nếu yêu cầu đi qua cầu nối sales
// request thì đánh dấu bản ghi sales approval upstream là đã gửi.
func (s *Service) CompleteDispatch(ctx context.Context, request *models.ShopRequest, dispatchID, releaseCode string, actor models.Actor) error {
	now := time.Now()
	err := s.Store.Update(ctx, shopRequestPath(request.RequestID), map[string]interface{}{
		"status":       models.StatusDispatched,
		"dispatchID":   dispatchID,
		"releaseCode":  releaseCode,
		"dispatchedAt": now,
		"dispatchedBy": actor,
	})
	if err != nil {
		return fmt.Errorf("failed to mark request dispatched: %w", err)
	}

	s.Notifier.NotifyMobile(ctx, request.RequestID, "shop_request_dispatched",
		fmt.Sprintf("Request %s has been dispatched", request.RequestID),
		"Release code: "+releaseCode,
		map[string]interface{}{
			"requestID":   request.RequestID,
			"dispatchID":  dispatchID,
			"releaseCode": releaseCode,
		})
	s.Notifier.NotifyRole(ctx, models.RoleHO, "shop_request_completed",
		fmt.Sprintf("Request %s completed by FG store", request.RequestID),
		"Release code: "+releaseCode,
		map[string]interface{}{"requestID": request.RequestID, "dispatchID": dispatchID})

	if request.SalesRequestID != "" {
		if err := s.markSalesRequestSent(ctx, request.SalesRequestID, dispatchID, releaseCode); err != nil {
			// Cầu nối sales là phụ; ghi log qua lỗi trả về của caller là đủ.
			return fmt.Errorf("request dispatched but failed to mark sales request %s as sent: %w", request.SalesRequestID, err)
		}
	}
	return nil
}
