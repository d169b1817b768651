// internal/workflow/errors.go
package workflow

import "errors"

var (
	// ErrRequestNotFound - không tìm thấy yêu cầu tại đường dẫn mong đợi.
	ErrRequestNotFound = errors.New("request not found")

	// ErrInvalidStateTransition - hành động không hợp lệ với trạng thái
	// hiện tại (duyệt hai lần, duyệt vượt vòng...). Trạng thái không đổi.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrMissingReason - từ chối mà không có lý do.
	ErrMissingReason = errors.New("rejection reason is required")

	// ErrNotReadyForDispatch - yêu cầu chưa ở trạng thái chờ xuất hàng.
	ErrNotReadyForDispatch = errors.New("request is not approved for dispatch")

	// ErrInvalidQuantity - số lượng yêu cầu phải lớn hơn 0.
	ErrInvalidQuantity = errors.New("requested quantity must be greater than zero")
)
