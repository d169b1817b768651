// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
)

// ErrNotFound trả về khi không có tài liệu nào tại đường dẫn yêu cầu.
var ErrNotFound = errors.New("ledger: document not found")

// Store là cổng truy cập kho tài liệu khóa theo đường dẫn, ví dụ
// "dsreqs/REQ-123" hay "notifications/user-1/abc". Phân đoạn đầu là
// collection, phần còn lại là ID tài liệu.
//
// Store không có transaction xuyên đường dẫn; các chuỗi đọc-sửa-ghi
// cần chống lost update phải dùng UpdateIf.
type Store interface {
	// Get đọc tài liệu tại path vào out. Trả ErrNotFound nếu không có.
	Get(ctx context.Context, path string, out interface{}) error

	// Set ghi đè toàn bộ tài liệu tại path, tạo mới nếu chưa có.
	Set(ctx context.Context, path string, doc interface{}) error

	// Update ghi đè từng field một, tạo tài liệu nếu chưa có.
	Update(ctx context.Context, path string, fields map[string]interface{}) error

	// UpdateIf chỉ ghi khi các field trong expect vẫn đúng với giá trị
	// hiện tại trên store. Trả về false nếu điều kiện không còn đúng.
	UpdateIf(ctx context.Context, path string, fields map[string]interface{}, expect map[string]interface{}) (bool, error)

	// Push ghi doc dưới dir với một ID con sinh mới, trả về ID đó.
	Push(ctx context.Context, dir string, doc interface{}) (string, error)

	// Query decode mọi tài liệu dưới dir khớp filter (so sánh bằng theo
	// từng field, filter nil lấy tất cả) vào out, một con trỏ slice.
	Query(ctx context.Context, dir string, filter map[string]interface{}, out interface{}) error
}
