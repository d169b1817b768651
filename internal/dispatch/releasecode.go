// internal/dispatch/releasecode.go
package dispatch

import (
	"math/rand"
	"strings"
	"time"
)

const releaseCodeCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateReleaseCode sinh mã xuất kho dạng YYMMDDHHmm + 6 ký tự base-36
// viết hoa, nối liền không phân cách, ví dụ 2503071405A1B2C3.
// Bên nhận dùng mã này để nhận/đối chiếu hàng. Không kiểm tra trùng:
// tính duy nhất chỉ là xác suất - hai lần xuất trong cùng một phút vẫn
// có thể (hiếm) sinh cùng mã, hành vi này giữ nguyên từ hệ thống cũ vì
// chưa rõ downstream có dựa vào mã làm khóa chính hay không.
func GenerateReleaseCode(at time.Time) string {
	var b strings.Builder
	b.WriteString(at.Format("0601021504"))
	for i := 0; i < 6; i++ {
		b.WriteByte(releaseCodeCharset[rand.Intn(len(releaseCodeCharset))])
	}
	return b.String()
}
