// internal/models/common.go
package models

// Quantity định nghĩa đơn vị và giá trị số lượng.
type Quantity struct {
	Unit  string  `bson:"unit,omitempty" json:"unit"`
	Value float64 `bson:"value,omitempty" json:"value"`
}

// Actor lưu danh tính người thực hiện một hành động trong workflow.
type Actor struct {
	UserID string `bson:"userID" json:"userID"`
	Name   string `bson:"name" json:"name"`
	Role   string `bson:"role" json:"role"`
}

// Các vai trò trong hệ thống.
const (
	RoleSuperAdmin = "superadmin"
	RoleMD         = "md"       // Main Director - người duyệt vòng 1
	RoleHO         = "ho"       // Head of Operations - người duyệt vòng 2
	RoleFGStore    = "fg_store" // Kho thành phẩm - người thực hiện xuất hàng
	RoleShopOwner  = "shop_owner"
)

// Các loại bên nhận hàng.
const (
	RecipientDirectShop = "direct_shop"
	RecipientDistributor = "distributor"
	RecipientDirectRep  = "direct_representative"
)
