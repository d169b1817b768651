// internal/models/product.go
package models

import "time"

// Product là một sản phẩm trong danh mục, lưu tại products/{productID}.
type Product struct {
	ProductID   string    `bson:"productID" json:"productID"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Unit        string    `bson:"unit" json:"unit"`
	Category    string    `bson:"category,omitempty" json:"category,omitempty"`
	Active      bool      `bson:"active" json:"active"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}
