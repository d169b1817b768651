// internal/database/seeder.go
package database

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mfg-backoffice-api-server/internal/auth"
	"mfg-backoffice-api-server/internal/ledger"
	"mfg-backoffice-api-server/internal/models"

	"github.com/google/uuid"
)

// seedAccount là một tài khoản mặc định được tạo lúc khởi động nếu chưa có.
type seedAccount struct {
	Email    string
	Name     string
	Password string
	Role     string
}

var defaultAccounts = []seedAccount{
	{"superadmin@example.com", "Super Admin", "superadminpassword", models.RoleSuperAdmin},
	{"md@example.com", "Managing Director", "mdpassword", models.RoleMD},
	{"ho@example.com", "Head Office", "hopassword", models.RoleHO},
	{"fgstore@example.com", "FG Store Keeper", "fgstorepassword", models.RoleFGStore},
}

// SeedDefaultUsers tạo các tài khoản hệ thống nếu chưa tồn tại.
// Password mặc định chỉ dành cho môi trường dev, phải đổi ngay khi deploy.
func SeedDefaultUsers(store ledger.Store) error {
	ctx := context.Background()

	for _, account := range defaultAccounts {
		var existing []models.User
		if err := store.Query(ctx, "users", map[string]interface{}{"email": account.Email}, &existing); err != nil {
			return fmt.Errorf("failed to check existing user %s: %w", account.Email, err)
		}
		if len(existing) > 0 {
			continue
		}

		hashedPassword, err := auth.HashPassword(account.Password)
		if err != nil {
			return err
		}

		user := models.User{
			UserID:   fmt.Sprintf("%s-%s", account.Role, strings.ToUpper(uuid.New().String()[:8])),
			Email:    account.Email,
			Name:     account.Name,
			Password: hashedPassword,
			Role:     account.Role,
			Status:   "active",
		}
		if err := store.Set(ctx, "users/"+user.UserID, user); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", account.Email, err)
		}
		log.Printf("Seeded default account %s (%s)", account.Email, account.Role)
	}
	return nil
}
