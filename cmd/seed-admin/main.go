// seed-admin creates or updates the admin operator account.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
//
// The password can be overridden with SEED_ADMIN_PASSWORD.
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"bitbucket.org/mmdatafocus/esteira_backend/utils"
	"gorm.io/gorm"
)

const (
	adminUsername = "admin"
	adminName     = "Administrador"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.Operator
	err = db.WithContext(ctx).Where("usuario = ?", adminUsername).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup operator: %v\n", err)
			os.Exit(1)
		}
		operator := models.Operator{
			Nome:     adminName,
			Usuario:  adminUsername,
			Senha:    string(hashed),
			Role:     models.RoleAdmin,
			IsActive: utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&operator).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin operator: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created admin operator (id=%d usuario=%s)\n", operator.ID, adminUsername)
		return
	}

	err = db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"senha":     string(hashed),
		"role":      models.RoleAdmin,
		"is_active": true,
	}).Error
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin operator: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("updated admin operator (id=%d usuario=%s)\n", existing.ID, adminUsername)
}
