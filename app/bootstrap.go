// app/bootstrap.go
package app

import (
	"context"
	"log"

	"Gin_postgres_redis_storage_tracker/db"
	"Gin_postgres_redis_storage_tracker/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BootstrapFirstAdmin 启动时创建首个管理员（幂等：已有管理员则跳过）
func BootstrapFirstAdmin(ctx context.Context, cfg Config, repo *db.Repo) {
	if cfg.BootstrapUsername == "" || cfg.BootstrapPassword == "" {
		return
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		log.Printf("bootstrap admin check failed: %v", err)
		return
	}
	if n > 0 {
		return
	}

	if u, err := repo.FindUserByUsername(ctx, cfg.BootstrapUsername); err == nil {
		// 用户已存在：提升为管理员即可
		if err := repo.SetUserAdmin(ctx, u.ID, true); err != nil {
			log.Printf("bootstrap promote failed: %v", err)
			return
		}
		log.Printf("[BOOTSTRAP] Promoted existing user %s to admin", u.Username)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("bootstrap hash failed: %v", err)
		return
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     cfg.BootstrapUsername,
		DisplayName:  cfg.BootstrapUsername,
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		log.Printf("bootstrap admin create failed: %v", err)
		return
	}
	log.Printf("[BOOTSTRAP] No admin found, created admin user %s", u.Username)
}
