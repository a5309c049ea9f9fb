// seed bootstraps the role table and the admin account. Idempotent: skips
// the insert when the admin email already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"auth-starter/backend/internal/config"
	"auth-starter/backend/internal/db"
	"auth-starter/backend/internal/role"
	"auth-starter/backend/internal/security"
	userdomain "auth-starter/backend/internal/user/domain"
	userrepo "auth-starter/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD are required to seed the admin account")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	for _, r := range role.All() {
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO roles (id, name, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (name) DO NOTHING`,
			uuid.New().String(), string(r), now); err != nil {
			log.Fatalf("seed role %s: %v", r, err)
		}
	}
	log.Printf("seeded %d roles", len(role.All()))

	users := userrepo.NewPostgresRepository(conn)
	existing, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("admin %s already exists, skipping", cfg.AdminEmail)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(cfg.AdminPassword))
	if err != nil {
		log.Fatalf("hash admin password: %v", err)
	}

	username := cfg.AdminUsername
	if username == "" {
		username = "admin"
	}
	admin := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        cfg.AdminEmail,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("create admin: %v", err)
	}
	for _, r := range []role.Role{role.Admin, role.User} {
		if err := users.AssignRole(ctx, admin.ID, r); err != nil {
			log.Fatalf("assign role %s: %v", r, err)
		}
	}

	log.Printf("seeded admin %s", cfg.AdminEmail)
}
