package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/config"
	"github.com/sudo-init-do/servicehub/internal/db"
)

// create_admin inserts an admin account. Admins cannot register over HTTP.
// Usage:
//
//	go run ./cmd/adminutil/create_admin -email root@example.com -name Root -password secret123 -phone 22123456
func main() {
	email := flag.String("email", "", "Email of the new admin")
	name := flag.String("name", "", "Display name")
	password := flag.String("password", "", "Password (6 to 72 bytes)")
	phone := flag.String("phone", "", "Phone number (8 digits)")
	city := flag.String("city", "", "City")
	flag.Parse()

	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" || strings.TrimSpace(*name) == "" || *password == "" || *phone == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/create_admin -email user@example.com -name Name -password secret -phone 22123456 [-city City]")
	}
	if !account.ValidEmail(e) {
		log.Fatalf("invalid email: %s", e)
	}
	if !account.ValidPhone(*phone) {
		log.Fatalf("invalid phone: %s", *phone)
	}
	if len(*password) < 6 || len(*password) > 72 {
		log.Fatalf("password must be between 6 and 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, config.Load().PostgresURL())
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	a, err := account.NewStore(pool).Create(ctx, account.NewAccount{
		Name:         strings.TrimSpace(*name),
		Email:        e,
		PasswordHash: string(hash),
		Role:         account.RoleAdmin,
		City:         strings.TrimSpace(*city),
		Phone:        *phone,
	})
	if err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}

	fmt.Printf("Admin %s created with id %s.\n", e, a.Info().ID)
}
