// Seeding tool for local development: creates a demo account, a login user,
// and a handful of invoices in mixed currencies.
//
// Env overrides:
//
//	SEED_EMAIL=demo@example.com SEED_PASSWORD=Password123 SEED_ACCOUNT="Demo Inc"
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"invoicer/internal/domain"
	"invoicer/internal/repository/postgres"
	"invoicer/pkg/config"
	"invoicer/pkg/logger"
)

type seedInvoice struct {
	amount   string
	currency domain.Currency
	rate     string
	status   domain.InvoiceStatus
}

func main() {
	log := logger.New("seed")

	cfg := config.Load()
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required", nil)
	}

	email := getenv("SEED_EMAIL", "demo@example.com")
	password := getenv("SEED_PASSWORD", "Password123")
	accountName := getenv("SEED_ACCOUNT", "Demo Inc")

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	accountRepo := postgres.NewAccountRepository(db)
	userRepo := postgres.NewUserRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)
	ctx := context.Background()

	exists, err := userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		log.Fatal("ExistsByEmail failed", map[string]interface{}{"error": err.Error()})
	}
	if exists {
		fmt.Println("OK: seed user already present, nothing to do")
		return
	}

	account := &domain.Account{
		ID:        uuid.New(),
		Name:      accountName,
		CreatedAt: time.Now(),
	}
	if err := accountRepo.Create(ctx, account); err != nil {
		log.Fatal("Account creation failed", map[string]interface{}{"error": err.Error()})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Password hashing failed", map[string]interface{}{"error": err.Error()})
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Email:        email,
		Name:         "Demo User",
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		log.Fatal("User creation failed", map[string]interface{}{"error": err.Error()})
	}

	invoices := []seedInvoice{
		{amount: "100", currency: domain.USD, rate: "1", status: domain.InvoiceStatusPaid},
		{amount: "250.50", currency: domain.USD, rate: "1", status: domain.InvoiceStatusPending},
		{amount: "80", currency: domain.EUR, rate: "1.0850", status: domain.InvoiceStatusPaid},
		{amount: "120", currency: domain.GBP, rate: "1.2700", status: domain.InvoiceStatusPending},
		{amount: "15000", currency: domain.JPY, rate: "0.0067", status: domain.InvoiceStatusPaid},
	}

	for _, s := range invoices {
		amount := decimal.RequireFromString(s.amount)
		rate := decimal.RequireFromString(s.rate)
		inv := &domain.Invoice{
			ID:               uuid.New(),
			AccountID:        account.ID,
			OriginalAmount:   amount,
			OriginalCurrency: s.currency,
			ExchangeRate:     rate,
			ConvertedAmount:  amount.Mul(rate).Round(2),
			Status:           s.status,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := invoiceRepo.Create(ctx, inv); err != nil {
			log.Fatal("Invoice creation failed", map[string]interface{}{"error": err.Error()})
		}
	}

	fmt.Printf("OK: seeded account %q with user %s and %d invoices\n", accountName, email, len(invoices))
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
