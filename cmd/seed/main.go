// Seeding tool that fills the payments table with sample records for the dashboard.
// Usage (env overrides):
//
//	SEED_COUNT=200 SEED_DAYS=14
//
// Reads DATABASE_URL via paydash/pkg/config
package main

import (
	"context"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"paydash/internal/domain"
	"paydash/internal/repository/postgres"
	"paydash/pkg/config"
	"paydash/pkg/logger"
)

var receivers = []string{"Acme Ltd", "Blue Harbor Foods", "Northwind Traders", "Globex", "Initech", "Umbrella Supplies"}

var statuses = []domain.PaymentStatus{
	domain.PaymentStatusSuccess, domain.PaymentStatusSuccess, domain.PaymentStatusSuccess,
	domain.PaymentStatusPending, domain.PaymentStatusFailed,
}

var methods = []domain.PaymentMethod{
	domain.PaymentMethodCreditCard, domain.PaymentMethodDebitCard,
	domain.PaymentMethodPaypal, domain.PaymentMethodBankTransfer,
}

func main() {
	_ = godotenv.Load()
	log := logger.New("seed-payments")

	cfg := config.Load()
	cfg.Store.Driver = config.DriverPostgres
	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	count := getIntEnv("SEED_COUNT", 100)
	days := getIntEnv("SEED_DAYS", 14)

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	repo := postgres.NewPaymentRepository(db)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()
	span := time.Duration(days) * 24 * time.Hour

	inserted := 0
	for i := 0; i < count; i++ {
		p := &domain.Payment{
			Amount:    decimal.New(int64(rng.Intn(500_000)+100), -2),
			Receiver:  receivers[rng.Intn(len(receivers))],
			Status:    statuses[rng.Intn(len(statuses))],
			Method:    methods[rng.Intn(len(methods))],
			CreatedAt: now.Add(-time.Duration(rng.Int63n(int64(span)))).Truncate(time.Microsecond),
		}
		if _, err := repo.Insert(ctx, p); err != nil {
			log.Error("Insert failed", map[string]interface{}{"error": err.Error()})
			continue
		}
		inserted++
	}

	log.Info("Seed complete", map[string]interface{}{"inserted": inserted, "days": days})
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
