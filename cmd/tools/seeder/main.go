package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/config"
)

// Seeds a local database with an admin account and a small demo catalog so
// the portal is usable right after `migrate up`.
func main() {
	var (
		adminEmail    = flag.String("admin-email", "admin@example.com", "admin account email")
		adminPassword = flag.String("admin-password", "changeme-now", "admin account password")
		withCatalog   = flag.Bool("catalog", true, "seed demo products")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	if err := seedAdmin(ctx, pool, *adminEmail, *adminPassword); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	log.Printf("admin ready: %s", *adminEmail)

	if *withCatalog {
		n, err := seedCatalog(ctx, pool)
		if err != nil {
			log.Fatalf("seed catalog: %v", err)
		}
		log.Printf("catalog ready: %d products", n)
	}
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO users (email, name, password_hash, role, status, can_reserve, can_access_mural, can_access_exchange)
		VALUES ($1, 'Administrator', $2, 'admin', 'active', TRUE, TRUE, TRUE)
		ON CONFLICT (LOWER(email)) DO NOTHING
	`, strings.ToLower(strings.TrimSpace(email)), hash)
	return err
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	products := []struct {
		code, destination, name, category string
		adultSummer, adultWinter          string
	}{
		{"BRC-CITY-01", "Bariloche", "City Tour Half Day", "excursion", "45.00", "52.00"},
		{"BRC-CERRO-02", "Bariloche", "Cerro Catedral Full Day", "excursion", "98.50", "120.00"},
		{"USH-BEAGLE-01", "Ushuaia", "Beagle Channel Navigation", "navigation", "75.00", "89.90"},
		{"CAL-PERITO-01", "El Calafate", "Perito Moreno Glacier", "excursion", "110.00", "110.00"},
	}
	const insert = `
		INSERT INTO products (code, destination, name, category, adult_summer, child_summer,
			adult_winter, child_winter, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`
	for _, p := range products {
		adultSummer, _ := decimal.NewFromString(p.adultSummer)
		adultWinter, _ := decimal.NewFromString(p.adultWinter)
		half := decimal.NewFromFloat(0.5)
		if _, err := pool.Exec(ctx, insert,
			p.code, p.destination, p.name, p.category,
			adultSummer, adultSummer.Mul(half).Round(2),
			adultWinter, adultWinter.Mul(half).Round(2),
		); err != nil {
			return 0, err
		}
	}
	return len(products), nil
}
