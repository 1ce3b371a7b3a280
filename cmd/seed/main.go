// Package main seeds the invoicing database: it connects with bounded
// retries, creates the tables if they do not exist, and inserts the demo
// users, customers, invoices, and revenue rows. Inserts are idempotent
// (ON CONFLICT DO NOTHING), so re-running the seeder is safe.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"invoicedash/internal/auth"
	"invoicedash/internal/config"
	"invoicedash/internal/db"
	"invoicedash/internal/sqlt"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	provider, err := db.NewPoolProvider(ctx, db.PoolConfig{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		Database:     cfg.Database.Name,
		User:         cfg.Database.User,
		PasswordFile: cfg.Database.PasswordFile,
		MaxConns:     cfg.Database.MaxConns,
		MinConns:     cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("creating pool: %w", err)
	}
	defer provider.Close()

	handle, err := db.AcquireWithRetry(ctx, provider, cfg.Database.ConnectRetries, cfg.Database.ConnectRetryDelay, logger)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer handle.Release()

	logger.Info("connected to postgres")

	steps := []struct {
		name string
		fn   func(context.Context, *db.Handle) error
	}{
		{"tables", createTables},
		{"users", seedUsers},
		{"customers", seedCustomers},
		{"invoices", seedInvoices},
		{"revenue", seedRevenue},
	}
	for _, step := range steps {
		if err := step.fn(ctx, handle); err != nil {
			return fmt.Errorf("seeding %s: %w", step.name, err)
		}
		logger.Info("seeded", "step", step.name)
	}

	return nil
}

// createTables issues the schema DDL. The uuid-ossp extension provides
// uuid_generate_v4 for server-side id defaults.
func createTables(ctx context.Context, h *db.Handle) error {
	ddl := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,
		`CREATE TABLE IF NOT EXISTS users (
			id UUID DEFAULT uuid_generate_v4() PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id UUID DEFAULT uuid_generate_v4() PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			image_url VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id UUID DEFAULT uuid_generate_v4() PRIMARY KEY,
			customer_id UUID NOT NULL,
			amount INT NOT NULL,
			status VARCHAR(255) NOT NULL,
			date DATE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS revenue (
			month VARCHAR(4) NOT NULL UNIQUE,
			revenue INT NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := h.Exec(ctx, sqlt.New(stmt)); err != nil {
			return err
		}
	}
	return nil
}

type seedUser struct {
	id, name, email, password string
}

type seedCustomer struct {
	id, name, email, imageURL string
}

type seedInvoice struct {
	id         string
	customerID string
	amount     int64
	status     string
	date       string
}

var users = []seedUser{
	{"410544b2-4001-4271-9855-fec4b6a6442a", "User", "user@nextmail.com", "123456"},
}

var customers = []seedCustomer{
	{"d6e15727-9fe1-4961-8c5b-ea44a9bd81aa", "Evil Rabbit", "evil@rabbit.com", "/customers/evil-rabbit.png"},
	{"3958dc9e-712f-4377-85e9-fec4b6a6442a", "Delba de Oliveira", "delba@oliveira.com", "/customers/delba-de-oliveira.png"},
	{"3958dc9e-742f-4377-85e9-fec4b6a6442a", "Lee Robinson", "lee@robinson.com", "/customers/lee-robinson.png"},
	{"76d65c26-f784-44a2-ac19-586678f7c2f2", "Michael Novotny", "michael@novotny.com", "/customers/michael-novotny.png"},
	{"cc27c14a-0acf-4f4a-a6c9-d45682c144b9", "Amy Burns", "amy@burns.com", "/customers/amy-burns.png"},
	{"13d07535-c59e-4157-a011-f8d2ef4e0cbb", "Balazs Orban", "balazs@orban.com", "/customers/balazs-orban.png"},
}

// Invoice ids are fixed so re-seeding hits the ON CONFLICT guard instead
// of inserting duplicates.
var invoices = []seedInvoice{
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a01", customers[0].id, 15795, "pending", "2022-12-06"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a02", customers[1].id, 20348, "pending", "2022-11-14"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a03", customers[4].id, 3040, "paid", "2022-10-29"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a04", customers[3].id, 44800, "paid", "2023-09-10"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a05", customers[5].id, 34577, "pending", "2023-08-05"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a06", customers[2].id, 54246, "pending", "2023-07-16"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a07", customers[0].id, 666, "pending", "2023-06-27"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a08", customers[3].id, 32545, "paid", "2023-06-09"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a09", customers[4].id, 1250, "paid", "2023-06-17"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a10", customers[5].id, 8546, "paid", "2023-06-07"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a11", customers[1].id, 500, "paid", "2023-08-19"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a12", customers[5].id, 8945, "paid", "2023-06-03"},
	{"8e8b9cc1-6b15-4a2c-9f30-2a1d54c01a13", customers[2].id, 1000, "paid", "2022-06-05"},
}

var revenue = []struct {
	month  string
	amount int64
}{
	{"Jan", 2000}, {"Feb", 1800}, {"Mar", 2200}, {"Apr", 2500},
	{"May", 2300}, {"Jun", 3200}, {"Jul", 3500}, {"Aug", 3700},
	{"Sep", 2500}, {"Oct", 2800}, {"Nov", 3000}, {"Dec", 4800},
}

func seedUsers(ctx context.Context, h *db.Handle) error {
	for _, u := range users {
		hash, err := auth.HashPassword(u.password)
		if err != nil {
			return err
		}
		q := sqlt.New(`INSERT INTO users (id, name, email, password_hash) VALUES (`).
			Add(sqlt.Value(u.id), `, `).
			Add(sqlt.Value(u.name), `, `).
			Add(sqlt.Value(u.email), `, `).
			Add(sqlt.Value(hash), `) ON CONFLICT (id) DO NOTHING`)
		if _, err := h.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func seedCustomers(ctx context.Context, h *db.Handle) error {
	for _, c := range customers {
		q := sqlt.New(`INSERT INTO customers (id, name, email, image_url) VALUES (`).
			Add(sqlt.Value(c.id), `, `).
			Add(sqlt.Value(c.name), `, `).
			Add(sqlt.Value(c.email), `, `).
			Add(sqlt.Value(c.imageURL), `) ON CONFLICT (id) DO NOTHING`)
		if _, err := h.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func seedInvoices(ctx context.Context, h *db.Handle) error {
	for _, inv := range invoices {
		q := sqlt.New(`INSERT INTO invoices (id, customer_id, amount, status, date) VALUES (`).
			Add(sqlt.Value(inv.id), `, `).
			Add(sqlt.Value(inv.customerID), `, `).
			Add(sqlt.Value(inv.amount), `, `).
			Add(sqlt.Value(inv.status), `, `).
			Add(sqlt.Value(inv.date), `) ON CONFLICT (id) DO NOTHING`)
		if _, err := h.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func seedRevenue(ctx context.Context, h *db.Handle) error {
	for _, rev := range revenue {
		q := sqlt.New(`INSERT INTO revenue (month, revenue) VALUES (`).
			Add(sqlt.Value(rev.month), `, `).
			Add(sqlt.Value(rev.amount), `) ON CONFLICT (month) DO NOTHING`)
		if _, err := h.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
