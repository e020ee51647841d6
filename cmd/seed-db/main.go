// Command seed-db migrates the database and provisions the platform admin
// account. Admins cannot self-register, so this is the only way to create
// one. Running it again is a no-op.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/vendor-request-system/internal/domain/user"
	"github.com/xenking/vendor-request-system/internal/repository"
)

func main() {
	var (
		databaseURL   string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminEmail, "admin-email", "", "admin login email (or VRS_ADMIN_EMAIL env)")
	flag.StringVar(&adminPassword, "admin-password", "", "admin password (or VRS_ADMIN_PASSWORD env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	databaseURL = firstNonEmpty(databaseURL, os.Getenv("VRS_DATABASE_URL"), os.Getenv("DATABASE_URL"))
	adminEmail = strings.ToLower(strings.TrimSpace(firstNonEmpty(adminEmail, os.Getenv("VRS_ADMIN_EMAIL"))))
	adminPassword = firstNonEmpty(adminPassword, os.Getenv("VRS_ADMIN_PASSWORD"))

	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if adminEmail == "" || adminPassword == "" {
		lg.Fatal("admin credentials are required: set --admin-email and --admin-password")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, adminEmail, adminPassword); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, email, password string) error {
	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seedAdmin(ctx, lg, repository.NewUserRepository(pool), email, password)
}

func seedAdmin(ctx context.Context, lg *zap.Logger, users user.Repository, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	admin := &user.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         user.RoleAdmin,
		IsApproved:   true,
		Status:       user.StatusApproved,
	}
	switch err := users.Create(ctx, admin); {
	case errors.Is(err, user.ErrEmailTaken):
		lg.Info("Admin already exists", zap.String("email", email))
		return nil
	case err != nil:
		return errors.Wrap(err, "create admin")
	}

	lg.Info("Admin created", zap.String("email", email), zap.String("id", admin.ID))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
