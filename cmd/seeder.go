package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/work-permit/internal/auth"
	"github.com/frahmantamala/work-permit/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/work-permit/internal/core/datamodel/user"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/internal/user"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	seedEmail    string
	seedPassword string
	seedName     string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the bootstrap admin account",
	Long:  `Create an admin account so the first administrator can log in. Running it again is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		lg := logger.LoggerWrapper()

		store, err := openStorage(ctx, cfg.Database, lg)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer store.Close(ctx)

		created, err := seedAdmin(ctx, store.Users, auth.NewBcryptHasher(cfg.Security.BCryptCost), seedName, seedEmail, seedPassword)
		if err != nil {
			return err
		}
		if created {
			lg.Info("seeded admin user", "email", user.NormalizeEmail(seedEmail))
		} else {
			lg.Info("admin user already exists", "email", user.NormalizeEmail(seedEmail))
		}
		return nil
	},
}

type passwordHasher interface {
	Hash(password string) (string, error)
}

// seedAdmin creates the admin unless the email is already registered.
func seedAdmin(ctx context.Context, users user.RepositoryAPI, hasher passwordHasher, name, email, password string) (bool, error) {
	email = user.NormalizeEmail(email)
	if appErr := validation.ValidatePassword(password, user.MinPasswordLength); appErr != nil {
		return false, appErr
	}

	_, err := users.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, userDatamodel.ErrNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	err = users.Create(ctx, &userDatamodel.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role.Admin.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, userDatamodel.ErrDuplicateEmail) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert admin: %w", err)
	}
	return true, nil
}

func init() {
	seedCmd.Flags().StringVar(&seedEmail, "email", "admin@example.com", "admin email")
	seedCmd.Flags().StringVar(&seedPassword, "password", "admin123", "admin password")
	seedCmd.Flags().StringVar(&seedName, "name", "Administrator", "admin display name")
}
