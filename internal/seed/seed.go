// Package seed bootstraps the first studio owner account so a fresh
// install can sign in without manual database surgery.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"gorm.io/gorm"

	authdomain "github.com/framecraft/studio/internal/auth/domain"
	"github.com/framecraft/studio/internal/auth/password"
)

const defaultOwnerDisplay = "Studio Owner"

// EnsureBootstrapOwner creates the configured owner account if no user
// with that email exists. It is idempotent and never downgrades an
// existing account.
func EnsureBootstrapOwner(db *gorm.DB, email, plainPassword string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plainPassword == "" {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
		if err == nil {
			if user.Role != authdomain.RoleAdmin {
				return tx.WithContext(ctx).Model(&authdomain.User{}).
					Where("id = ?", user.ID).
					Updates(map[string]any{
						"role":       authdomain.RoleAdmin,
						"updated_at": time.Now().UTC(),
					}).Error
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(plainPassword)
		if err != nil {
			return fmt.Errorf("hash bootstrap owner password: %w", err)
		}
		now := time.Now().UTC()
		user = authdomain.User{
			ID:           node.Generate(),
			ExternalID:   uuid.NewString(),
			Email:        email,
			DisplayName:  defaultOwnerDisplay,
			Role:         authdomain.RoleAdmin,
			Provider:     authdomain.ProviderCredentials,
			PasswordHash: &hashed,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}
