package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marmos91/dittoftp/pkg/controlplane/models"
	"github.com/marmos91/dittoftp/pkg/identity"
)

func (s *GORMStore) byUsername(ctx context.Context, username string) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username)
}

// requireRow maps a write that touched nothing to ErrUserNotFound.
func requireRow(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (s *GORMStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.byUsername(ctx, username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GORMStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GORMStore) CreateUser(ctx context.Context, user *models.User) (string, error) {
	if err := user.Validate(); err != nil {
		return "", err
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return "", models.ErrDuplicateUser
		}
		return "", err
	}
	return user.ID, nil
}

func (s *GORMStore) UpdateUser(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	// Select writes zero values too (Perms 0, Enabled false).
	return requireRow(s.byUsername(ctx, user.Username).
		Select("home", "perms", "enabled", "updated_at").
		Updates(map[string]any{
			"home":       user.Home,
			"perms":      user.Perms,
			"enabled":    user.Enabled,
			"updated_at": time.Now(),
		}))
}

func (s *GORMStore) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	return requireRow(s.byUsername(ctx, username).Update("password_hash", passwordHash))
}

func (s *GORMStore) DeleteUser(ctx context.Context, username string) error {
	return requireRow(s.db.WithContext(ctx).Where("username = ?", username).Delete(&models.User{}))
}

func (s *GORMStore) UpdateLastLogin(ctx context.Context, username string, timestamp time.Time) error {
	// UpdateColumn leaves updated_at alone: a login is not an edit.
	return requireRow(s.byUsername(ctx, username).UpdateColumn("last_login", timestamp))
}

func (s *GORMStore) LoadUsers(ctx context.Context) ([]identity.User, error) {
	var rows []*models.User
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Order("username").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]identity.User, 0, len(rows))
	for _, u := range rows {
		users = append(users, u.Identity())
	}
	return users, nil
}

func (s *GORMStore) EnsureAdminUser(ctx context.Context, username, passwordHash string) (string, error) {
	if username == "" {
		username = models.AdminUsername
	}
	if _, err := s.GetUser(ctx, username); err == nil {
		return "", nil
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return "", err
	}

	var password string
	if passwordHash == "" {
		var err error
		if password, err = models.GetOrGenerateAdminPassword(); err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		if passwordHash, err = identity.HashPassword(password); err != nil {
			return "", fmt.Errorf("failed to hash password: %w", err)
		}
		// A password taken from the environment is already known.
		if os.Getenv(models.EnvAdminInitialPassword) != "" {
			password = ""
		}
	}

	admin := models.DefaultAdminUser(passwordHash)
	admin.Username = username
	if _, err := s.CreateUser(ctx, admin); err != nil {
		return "", fmt.Errorf("failed to create admin user: %w", err)
	}
	return password, nil
}
