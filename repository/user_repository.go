package repository

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/gavelhub/gavel/auctionerrors"
	"github.com/gavelhub/gavel/models"
)

// UserRepository is the gorm-backed UserStore implementation.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername loads an account by its unique username.
func (r *UserRepository) FindByUsername(username string) (models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("repository: user %q: %w", username, auctionerrors.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("repository: load user %q: %w", username, err)
	}
	return user, nil
}

// FindByID loads an account by id.
func (r *UserRepository) FindByID(id uint) (models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, fmt.Errorf("repository: user %d: %w", id, auctionerrors.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("repository: load user %d: %w", id, err)
	}
	return user, nil
}

// Create inserts a new account. The username unique index is the authority
// on duplicates; a racing registration that passes the pre-check still lands
// on the index and maps to the same error.
func (r *UserRepository) Create(user *models.User) error {
	var existing models.User
	err := r.db.Where("username = ?", user.Username).First(&existing).Error
	if err == nil {
		return fmt.Errorf("repository: user %q: %w", user.Username, auctionerrors.ErrDuplicateUsername)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("repository: check username %q: %w", user.Username, err)
	}

	if err := r.db.Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("repository: user %q: %w", user.Username, auctionerrors.ErrDuplicateUsername)
		}
		return fmt.Errorf("repository: create user %q: %w", user.Username, err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
