package repository

import (
	"fmt"
	"time"

	"github.com/greenloop/greenloop-backend/internal/models"
)

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(user *models.User) error {
	if user.Level == 0 {
		user.Level = 1
	}
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by id %d: %w", id, err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by username %s: %w", username, err)
	}
	return &user, nil
}

// List retrieves all users.
func (r *UserRepository) List() ([]models.User, error) {
	var users []models.User
	err := r.db.Order("id ASC").Find(&users).Error
	return users, err
}

// Update updates a user.
func (r *UserRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// AddBadge grants a badge by name. Granting an already-held badge is a no-op.
func (r *UserRepository) AddBadge(userID uint, badge string, now time.Time) error {
	has, err := r.HasBadge(userID, badge)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	return r.db.Create(&models.UserBadge{
		UserID:   userID,
		Badge:    badge,
		EarnedAt: now,
	}).Error
}

// HasBadge checks whether the user holds a badge.
func (r *UserRepository) HasBadge(userID uint, badge string) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge = ?", userID, badge).
		Count(&count).Error
	return count > 0, err
}

// GetBadges retrieves all badges earned by a user.
func (r *UserRepository) GetBadges(userID uint) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := r.db.
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&badges).Error
	return badges, err
}

// AddTitle grants a title. Granting an already-held title is a no-op.
func (r *UserRepository) AddTitle(userID uint, title string, now time.Time) error {
	var count int64
	if err := r.db.Model(&models.UserTitle{}).
		Where("user_id = ? AND title = ?", userID, title).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.Create(&models.UserTitle{
		UserID:    userID,
		Title:     title,
		GrantedAt: now,
	}).Error
}

// GetTitles retrieves all titles granted to a user.
func (r *UserRepository) GetTitles(userID uint) ([]models.UserTitle, error) {
	var titles []models.UserTitle
	err := r.db.
		Where("user_id = ?", userID).
		Order("granted_at DESC").
		Find(&titles).Error
	return titles, err
}
