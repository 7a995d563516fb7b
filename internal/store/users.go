package store

import (
	"context"
	"time"

	"securegate/internal/domain"

	"gorm.io/gorm"
)

// UserStore is the credential store
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a user store on db
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user. A taken email or username yields ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	return duplicate(s.db.WithContext(ctx).Create(user).Error)
}

// FindByID loads a user by primary key
func (s *UserStore) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindByUsername loads a user by username
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindByEmail loads a user by email
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindConflict returns any user other than excludeID holding email or username, in one query.
// Empty values are ignored; excludeID 0 excludes nobody.
func (s *UserStore) FindConflict(ctx context.Context, excludeID uint, email, username string) (*domain.User, error) {
	if email == "" && username == "" {
		return nil, ErrNotFound
	}
	q := s.db.WithContext(ctx).Model(&domain.User{})
	switch {
	case email != "" && username != "":
		q = q.Where("email = ? OR username = ?", email, username)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		q = q.Where("username = ?", username)
	}
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var user domain.User
	if err := q.First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Update writes the given columns on one user. Callers check existence first;
// MySQL reports unchanged rows as unaffected.
func (s *UserStore) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields).Error
	return duplicate(err)
}

// SetResetToken stores the hashed reset token and its expiry
func (s *UserStore) SetResetToken(ctx context.Context, id uint, hashed string, expires time.Time) error {
	return s.Update(ctx, id, map[string]any{
		"reset_password_token":   hashed,
		"reset_password_expires": expires,
	})
}

// ClearResetToken nulls the token fields, but only while hashed is still the stored token
func (s *UserStore) ClearResetToken(ctx context.Context, id uint, hashed string) error {
	return s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND reset_password_token = ?", id, hashed).
		Updates(map[string]any{"reset_password_token": nil, "reset_password_expires": nil}).Error
}

// FindByResetToken loads the user holding hashed with an expiry after now
func (s *UserStore) FindByResetToken(ctx context.Context, hashed string, now time.Time) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_expires > ?", hashed, now).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ConsumeResetToken sets the new password hash and clears the token in one conditional update.
// It reports false when the token was already consumed or expired in the meantime.
func (s *UserStore) ConsumeResetToken(ctx context.Context, id uint, hashed, passwordHash string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND reset_password_token = ? AND reset_password_expires > ?", id, hashed, now).
		Updates(map[string]any{
			"password":               passwordHash,
			"reset_password_token":   nil,
			"reset_password_expires": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List returns one page of users ordered by id and the total count
func (s *UserStore) List(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	users := []domain.User{}
	if err := s.db.WithContext(ctx).Order("id asc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Delete removes a user
func (s *UserStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&domain.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
