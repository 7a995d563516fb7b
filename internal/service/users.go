package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"securegate/internal/domain"
	"securegate/internal/store"
	"securegate/internal/utils"

	"github.com/sirupsen/logrus"
)

// ProfileInput is a partial profile update. Nil fields are left unchanged.
type ProfileInput struct {
	FirstName *string `json:"firstName" validate:"omitnil,min=1,max=10"`
	LastName  *string `json:"lastName" validate:"omitnil,min=1,max=10"`
	Address   *string `json:"address" validate:"omitnil,min=1,max=29"`
	Contact   *string `json:"contact" validate:"omitnil,digits,min=7,max=20"`
	Email     *string `json:"email" validate:"omitnil,email"`
	Username  *string `json:"username" validate:"omitnil,min=1,max=15"`
}

// AdminUserInput is what an admin may change on any account
type AdminUserInput struct {
	ProfileInput
	Role *domain.Role `json:"role" validate:"omitnil,oneof=1 2 3"`
}

// Page is one page of a listing
type Page struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func newPage(total int64, page, limit int) Page {
	return Page{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}
}

// normalizePage clamps page and limit and returns the row offset
func normalizePage(page, limit, maxLimit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, (page - 1) * limit
}

// ImageReplacement is the outcome of a profile image swap.
// CleanupErr reports a failure to delete the previous file; the new path is committed regardless.
type ImageReplacement struct {
	Path       string
	OldPath    string
	CleanupErr error
}

// SessionRevoker ends every session a user holds
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID uint) error
}

// UserService covers profile reads and writes and admin account management
type UserService struct {
	users    UserStore
	files    utils.FileStore
	sessions SessionRevoker
}

// NewUserService creates the profile/admin service
func NewUserService(users UserStore, files utils.FileStore, sessions SessionRevoker) *UserService {
	return &UserService{users: users, files: files, sessions: sessions}
}

// GetProfile returns the user without credentials
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFound("User not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a partial update to the caller's own profile
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*domain.User, error) {
	trim(&in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	_, updated, err := s.apply(ctx, userID, profileFields(in))
	return updated, err
}

// UpdateUser applies an admin update, which may also change the role.
// A role change ends the user's sessions so the old role claim stops verifying.
func (s *UserService) UpdateUser(ctx context.Context, userID uint, in AdminUserInput) (*domain.User, error) {
	trim(&in.ProfileInput)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	fields := profileFields(in.ProfileInput)
	if in.Role != nil {
		fields["role"] = *in.Role
	}
	before, updated, err := s.apply(ctx, userID, fields)
	if err != nil {
		return nil, err
	}
	if before.Role != updated.Role {
		s.revoke(ctx, userID, "role changed")
	}
	return updated, nil
}

func (s *UserService) revoke(ctx context.Context, userID uint, reason string) {
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"userID": userID, "reason": reason}).Warn("failed to revoke sessions")
	}
}

func profileFields(in ProfileInput) map[string]any {
	fields := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = *v
		}
	}
	set("first_name", in.FirstName)
	set("last_name", in.LastName)
	set("address", in.Address)
	set("contact", in.Contact)
	set("email", in.Email)
	set("username", in.Username)
	return fields
}

// apply returns the user as it was before the update and as it is after
func (s *UserService) apply(ctx context.Context, userID uint, fields map[string]any) (*domain.User, *domain.User, error) {
	before, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	email, _ := fields["email"].(string)
	username, _ := fields["username"].(string)
	if _, err := s.users.FindConflict(ctx, userID, email, username); err == nil {
		return nil, nil, domain.NewConflict("Email or Username already exists.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("check existing user: %w", err)
	}

	if err := s.users.Update(ctx, userID, fields); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, nil, domain.NewConflict("Email or Username already exists.")
		}
		return nil, nil, fmt.Errorf("update user: %w", err)
	}
	after, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// ListUsers returns one page of accounts ordered by id
func (s *UserService) ListUsers(ctx context.Context, page, limit int) ([]domain.User, Page, error) {
	page, limit, offset := normalizePage(page, limit, 100)
	users, total, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, Page{}, fmt.Errorf("list users: %w", err)
	}
	return users, newPage(total, page, limit), nil
}

// DeleteUser removes an account and ends its sessions. Its profile image is removed best-effort.
func (s *UserService) DeleteUser(ctx context.Context, userID uint) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewNotFound("User not found.")
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.revoke(ctx, userID, "account deleted")
	if user.Image != nil && *user.Image != "" {
		if err := s.files.Remove(*user.Image); err != nil {
			logrus.WithError(err).WithField("path", *user.Image).Warn("failed to remove profile image of deleted user")
		}
	}
	logrus.WithField("userID", userID).Info("user deleted")
	return nil
}

// ReplaceImage stores a new profile image, commits its path and then removes the previous file.
// A failed removal is reported in the result and never fails the update.
func (s *UserService) ReplaceImage(ctx context.Context, userID uint, fh *multipart.FileHeader) (*ImageReplacement, error) {
	if fh == nil {
		return nil, domain.NewValidation("No image file provided.")
	}
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	path, err := s.files.Save("image", fh)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidImageType) || errors.Is(err, utils.ErrImageTooLarge) {
			return nil, domain.NewValidation(err.Error())
		}
		return nil, fmt.Errorf("save image: %w", err)
	}

	if err := s.users.Update(ctx, userID, map[string]any{"image": path}); err != nil {
		if rerr := s.files.Remove(path); rerr != nil {
			logrus.WithError(rerr).WithField("path", path).Warn("failed to remove unused upload")
		}
		return nil, fmt.Errorf("update image: %w", err)
	}

	res := &ImageReplacement{Path: path}
	if user.Image != nil && *user.Image != "" && *user.Image != path {
		res.OldPath = *user.Image
		res.CleanupErr = s.files.Remove(*user.Image)
	}
	return res, nil
}
