package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"securegate/internal/domain"
	"securegate/internal/mailer"
	"securegate/internal/metrics"
	"securegate/internal/store"
	"securegate/internal/utils"

	"github.com/sirupsen/logrus"
)

// ResetRequestedMessage is returned for every forgot-password request, whether or not the account exists
const ResetRequestedMessage = "If an account exists with this email, a reset link has been sent."

// UserStore is the account persistence the services depend on
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindConflict(ctx context.Context, excludeID uint, email, username string) (*domain.User, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	SetResetToken(ctx context.Context, id uint, hashed string, expires time.Time) error
	ClearResetToken(ctx context.Context, id uint, hashed string) error
	FindByResetToken(ctx context.Context, hashed string, now time.Time) (*domain.User, error)
	ConsumeResetToken(ctx context.Context, id uint, hashed, passwordHash string, now time.Time) (bool, error)
	List(ctx context.Context, offset, limit int) ([]domain.User, int64, error)
	Delete(ctx context.Context, id uint) error
}

// Sessions issues and revokes session credentials
type Sessions interface {
	Issue(userID uint, role domain.Role) (string, *utils.Claims, error)
	Revoke(ctx context.Context, claims *utils.Claims) error
	RevokeUser(ctx context.Context, userID uint) error
}

// Limiter throttles repeated actions for one subject
type Limiter interface {
	Allow(ctx context.Context, subject string) (bool, error)
}

// RegisterInput is the registration payload
type RegisterInput struct {
	FirstName string `json:"firstName" validate:"required,min=1,max=10"`
	LastName  string `json:"lastName" validate:"required,min=1,max=10"`
	Address   string `json:"address" validate:"required,min=1,max=29"`
	Contact   string `json:"contact" validate:"required,digits,min=7,max=20"`
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=1,max=15"`
	Password  string `json:"password" validate:"required,password" trim:"false"`
}

// ChangePasswordInput is the change-password payload
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" trim:"false"`
	NewPassword     string `json:"newPassword" trim:"false"`
	ConfirmPassword string `json:"confirmPassword" trim:"false"`
}

// AuthService covers registration, login, logout and the password lifecycle
type AuthService struct {
	users     UserStore
	sessions  Sessions
	mail      mailer.Sender
	limiter   Limiter
	clientURL string
	now       func() time.Time
}

// NewAuthService wires the account flows. limiter may be nil.
func NewAuthService(users UserStore, sessions Sessions, mail mailer.Sender, limiter Limiter, clientURL string) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		mail:      mail,
		limiter:   limiter,
		clientURL: strings.TrimRight(clientURL, "/"),
		now:       time.Now,
	}
}

// dummyHash is compared against when the username is unknown so both failure paths cost one bcrypt check
var dummyHash = sync.OnceValue(func() string {
	h, _ := utils.HashPassword("not-a-real-password-1!")
	return h
})

// Register validates the profile and creates a member account
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	trim(&in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if _, err := s.users.FindConflict(ctx, 0, in.Email, in.Username); err == nil {
		return nil, domain.NewConflict("Email or Username already exists.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Address:   in.Address,
		Contact:   in.Contact,
		Email:     in.Email,
		Username:  in.Username,
		Password:  hash,
		Role:      domain.RoleMember,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.NewConflict("Email or Username already exists.") // Lost a race with another registration
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{"userID": user.ID, "username": user.Username}).Info("user registered")
	return user, nil
}

// Login checks the credentials and issues a session token
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", domain.NewValidation("Username and password are required")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		utils.CheckPassword(dummyHash(), password)
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		logrus.WithField("username", username).Info("login failed")
		return nil, "", domain.ErrInvalidCredentials
	}
	if !utils.CheckPassword(user.Password, password) {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		logrus.WithField("username", username).Info("login failed")
		return nil, "", domain.ErrInvalidCredentials
	}

	token, _, err := s.sessions.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issue session: %w", err)
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	logrus.WithField("userID", user.ID).Info("user logged in")
	return user, token, nil
}

// Logout revokes the presented credential
func (s *AuthService) Logout(ctx context.Context, claims *utils.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RequestReset emails a single-use reset link when the address belongs to an account.
// The caller always answers with ResetRequestedMessage unless a MailDeliveryError is returned.
func (s *AuthService) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.NewValidation("Email is required")
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, strings.ToLower(email))
		if err != nil {
			logrus.WithError(err).Warn("forgot-password rate limiter unavailable")
		} else if !allowed {
			metrics.PasswordResetsTotal.WithLabelValues("limited").Inc()
			logrus.WithField("email", email).Info("password reset throttled")
			return nil
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	raw, hashed, err := utils.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, hashed, s.now().Add(utils.ResetTokenTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := s.clientURL + "/reset-password?token=" + url.QueryEscape(raw)
	if err := s.mail.Send(ctx, user.Email, mailer.ResetPasswordSubject, mailer.ResetPasswordHTML(resetURL)); err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("mail_failed").Inc()
		logrus.WithError(err).WithField("userID", user.ID).Error("reset email failed")
		if cerr := s.users.ClearResetToken(context.WithoutCancel(ctx), user.ID, hashed); cerr != nil {
			logrus.WithError(cerr).WithField("userID", user.ID).Error("failed to roll back reset token")
		}
		return domain.NewMailDelivery("Email could not be sent")
	}

	metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	logrus.WithField("userID", user.ID).Info("password reset requested")
	return nil
}

// ResetPassword consumes a reset token and sets a new password. Sessions issued before the reset stop verifying.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, password string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" || password == "" {
		return domain.NewValidation("Token and password are required")
	}
	if !utils.IsValidPassword(password) {
		return domain.NewValidation(utils.PasswordRule)
	}

	hashed := utils.HashResetToken(rawToken)
	now := s.now()
	user, err := s.users.FindByResetToken(ctx, hashed, now)
	if errors.Is(err, store.ErrNotFound) {
		metrics.PasswordResetsTotal.WithLabelValues("rejected").Inc()
		return domain.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ok, err := s.users.ConsumeResetToken(ctx, user.ID, hashed, hash, now)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if !ok {
		metrics.PasswordResetsTotal.WithLabelValues("rejected").Inc()
		return domain.ErrInvalidOrExpiredToken // Consumed by a concurrent request
	}

	if err := s.sessions.RevokeUser(ctx, user.ID); err != nil {
		logrus.WithError(err).WithField("userID", user.ID).Warn("failed to revoke sessions after reset")
	}
	metrics.PasswordResetsTotal.WithLabelValues("consumed").Inc()
	logrus.WithField("userID", user.ID).Info("password reset completed")
	return nil
}

// ChangePassword replaces the password of a signed-in user and revokes their sessions
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, in ChangePasswordInput) error {
	if in.CurrentPassword == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		return domain.NewValidation("All fields are required.")
	}
	if !utils.IsValidPassword(in.NewPassword) {
		return domain.NewValidation(utils.PasswordRule)
	}
	if in.NewPassword != in.ConfirmPassword {
		return domain.NewValidation("New password and confirm password do not match.")
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewNotFound("User not found.")
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if !utils.CheckPassword(user.Password, in.CurrentPassword) {
		return domain.NewUnauthorized("Incorrect current password.")
	}
	if in.NewPassword == in.CurrentPassword {
		return domain.NewValidation("New password must be different from the current password.")
	}

	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.Update(ctx, userID, map[string]any{"password": hash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		logrus.WithError(err).WithField("userID", userID).Warn("failed to revoke sessions after password change")
	}
	logrus.WithField("userID", userID).Info("password changed")
	return nil
}
