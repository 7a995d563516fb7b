package api

import (
	"context"                     // Request contexts
	"mime/multipart"              // Uploaded files
	"securegate/internal/domain"  // Models
	"securegate/internal/service" // Inputs and results
	"securegate/internal/utils"   // Session claims
)

// AuthService is the account flow surface used by the auth handlers
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.User, string, error)
	Logout(ctx context.Context, claims *utils.Claims) error
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, password string) error
	ChangePassword(ctx context.Context, userID uint, in service.ChangePasswordInput) error
}

// UserService is the profile and account management surface
type UserService interface {
	GetProfile(ctx context.Context, userID uint) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uint, in service.ProfileInput) (*domain.User, error)
	UpdateUser(ctx context.Context, userID uint, in service.AdminUserInput) (*domain.User, error)
	ListUsers(ctx context.Context, page, limit int) ([]domain.User, service.Page, error)
	DeleteUser(ctx context.Context, userID uint) error
	ReplaceImage(ctx context.Context, userID uint, fh *multipart.FileHeader) (*service.ImageReplacement, error)
}

// PostService is the content surface
type PostService interface {
	CreatePost(ctx context.Context, in service.CreatePostInput, files []service.FileUpload) (*domain.Post, error)
	UpdatePost(ctx context.Context, id uint, in service.UpdatePostInput) (*domain.Post, error)
	DeletePost(ctx context.Context, id uint) error
	ListPosts(ctx context.Context) ([]domain.Post, bool, error)
	GetPost(ctx context.Context, id uint) (*domain.Post, bool, error)
}

// TransactionService is the ledger surface
type TransactionService interface {
	Create(ctx context.Context, in service.TransactionInput) (*domain.Transaction, error)
	List(ctx context.Context, page, limit int) ([]domain.Transaction, service.Page, error)
	Update(ctx context.Context, id uint, in service.TransactionPatch) (*domain.Transaction, error)
	Delete(ctx context.Context, id uint) error
}
