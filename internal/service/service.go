// Package service contains interface for service business-logic.
package service

import (
	"context"
	"errors"

	"github.com/Decentr-net/sharehub/internal/entities"
)

//go:generate mockgen -destination=./mock/service.go -package=mock -source=service.go

var (
	// ErrValidation is returned when input is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound ...
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when user tries to modify somebody else's entity.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials ...
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidSignature ...
	ErrInvalidSignature = errors.New("invalid wallet signature")
	// ErrUsernameTaken ...
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrUnauthorized is returned when token is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
)

const (
	// DefaultPage ...
	DefaultPage = 1
	// DefaultLimit ...
	DefaultLimit = 10
	// MaxLimit ...
	MaxLimit = 100
)

// Service ...
type Service interface {
	Register(ctx context.Context, username, password string) (*Session, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	WalletLogin(ctx context.Context, address, message, signature string) (*Session, error)
	Authenticate(ctx context.Context, token string) (*Identity, error)
	GetProfile(ctx context.Context, userID uint64) (*entities.User, error)
	UpdateProfile(ctx context.Context, userID uint64, p UpdateProfileParams) (*entities.User, error)

	CreateShare(ctx context.Context, userID uint64, p CreateShareParams) (*entities.CalculatedShare, error)
	ListShares(ctx context.Context, p ListSharesParams) (*SharesPage, error)
	GetShare(ctx context.Context, id uint64) (*entities.ShareDetails, error)
	UpdateShare(ctx context.Context, userID, id uint64, p UpdateShareParams) (*entities.CalculatedShare, error)
	DeleteShare(ctx context.Context, userID, id uint64) error

	CreateComment(ctx context.Context, userID, shareID uint64, content string) (*entities.CalculatedComment, error)
	ListComments(ctx context.Context, shareID uint64) ([]*entities.CalculatedComment, error)
	DeleteComment(ctx context.Context, userID, id uint64) error

	Like(ctx context.Context, userID, shareID uint64) error
	Unlike(ctx context.Context, userID, shareID uint64) error
	IsLiked(ctx context.Context, userID, shareID uint64) (bool, error)

	CreateNotification(ctx context.Context, userID uint64, t entities.NotificationType, content string) (*entities.Notification, error)
	ListNotifications(ctx context.Context, userID uint64) ([]*entities.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uint64) error
	MarkAllNotificationsRead(ctx context.Context, userID uint64) (int64, error)
}

// Session is a result of successful authentication.
type Session struct {
	Token string
	User  *entities.User
}

// Identity is an authenticated token owner.
type Identity struct {
	UserID   uint64
	Username string
}

// UpdateProfileParams contains fields to be updated, nil means untouched.
type UpdateProfileParams struct {
	Avatar *string
	Bio    *string
}

// CreateShareParams ...
type CreateShareParams struct {
	Title   string
	Content string
	Image   *string
}

// UpdateShareParams contains fields to be updated, nil means untouched.
type UpdateShareParams struct {
	Title   *string
	Content *string
	Image   *string
}

// ListSharesParams ...
type ListSharesParams struct {
	Page   int
	Limit  int
	SortBy string
	UserID *uint64
	Search *string
}

// SharesPage ...
type SharesPage struct {
	Items      []*entities.CalculatedShare
	Total      uint64
	Page       int
	Limit      int
	TotalPages int
}
