// Package storage contains a storage interface.
package storage

import (
	"context"
	"fmt"

	"github.com/Decentr-net/sharehub/internal/entities"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=storage.go

// ErrNotFound ...
var ErrNotFound = fmt.Errorf("not found")

// ErrAlreadyExists is returned when unique constraint is violated.
var ErrAlreadyExists = fmt.Errorf("already exists")

// Storage provides methods for interacting with database.
type Storage interface {
	InTx(ctx context.Context, f func(s Storage) error) error
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *entities.User) error
	GetUserByID(ctx context.Context, id uint64) (*entities.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
	GetUserByWallet(ctx context.Context, address string) (*entities.User, error)
	UpdateProfile(ctx context.Context, id uint64, p *UpdateProfileParams) (*entities.User, error)

	CreateShare(ctx context.Context, s *entities.Share) error
	GetShare(ctx context.Context, id uint64) (*entities.CalculatedShare, error)
	ListShares(ctx context.Context, p *ListSharesParams) ([]*entities.CalculatedShare, uint64, error)
	UpdateShare(ctx context.Context, id uint64, p *UpdateShareParams) error
	DeleteShare(ctx context.Context, id uint64) error

	CreateComment(ctx context.Context, c *entities.Comment) error
	GetComment(ctx context.Context, id uint64) (*entities.Comment, error)
	ListComments(ctx context.Context, shareID uint64) ([]*entities.CalculatedComment, error)
	DeleteComment(ctx context.Context, id uint64) error

	CreateLike(ctx context.Context, userID, shareID uint64) (bool, error)
	DeleteLike(ctx context.Context, userID, shareID uint64) error
	HasLike(ctx context.Context, userID, shareID uint64) (bool, error)
	ListLikes(ctx context.Context, shareID uint64) ([]*entities.Like, error)

	CreateNotification(ctx context.Context, n *entities.Notification) error
	ListNotifications(ctx context.Context, userID uint64) ([]*entities.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uint64) error
	MarkAllNotificationsRead(ctx context.Context, userID uint64) (int64, error)
}

// SortType ...
type SortType string

const (
	// LatestSortType sorts shares by creation time.
	LatestSortType SortType = "latest"
	// PopularSortType sorts shares by likes count.
	PopularSortType SortType = "popular"
	// CommentsSortType sorts shares by comments count.
	CommentsSortType SortType = "comments"
)

// ListSharesParams ...
type ListSharesParams struct {
	SortBy SortType
	Owner  *uint64
	Search *string
	Limit  uint16
	Offset uint64
}

// UpdateShareParams contains fields to be updated, nil means untouched.
type UpdateShareParams struct {
	Title   *string
	Content *string
	Image   *string
}

// UpdateProfileParams contains fields to be updated, nil means untouched.
type UpdateProfileParams struct {
	Avatar *string
	Bio    *string
}
