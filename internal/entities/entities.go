// Package entities contains main entities of service.
package entities

import (
	"time"
)

// User ...
type User struct {
	ID            uint64
	Username      string
	PasswordHash  *string
	WalletAddress *string
	Avatar        string
	Bio           string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPassword returns true if user can log in by password.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Share is a post published by user and recorded on the ledger.
type Share struct {
	ID        uint64
	Title     string
	Content   string
	Image     *string
	ChainTxID *string
	UserID    uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CalculatedShare is a share with its owner and derived counters.
type CalculatedShare struct {
	Share
	Owner         User
	LikesCount    uint32
	CommentsCount uint32
}

// ShareDetails is a share with all its relations.
type ShareDetails struct {
	CalculatedShare
	Comments []*CalculatedComment
	Likes    []*Like
}

// Comment ...
type Comment struct {
	ID        uint64
	Content   string
	UserID    uint64
	ShareID   uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CalculatedComment is a comment with its author.
type CalculatedComment struct {
	Comment
	Author User
}

// Like ...
type Like struct {
	ID        uint64
	UserID    uint64
	ShareID   uint64
	CreatedAt time.Time
}

// NotificationType ...
type NotificationType string

const (
	// LikeNotification is sent to share owner when somebody likes the share.
	LikeNotification NotificationType = "like"
	// CommentNotification is sent to share owner when somebody comments the share.
	CommentNotification NotificationType = "comment"
	// SystemNotification ...
	SystemNotification NotificationType = "system"
)

// IsValid ...
func (t NotificationType) IsValid() bool {
	switch t {
	case LikeNotification, CommentNotification, SystemNotification:
		return true
	default:
		return false
	}
}

// Notification ...
type Notification struct {
	ID        uint64
	Type      NotificationType
	Content   string
	IsRead    bool
	UserID    uint64
	CreatedAt time.Time
}
