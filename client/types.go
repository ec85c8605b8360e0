package client

import (
	"time"
)

// User ...
type User struct {
	ID            uint64    `json:"id"`
	Username      string    `json:"username"`
	WalletAddress *string   `json:"walletAddress,omitempty"`
	Avatar        string    `json:"avatar"`
	Bio           string    `json:"bio"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Share ...
type Share struct {
	ID            uint64    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Image         *string   `json:"image,omitempty"`
	ChainTxID     *string   `json:"chainTxId,omitempty"`
	UserID        uint64    `json:"userId"`
	User          User      `json:"user"`
	LikesCount    uint32    `json:"likesCount"`
	CommentsCount uint32    `json:"commentsCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ShareDetails ...
type ShareDetails struct {
	Share
	Comments []Comment `json:"comments"`
	Likes    []Like    `json:"likes"`
}

// SharesPage ...
type SharesPage struct {
	Items      []Share `json:"items"`
	Total      uint64  `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

// Comment ...
type Comment struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	ShareID   uint64    `json:"shareId"`
	UserID    uint64    `json:"userId"`
	Author    User      `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Like ...
type Like struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"userId"`
	ShareID   uint64    `json:"shareId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification ...
type Notification struct {
	ID        uint64    `json:"id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListSharesParams ...
type ListSharesParams struct {
	Page   int
	Limit  int
	Sort   string
	UserID uint64
	Search string
}

// ShareInput is a body of create and update requests, nil fields are untouched on update.
type ShareInput struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Image   *string `json:"image,omitempty"`
}

// ProfileInput ...
type ProfileInput struct {
	Avatar *string `json:"avatar,omitempty"`
	Bio    *string `json:"bio,omitempty"`
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type likedResponse struct {
	Liked bool `json:"liked"`
}

type markAllResponse struct {
	Updated int64 `json:"updated"`
}
