package server

import (
	"time"

	"github.com/Decentr-net/sharehub/internal/entities"
	"github.com/Decentr-net/sharehub/internal/service"
)

// CredentialsRequest ...
// swagger:model
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SuiLoginRequest ...
// swagger:model
type SuiLoginRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// UpdateProfileRequest ...
// swagger:model
type UpdateProfileRequest struct {
	Avatar *string `json:"avatar"`
	Bio    *string `json:"bio"`
}

// CreateShareRequest ...
// swagger:model
type CreateShareRequest struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Image   *string `json:"image"`
}

// UpdateShareRequest ...
// swagger:model
type UpdateShareRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Image   *string `json:"image"`
}

// CreateCommentRequest ...
// swagger:model
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// AuthResponse ...
// swagger:model
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// User is a public view of user, password hash is never exposed.
// swagger:model
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
// swagger:model
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
// swagger:model
type ShareDetails struct {
	Share
	Comments []Comment `json:"comments"`
	Likes    []Like    `json:"likes"`
}

// ListSharesResponse ...
// swagger:model
type ListSharesResponse struct {
	Items      []Share `json:"items"`
	Total      uint64  `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

// Comment ...
// swagger:model
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
// swagger:model
type Like struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"userId"`
	ShareID   uint64    `json:"shareId"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikedResponse ...
// swagger:model
type LikedResponse struct {
	Liked bool `json:"liked"`
}

// Notification ...
// swagger:model
type Notification struct {
	ID        uint64                    `json:"id"`
	Type      entities.NotificationType `json:"type"`
	Content   string                    `json:"content"`
	IsRead    bool                      `json:"isRead"`
	CreatedAt time.Time                 `json:"createdAt"`
}

// MarkAllReadResponse ...
// swagger:model
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

func newAuthResponse(s *service.Session) AuthResponse {
	return AuthResponse{
		Token: s.Token,
		User:  newUser(s.User),
	}
}

func newUser(u *entities.User) User {
	return User{
		ID:            u.ID,
		Username:      u.Username,
		WalletAddress: u.WalletAddress,
		Avatar:        u.Avatar,
		Bio:           u.Bio,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func newShare(s *entities.CalculatedShare) Share {
	return Share{
		ID:            s.ID,
		Title:         s.Title,
		Content:       s.Content,
		Image:         s.Image,
		ChainTxID:     s.ChainTxID,
		UserID:        s.UserID,
		User:          newUser(&s.Owner),
		LikesCount:    s.LikesCount,
		CommentsCount: s.CommentsCount,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func newShareDetails(d *entities.ShareDetails) ShareDetails {
	out := ShareDetails{
		Share:    newShare(&d.CalculatedShare),
		Comments: make([]Comment, len(d.Comments)),
		Likes:    make([]Like, len(d.Likes)),
	}

	for i, v := range d.Comments {
		out.Comments[i] = newComment(v)
	}
	for i, v := range d.Likes {
		out.Likes[i] = Like{
			ID:        v.ID,
			UserID:    v.UserID,
			ShareID:   v.ShareID,
			CreatedAt: v.CreatedAt,
		}
	}

	return out
}

func newListSharesResponse(p *service.SharesPage) ListSharesResponse {
	out := ListSharesResponse{
		Items:      make([]Share, len(p.Items)),
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	}

	for i, v := range p.Items {
		out.Items[i] = newShare(v)
	}

	return out
}

func newComment(c *entities.CalculatedComment) Comment {
	return Comment{
		ID:        c.ID,
		Content:   c.Content,
		ShareID:   c.ShareID,
		UserID:    c.UserID,
		Author:    newUser(&c.Author),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func newComments(list []*entities.CalculatedComment) []Comment {
	out := make([]Comment, len(list))
	for i, v := range list {
		out[i] = newComment(v)
	}
	return out
}

func newNotifications(list []*entities.Notification) []Notification {
	out := make([]Notification, len(list))
	for i, v := range list {
		out[i] = Notification{
			ID:        v.ID,
			Type:      v.Type,
			Content:   v.Content,
			IsRead:    v.IsRead,
			CreatedAt: v.CreatedAt,
		}
	}
	return out
}
