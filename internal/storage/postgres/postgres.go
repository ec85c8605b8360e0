// Package postgres is implementation of storage interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/sharehub/internal/entities"
	"github.com/Decentr-net/sharehub/internal/storage"
)

var log = logrus.WithField("layer", "storage").WithField("package", "postgres")
var errBeginCalledWithinTx = errors.New("can not run InTx in tx")

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type pg struct {
	ext sqlx.ExtContext
}

type userDTO struct {
	ID            uint64    `db:"id"`
	Username      string    `db:"username"`
	PasswordHash  *string   `db:"password_hash"`
	WalletAddress *string   `db:"wallet_address"`
	Avatar        string    `db:"avatar"`
	Bio           string    `db:"bio"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type shareDTO struct {
	ID        uint64    `db:"id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	Image     *string   `db:"image"`
	ChainTxID *string   `db:"chain_tx_id"`
	UserID    uint64    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type calculatedShareDTO struct {
	shareDTO
	OwnerUsername  string    `db:"owner_username"`
	OwnerWallet    *string   `db:"owner_wallet_address"`
	OwnerAvatar    string    `db:"owner_avatar"`
	OwnerBio       string    `db:"owner_bio"`
	OwnerCreatedAt time.Time `db:"owner_created_at"`
	OwnerUpdatedAt time.Time `db:"owner_updated_at"`
	LikesCount     uint32    `db:"likes_count"`
	CommentsCount  uint32    `db:"comments_count"`
}

type commentDTO struct {
	ID        uint64    `db:"id"`
	Content   string    `db:"content"`
	UserID    uint64    `db:"user_id"`
	ShareID   uint64    `db:"share_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type calculatedCommentDTO struct {
	commentDTO
	AuthorUsername  string    `db:"author_username"`
	AuthorWallet    *string   `db:"author_wallet_address"`
	AuthorAvatar    string    `db:"author_avatar"`
	AuthorBio       string    `db:"author_bio"`
	AuthorCreatedAt time.Time `db:"author_created_at"`
	AuthorUpdatedAt time.Time `db:"author_updated_at"`
}

type likeDTO struct {
	ID        uint64    `db:"id"`
	UserID    uint64    `db:"user_id"`
	ShareID   uint64    `db:"share_id"`
	CreatedAt time.Time `db:"created_at"`
}

type notificationDTO struct {
	ID        uint64    `db:"id"`
	Type      string    `db:"type"`
	Content   string    `db:"content"`
	IsRead    bool      `db:"is_read"`
	UserID    uint64    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

const userColumns = `id, username, password_hash, wallet_address, avatar, bio, created_at, updated_at`

const calculatedShareQuery = `
	SELECT s.id, s.title, s.content, s.image, s.chain_tx_id, s.user_id, s.created_at, s.updated_at,
		u.username AS owner_username, u.wallet_address AS owner_wallet_address,
		u.avatar AS owner_avatar, u.bio AS owner_bio,
		u.created_at AS owner_created_at, u.updated_at AS owner_updated_at,
		(SELECT COUNT(*) FROM "like" l WHERE l.share_id = s.id) AS likes_count,
		(SELECT COUNT(*) FROM comment c WHERE c.share_id = s.id) AS comments_count
	FROM share s
	JOIN users u ON u.id = s.user_id
`

// New creates new instance of pg.
func New(db *sql.DB) storage.Storage {
	return pg{
		ext: sqlx.NewDb(db, "postgres"),
	}
}

func (s pg) InTx(ctx context.Context, f func(s storage.Storage) error) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return errBeginCalledWithinTx
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to create tx: %w", err)
	}

	if err := f(pg{ext: tx}); err != nil {
		if err := tx.Rollback(); err != nil {
			log.WithError(err).Error("failed to rollback tx")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	return nil
}

func (s pg) Ping(ctx context.Context) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return nil
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping: %w", err)
	}

	return nil
}

func (s pg) CreateUser(ctx context.Context, u *entities.User) error {
	if err := s.ext.QueryRowxContext(ctx, `
			INSERT INTO users(username, password_hash, wallet_address, avatar, bio)
			VALUES($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`, u.Username, u.PasswordHash, u.WalletAddress, u.Avatar, u.Bio,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isPqError(err, uniqueViolation) {
			return storage.ErrAlreadyExists
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) GetUserByID(ctx context.Context, id uint64) (*entities.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s pg) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s pg) GetUserByWallet(ctx context.Context, address string) (*entities.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE wallet_address = $1`, address)
}

func (s pg) getUser(ctx context.Context, query string, args ...interface{}) (*entities.User, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toUser(&u), nil
}

func (s pg) UpdateProfile(ctx context.Context, id uint64, p *storage.UpdateProfileParams) (*entities.User, error) {
	set := newSetClause()
	set.add("avatar", p.Avatar)
	set.add("bio", p.Bio)

	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`, set.String(), set.next(), userColumns),
		append(set.args, id)...,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to exec: %w", err)
	}

	return toUser(&u), nil
}

func (s pg) CreateShare(ctx context.Context, sh *entities.Share) error {
	if err := s.ext.QueryRowxContext(ctx, `
			INSERT INTO share(title, content, image, chain_tx_id, user_id)
			VALUES($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`, sh.Title, sh.Content, sh.Image, sh.ChainTxID, sh.UserID,
	).Scan(&sh.ID, &sh.CreatedAt, &sh.UpdatedAt); err != nil {
		if isPqError(err, foreignKeyViolation) {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) GetShare(ctx context.Context, id uint64) (*entities.CalculatedShare, error) {
	var sh calculatedShareDTO

	if err := sqlx.GetContext(ctx, s.ext, &sh, calculatedShareQuery+` WHERE s.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toCalculatedShare(&sh), nil
}

func (s pg) ListShares(ctx context.Context, p *storage.ListSharesParams) ([]*entities.CalculatedShare, uint64, error) {
	var (
		where []string
		args  []interface{}
	)

	if p.Owner != nil {
		args = append(args, *p.Owner)
		where = append(where, fmt.Sprintf("s.user_id = $%d", len(args)))
	}

	if p.Search != nil && *p.Search != "" {
		args = append(args, "%"+escapeLike(*p.Search)+"%")
		where = append(where, fmt.Sprintf("(s.title ILIKE $%d OR s.content ILIKE $%d)", len(args), len(args)))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total uint64
	if err := sqlx.GetContext(ctx, s.ext, &total, `SELECT COUNT(*) FROM share s`+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count: %w", err)
	}

	var order string
	switch p.SortBy {
	case storage.PopularSortType:
		order = "likes_count DESC, s.created_at DESC, s.id DESC"
	case storage.CommentsSortType:
		order = "comments_count DESC, s.created_at DESC, s.id DESC"
	default:
		order = "s.created_at DESC, s.id DESC"
	}

	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		calculatedShareQuery, cond, order, len(args)+1, len(args)+2)

	var dto []*calculatedShareDTO
	if err := sqlx.SelectContext(ctx, s.ext, &dto, query, append(args, p.Limit, p.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.CalculatedShare, len(dto))
	for i, v := range dto {
		out[i] = toCalculatedShare(v)
	}

	return out, total, nil
}

func (s pg) UpdateShare(ctx context.Context, id uint64, p *storage.UpdateShareParams) error {
	set := newSetClause()
	set.add("title", p.Title)
	set.add("content", p.Content)
	set.add("image", p.Image)

	res, err := s.ext.ExecContext(ctx,
		fmt.Sprintf(`UPDATE share SET %s WHERE id = $%d`, set.String(), set.next()),
		append(set.args, id)...,
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) DeleteShare(ctx context.Context, id uint64) error {
	if _, err := s.ext.ExecContext(ctx, `DELETE FROM comment WHERE share_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}

	if _, err := s.ext.ExecContext(ctx, `DELETE FROM "like" WHERE share_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete likes: %w", err)
	}

	res, err := s.ext.ExecContext(ctx, `DELETE FROM share WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) CreateComment(ctx context.Context, c *entities.Comment) error {
	if err := s.ext.QueryRowxContext(ctx, `
			INSERT INTO comment(content, user_id, share_id)
			VALUES($1, $2, $3)
			RETURNING id, created_at, updated_at
		`, c.Content, c.UserID, c.ShareID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if isPqError(err, foreignKeyViolation) {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) GetComment(ctx context.Context, id uint64) (*entities.Comment, error) {
	var c commentDTO

	if err := sqlx.GetContext(ctx, s.ext, &c, `
			SELECT id, content, user_id, share_id, created_at, updated_at FROM comment WHERE id = $1
		`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toComment(&c), nil
}

func (s pg) ListComments(ctx context.Context, shareID uint64) ([]*entities.CalculatedComment, error) {
	var dto []*calculatedCommentDTO

	if err := sqlx.SelectContext(ctx, s.ext, &dto, `
			SELECT c.id, c.content, c.user_id, c.share_id, c.created_at, c.updated_at,
				u.username AS author_username, u.wallet_address AS author_wallet_address,
				u.avatar AS author_avatar, u.bio AS author_bio,
				u.created_at AS author_created_at, u.updated_at AS author_updated_at
			FROM comment c
			JOIN users u ON u.id = c.user_id
			WHERE c.share_id = $1
			ORDER BY c.created_at DESC, c.id DESC
		`, shareID,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.CalculatedComment, len(dto))
	for i, v := range dto {
		out[i] = &entities.CalculatedComment{
			Comment: *toComment(&v.commentDTO),
			Author: entities.User{
				ID:            v.UserID,
				Username:      v.AuthorUsername,
				WalletAddress: v.AuthorWallet,
				Avatar:        v.AuthorAvatar,
				Bio:           v.AuthorBio,
				CreatedAt:     v.AuthorCreatedAt,
				UpdatedAt:     v.AuthorUpdatedAt,
			},
		}
	}

	return out, nil
}

func (s pg) DeleteComment(ctx context.Context, id uint64) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM comment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) CreateLike(ctx context.Context, userID, shareID uint64) (bool, error) {
	var id uint64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO "like"(user_id, share_id) VALUES($1, $2)
			ON CONFLICT(user_id, share_id) DO NOTHING
			RETURNING id
		`, userID, shareID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		if isPqError(err, foreignKeyViolation) {
			return false, storage.ErrNotFound
		}

		return false, fmt.Errorf("failed to exec: %w", err)
	}

	return true, nil
}

func (s pg) DeleteLike(ctx context.Context, userID, shareID uint64) error {
	if _, err := s.ext.ExecContext(ctx,
		`DELETE FROM "like" WHERE user_id = $1 AND share_id = $2`, userID, shareID,
	); err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) HasLike(ctx context.Context, userID, shareID uint64) (bool, error) {
	var exists bool

	if err := sqlx.GetContext(ctx, s.ext, &exists,
		`SELECT EXISTS(SELECT 1 FROM "like" WHERE user_id = $1 AND share_id = $2)`, userID, shareID,
	); err != nil {
		return false, fmt.Errorf("failed to query: %w", err)
	}

	return exists, nil
}

func (s pg) ListLikes(ctx context.Context, shareID uint64) ([]*entities.Like, error) {
	var dto []*likeDTO

	if err := sqlx.SelectContext(ctx, s.ext, &dto, `
			SELECT id, user_id, share_id, created_at FROM "like"
			WHERE share_id = $1
			ORDER BY created_at DESC, id DESC
		`, shareID,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Like, len(dto))
	for i, v := range dto {
		out[i] = &entities.Like{
			ID:        v.ID,
			UserID:    v.UserID,
			ShareID:   v.ShareID,
			CreatedAt: v.CreatedAt,
		}
	}

	return out, nil
}

func (s pg) CreateNotification(ctx context.Context, n *entities.Notification) error {
	if err := s.ext.QueryRowxContext(ctx, `
			INSERT INTO notification(type, content, user_id)
			VALUES($1, $2, $3)
			RETURNING id, is_read, created_at
		`, string(n.Type), n.Content, n.UserID,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt); err != nil {
		if isPqError(err, foreignKeyViolation) {
			return storage.ErrNotFound
		}

		return fmt.Errorf("failed to exec: %w", err)
	}

	return nil
}

func (s pg) ListNotifications(ctx context.Context, userID uint64) ([]*entities.Notification, error) {
	var dto []*notificationDTO

	if err := sqlx.SelectContext(ctx, s.ext, &dto, `
			SELECT id, type, content, is_read, user_id, created_at FROM notification
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
		`, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Notification, len(dto))
	for i, v := range dto {
		out[i] = &entities.Notification{
			ID:        v.ID,
			Type:      entities.NotificationType(v.Type),
			Content:   v.Content,
			IsRead:    v.IsRead,
			UserID:    v.UserID,
			CreatedAt: v.CreatedAt,
		}
	}

	return out, nil
}

func (s pg) MarkNotificationRead(ctx context.Context, userID, id uint64) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE notification SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) MarkAllNotificationsRead(ctx context.Context, userID uint64) (int64, error) {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE notification SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to exec: %w", err)
	}

	c, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return c, nil
}

// setClause builds "col = $n" pairs for partial updates; updated_at is always touched.
type setClause struct {
	cols []string
	args []interface{}
}

func newSetClause() *setClause {
	return &setClause{cols: []string{"updated_at = (NOW() AT TIME ZONE 'UTC')"}}
}

func (c *setClause) add(col string, v *string) {
	if v == nil {
		return
	}

	c.args = append(c.args, *v)
	c.cols = append(c.cols, fmt.Sprintf("%s = $%d", col, len(c.args)))
}

func (c *setClause) next() int {
	return len(c.args) + 1
}

func (c *setClause) String() string {
	return strings.Join(c.cols, ", ")
}

func isPqError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func toUser(u *userDTO) *entities.User {
	return &entities.User{
		ID:            u.ID,
		Username:      u.Username,
		PasswordHash:  u.PasswordHash,
		WalletAddress: u.WalletAddress,
		Avatar:        u.Avatar,
		Bio:           u.Bio,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func toShare(s *shareDTO) entities.Share {
	return entities.Share{
		ID:        s.ID,
		Title:     s.Title,
		Content:   s.Content,
		Image:     s.Image,
		ChainTxID: s.ChainTxID,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toCalculatedShare(s *calculatedShareDTO) *entities.CalculatedShare {
	return &entities.CalculatedShare{
		Share: toShare(&s.shareDTO),
		Owner: entities.User{
			ID:            s.UserID,
			Username:      s.OwnerUsername,
			WalletAddress: s.OwnerWallet,
			Avatar:        s.OwnerAvatar,
			Bio:           s.OwnerBio,
			CreatedAt:     s.OwnerCreatedAt,
			UpdatedAt:     s.OwnerUpdatedAt,
		},
		LikesCount:    s.LikesCount,
		CommentsCount: s.CommentsCount,
	}
}

func toComment(c *commentDTO) *entities.Comment {
	return &entities.Comment{
		ID:        c.ID,
		Content:   c.Content,
		UserID:    c.UserID,
		ShareID:   c.ShareID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
