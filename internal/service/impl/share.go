package impl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Decentr-net/sharehub/internal/entities"
	"github.com/Decentr-net/sharehub/internal/service"
	"github.com/Decentr-net/sharehub/internal/storage"
)

func (s *srv) CreateShare(ctx context.Context, userID uint64, p service.CreateShareParams) (*entities.CalculatedShare, error) {
	title := s.sanitize(p.Title)
	content := s.sanitize(p.Content)

	if title == "" || content == "" {
		return nil, fmt.Errorf("%w: title and content should not be empty", service.ErrValidation)
	}

	lctx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()

	digest, err := s.ledger.RecordShare(lctx, title, content)
	if err != nil {
		return nil, fmt.Errorf("failed to record share on ledger: %w", err)
	}

	sh := &entities.Share{
		Title:     title,
		Content:   content,
		Image:     nonEmpty(trimmed(p.Image)),
		ChainTxID: &digest,
		UserID:    userID,
	}

	if err := s.s.CreateShare(ctx, sh); err != nil {
		log.WithError(err).WithField("digest", digest).Error("share is recorded on ledger but not stored")
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: user", service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create share: %w", err)
	}

	out, err := s.s.GetShare(ctx, sh.ID)
	if err != nil {
		return nil, wrapGet(err, "share")
	}

	return out, nil
}

func (s *srv) ListShares(ctx context.Context, p service.ListSharesParams) (*service.SharesPage, error) {
	page, limit := p.Page, p.Limit
	if page < 1 {
		page = service.DefaultPage
	}
	switch {
	case limit < 1:
		limit = service.DefaultLimit
	case limit > service.MaxLimit:
		limit = service.MaxLimit
	}

	if uint64(page-1) > math.MaxInt64/uint64(limit) {
		return nil, fmt.Errorf("%w: page is too large", service.ErrValidation)
	}

	sortBy := storage.SortType(p.SortBy)
	switch sortBy {
	case "":
		sortBy = storage.LatestSortType
	case storage.LatestSortType, storage.PopularSortType, storage.CommentsSortType:
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", service.ErrValidation, p.SortBy)
	}

	var search *string
	if p.Search != nil {
		if v := strings.TrimSpace(*p.Search); v != "" {
			search = &v
		}
	}

	items, total, err := s.s.ListShares(ctx, &storage.ListSharesParams{
		SortBy: sortBy,
		Owner:  p.UserID,
		Search: search,
		Limit:  uint16(limit),
		Offset: uint64(page-1) * uint64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}

	return &service.SharesPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + uint64(limit) - 1) / uint64(limit)),
	}, nil
}

func (s *srv) GetShare(ctx context.Context, id uint64) (*entities.ShareDetails, error) {
	sh, err := s.s.GetShare(ctx, id)
	if err != nil {
		return nil, wrapGet(err, "share")
	}

	comments, err := s.s.ListComments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	likes, err := s.s.ListLikes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}

	return &entities.ShareDetails{
		CalculatedShare: *sh,
		Comments:        comments,
		Likes:           likes,
	}, nil
}

func (s *srv) UpdateShare(ctx context.Context, userID, id uint64, p service.UpdateShareParams) (*entities.CalculatedShare, error) {
	var upd storage.UpdateShareParams

	if p.Title != nil {
		title := s.sanitize(*p.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title should not be empty", service.ErrValidation)
		}
		upd.Title = &title
	}

	if p.Content != nil {
		content := s.sanitize(*p.Content)
		if content == "" {
			return nil, fmt.Errorf("%w: content should not be empty", service.ErrValidation)
		}
		upd.Content = &content
	}

	upd.Image = trimmed(p.Image)

	if err := s.checkShareOwner(ctx, userID, id); err != nil {
		return nil, err
	}

	if err := s.s.UpdateShare(ctx, id, &upd); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: share", service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update share: %w", err)
	}

	out, err := s.s.GetShare(ctx, id)
	if err != nil {
		return nil, wrapGet(err, "share")
	}

	return out, nil
}

func (s *srv) DeleteShare(ctx context.Context, userID, id uint64) error {
	if err := s.checkShareOwner(ctx, userID, id); err != nil {
		return err
	}

	if err := s.s.InTx(ctx, func(s storage.Storage) error {
		return s.DeleteShare(ctx, id)
	}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: share", service.ErrNotFound)
		}
		return fmt.Errorf("failed to delete share: %w", err)
	}

	return nil
}

func (s *srv) checkShareOwner(ctx context.Context, userID, id uint64) error {
	sh, err := s.s.GetShare(ctx, id)
	if err != nil {
		return wrapGet(err, "share")
	}

	if sh.UserID != userID {
		return fmt.Errorf("%w: share belongs to another user", service.ErrForbidden)
	}

	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func nonEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
