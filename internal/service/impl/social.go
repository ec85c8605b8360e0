package impl

import (
	"context"
	"errors"
	"fmt"

	"github.com/Decentr-net/sharehub/internal/entities"
	"github.com/Decentr-net/sharehub/internal/service"
	"github.com/Decentr-net/sharehub/internal/storage"
)

func (s *srv) CreateComment(ctx context.Context, userID, shareID uint64, content string) (*entities.CalculatedComment, error) {
	content = s.sanitize(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content should not be empty", service.ErrValidation)
	}

	sh, err := s.s.GetShare(ctx, shareID)
	if err != nil {
		return nil, wrapGet(err, "share")
	}

	author, err := s.s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, wrapGet(err, "user")
	}

	c := &entities.Comment{
		Content: content,
		UserID:  userID,
		ShareID: shareID,
	}

	if err := s.s.CreateComment(ctx, c); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: share", service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if sh.UserID != userID {
		s.notify(ctx, sh.UserID, entities.CommentNotification,
			fmt.Sprintf("%s commented on your share %q", author.Username, sh.Title))
	}

	return &entities.CalculatedComment{
		Comment: *c,
		Author:  *publicUser(author),
	}, nil
}

func (s *srv) ListComments(ctx context.Context, shareID uint64) ([]*entities.CalculatedComment, error) {
	if _, err := s.s.GetShare(ctx, shareID); err != nil {
		return nil, wrapGet(err, "share")
	}

	list, err := s.s.ListComments(ctx, shareID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return list, nil
}

func (s *srv) DeleteComment(ctx context.Context, userID, id uint64) error {
	c, err := s.s.GetComment(ctx, id)
	if err != nil {
		return wrapGet(err, "comment")
	}

	if c.UserID != userID {
		return fmt.Errorf("%w: comment belongs to another user", service.ErrForbidden)
	}

	if err := s.s.DeleteComment(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: comment", service.ErrNotFound)
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return nil
}

func (s *srv) Like(ctx context.Context, userID, shareID uint64) error {
	sh, err := s.s.GetShare(ctx, shareID)
	if err != nil {
		return wrapGet(err, "share")
	}

	created, err := s.s.CreateLike(ctx, userID, shareID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: share", service.ErrNotFound)
		}
		return fmt.Errorf("failed to create like: %w", err)
	}

	if created && sh.UserID != userID {
		liker, err := s.s.GetUserByID(ctx, userID)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Error("failed to get liker")
			return nil
		}

		s.notify(ctx, sh.UserID, entities.LikeNotification,
			fmt.Sprintf("%s liked your share %q", liker.Username, sh.Title))
	}

	return nil
}

func (s *srv) Unlike(ctx context.Context, userID, shareID uint64) error {
	if err := s.s.DeleteLike(ctx, userID, shareID); err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}

	return nil
}

func (s *srv) IsLiked(ctx context.Context, userID, shareID uint64) (bool, error) {
	ok, err := s.s.HasLike(ctx, userID, shareID)
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}

	return ok, nil
}

func (s *srv) CreateNotification(ctx context.Context, userID uint64, t entities.NotificationType, content string) (*entities.Notification, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: unknown notification type %q", service.ErrValidation, t)
	}

	n := &entities.Notification{
		Type:    t,
		Content: content,
		UserID:  userID,
	}

	if err := s.s.CreateNotification(ctx, n); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: user", service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return n, nil
}

// notify creates notification and logs failure since it must not break the triggering action.
func (s *srv) notify(ctx context.Context, userID uint64, t entities.NotificationType, content string) {
	if _, err := s.CreateNotification(ctx, userID, t, content); err != nil {
		log.WithError(err).WithField("user_id", userID).WithField("type", t).Error("failed to notify")
	}
}

func (s *srv) ListNotifications(ctx context.Context, userID uint64) ([]*entities.Notification, error) {
	list, err := s.s.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return list, nil
}

func (s *srv) MarkNotificationRead(ctx context.Context, userID, id uint64) error {
	if err := s.s.MarkNotificationRead(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: notification", service.ErrNotFound)
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	return nil
}

func (s *srv) MarkAllNotificationsRead(ctx context.Context, userID uint64) (int64, error) {
	c, err := s.s.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return c, nil
}
