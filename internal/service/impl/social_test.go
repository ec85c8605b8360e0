package impl

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/sharehub/internal/entities"
	"github.com/Decentr-net/sharehub/internal/service"
	storageinterface "github.com/Decentr-net/sharehub/internal/storage"
)

func TestSrv_CreateComment(t *testing.T) {
	srv, m := newTestService(t)

	m.s.EXPECT().GetShare(gomock.Any(), uint64(3)).Return(calculatedShare(3, 1), nil)
	m.s.EXPECT().GetUserByID(gomock.Any(), uint64(2)).Return(&entities.User{ID: 2, Username: "bob", PasswordHash: strPtr("hash")}, nil)
	m.s.EXPECT().CreateComment(gomock.Any(), &entities.Comment{Content: "nice", UserID: 2, ShareID: 3}).
		DoAndReturn(func(_ context.Context, c *entities.Comment) error {
			c.ID = 10
			return nil
		})
	m.s.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, n *entities.Notification) error {
		assert.Equal(t, entities.CommentNotification, n.Type)
		assert.EqualValues(t, 1, n.UserID)
		assert.Contains(t, n.Content, "bob")
		return nil
	})

	c, err := srv.CreateComment(context.Background(), 2, 3, " nice ")
	require.NoError(t, err)
	assert.EqualValues(t, 10, c.ID)
	assert.Equal(t, "bob", c.Author.Username)
	assert.Nil(t, c.Author.PasswordHash)
}

func TestSrv_CreateComment_OwnShareIsNotNotified(t *testing.T) {
	srv, m := newTestService(t)

	m.s.EXPECT().GetShare(gomock.Any(), uint64(3)).Return(calculatedShare(3, 1), nil)
	m.s.EXPECT().GetUserByID(gomock.Any(), uint64(1)).Return(&entities.User{ID: 1, Username: "owner"}, nil)
	m.s.EXPECT().CreateComment(gomock.Any(), gomock.Any()).Return(nil)

	_, err := srv.CreateComment(context.Background(), 1, 3, "mine")
	require.NoError(t, err)
}

func TestSrv_CreateComment_KeepsPlainText(t *testing.T) {
	srv, m := newTestService(t)

	content := `Tom & Jerry's "best"`

	m.s.EXPECT().GetShare(gomock.Any(), uint64(3)).Return(calculatedShare(3, 1), nil)
	m.s.EXPECT().GetUserByID(gomock.Any(), uint64(1)).Return(&entities.User{ID: 1, Username: "owner"}, nil)
	m.s.EXPECT().CreateComment(gomock.Any(), &entities.Comment{Content: content, UserID: 1, ShareID: 3}).Return(nil)

	c, err := srv.CreateComment(context.Background(), 1, 3, "<script>alert(1)</script>"+content)
	require.NoError(t, err)
	assert.Equal(t, content, c.Content)
}

func TestSrv_CreateComment_Errors(t *testing.T) {
	srv, m := newTestService(t)

	_, err := srv.CreateComment(context.Background(), 2, 3, "   ")
	require.ErrorIs(t, err, service.ErrValidation)

	m.s.EXPECT().GetShare(gomock.Any(), uint64(3)).Return(nil, storageinterface.ErrNotFound)
	_, err = srv.CreateComment(context.Background(), 2, 3, "hi")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestSrv_ListComments(t *testing.T) {
	srv, m := newTestService(t)

	list := []*entities.CalculatedComment{{Comment: entities.Comment{ID: 2}}, {Comment: entities.Comment{ID: 1}}}

	m.s.EXPECT().GetShare(gomock.Any(), uint64(3)).Return(calculatedShare(3, 1), nil)
	m.s.EXPECT().ListComments(gomock.Any(), uint64(3)).Return(list, nil)

	out, err := srv.ListComments(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, list, out)

	m.s.EXPECT().GetShare(gomock.Any(), uint64(4)).Return(nil, storageinterface.ErrNotFound)
	_, err = srv.ListComments(context.Background(), 4)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestSrv_DeleteComment(t *testing.T) {
	tt := []struct {
		name    string
		userID  uint64
		prepare func(m *mocks)
		err     error
	}{
		{
			name:   "author",
			userID: 2,
			prepare: func(m *mocks) {
				m.s.EXPECT().GetComment(gomock.Any(), uint64(5)).Return(&entities.Comment{ID: 5, UserID: 2}, nil)
				m.s.EXPECT().DeleteComment(gomock.Any(), uint64(5)).Return(nil)
			},
		},
		{
			name:   "not author",
			userID: 3,
			prepare: func(m *mocks) {
				m.s.EXPECT().GetComment(gomock.Any(), uint64(5)).Return(&entities.Comment{ID: 5, UserID: 2}, nil)
			},
			err: service.ErrForbidden,
		},
		{
			name:   "absent",
			userID: 2,
			prepare: func(m *mocks) {
				m.s.EXPECT().GetComment(gomock.Any(), uint64(5)).Return(nil, storageinterface.ErrNotFound)
			},
			err: service.ErrNotFound,
		},
	}

	for i := range tt {
		tc := tt[i]
		t.Run(tc.name, func(t *testing.T) {
			srv, m := newTestService(t)
			tc.prepare(m)

			err := srv.DeleteComment(context.Background(), tc.userID, 5)
			if tc.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestSrv_Like(t *testing.T) {
	t.Run("first like notifies owner", func(t *testing.T) {
		srv, m := newTestService(t)

		m.s.EXPECT().GetShare(gomock.Any(), uint64(3)).Return(calculatedShare(3, 1), nil)
		m.s.EXPECT().CreateLike(gomock.Any(), uint64(7), uint64(3)).Return(true, nil)
		m.s.EXPECT().GetUserByID(gomock.Any(), uint64(7)).Return(&entities.User{ID: 7, Username: "bob"}, nil)
		m.s.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, n *entities.Notification) error {
			assert.Equal(t, entities.LikeNotification, n.Type)
			assert.EqualValues(t, 1, n.UserID)
			return nil
		})

		require.NoError(t, srv.Like(context.Background(), 7, 3))
	})

	t.Run("repeated like is idempotent", func(t *testing.T) {
		srv, m := newTestService(t)

		m.s.EXPECT().GetShare(gomock.Any(), uint64(3)).Return(calculatedShare(3, 1), nil).Times(2)
		m.s.EXPECT().CreateLike(gomock.Any(), uint64(1), uint64(3)).Return(false, nil).Times(2)

		require.NoError(t, srv.Like(context.Background(), 1, 3))
		require.NoError(t, srv.Like(context.Background(), 1, 3))
	})

	t.Run("notification failure does not fail like", func(t *testing.T) {
		srv, m := newTestService(t)

		m.s.EXPECT().GetShare(gomock.Any(), uint64(3)).Return(calculatedShare(3, 1), nil)
		m.s.EXPECT().CreateLike(gomock.Any(), uint64(7), uint64(3)).Return(true, nil)
		m.s.EXPECT().GetUserByID(gomock.Any(), uint64(7)).Return(&entities.User{ID: 7, Username: "bob"}, nil)
		m.s.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).Return(errTest)

		require.NoError(t, srv.Like(context.Background(), 7, 3))
	})

	t.Run("absent share", func(t *testing.T) {
		srv, m := newTestService(t)

		m.s.EXPECT().GetShare(gomock.Any(), uint64(3)).Return(nil, storageinterface.ErrNotFound)

		require.ErrorIs(t, srv.Like(context.Background(), 7, 3), service.ErrNotFound)
	})
}

func TestSrv_LikeUnlikeCheck(t *testing.T) {
	srv, m := newTestService(t)

	liked := false
	m.s.EXPECT().GetShare(gomock.Any(), uint64(3)).Return(calculatedShare(3, 7), nil)
	m.s.EXPECT().CreateLike(gomock.Any(), uint64(7), uint64(3)).DoAndReturn(func(context.Context, uint64, uint64) (bool, error) {
		liked = true
		return true, nil
	})
	m.s.EXPECT().DeleteLike(gomock.Any(), uint64(7), uint64(3)).DoAndReturn(func(context.Context, uint64, uint64) error {
		liked = false
		return nil
	}).Times(2)
	m.s.EXPECT().HasLike(gomock.Any(), uint64(7), uint64(3)).DoAndReturn(func(context.Context, uint64, uint64) (bool, error) {
		return liked, nil
	}).Times(2)

	require.NoError(t, srv.Like(context.Background(), 7, 3))
	ok, err := srv.IsLiked(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, srv.Unlike(context.Background(), 7, 3))
	require.NoError(t, srv.Unlike(context.Background(), 7, 3))
	ok, err = srv.IsLiked(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}
