//go:build integration
// +build integration

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	m "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Decentr-net/sharehub/internal/entities"
	"github.com/Decentr-net/sharehub/internal/storage"
)

var (
	db  *sql.DB
	ctx = context.Background()
	s   storage.Storage
)

func TestMain(m *testing.M) {
	shutdown := setup()

	s = New(db)

	code := m.Run()
	shutdown()
	os.Exit(code)
}

func setup() func() {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		Env:          map[string]string{"POSTGRES_PASSWORD": "root"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp"),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		logrus.WithError(err).Fatalf("failed to create container")
	}

	host, err := c.Host(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to get host")
	}

	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		logrus.WithError(err).Fatal("failed to map port")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=postgres password=root sslmode=disable", host, port.Int())

	db, err = sql.Open("postgres", dsn)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open connection")
	}

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("failed to ping postgres")
	}

	shutdownFn := func() {
		if c != nil {
			c.Terminate(ctx)
		}
	}

	migrate("postgres", "root", host, "postgres", port.Int())

	return shutdownFn
}

func migrate(username, password, hostname, dbname string, port int) {
	_, currFile, _, ok := runtime.Caller(0)
	if !ok {
		logrus.Fatal("failed to get current file location")
	}

	migrations := filepath.Join(currFile, "../../../../scripts/migrations/postgres/")

	migrator, err := m.New(
		fmt.Sprintf("file://%s", migrations),
		fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			username, password, hostname, port, dbname),
	)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create migrator")
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		logrus.WithError(err).Fatal("failed to migrate")
	}
}

func cleanup(t *testing.T) {
	for _, table := range []string{"notification", `"like"`, "comment", "share", "users"} {
		_, err := db.ExecContext(ctx, `DELETE FROM `+table)
		require.NoError(t, err)
	}
}

func strPtr(s string) *string { return &s }

func createUser(t *testing.T, username string) *entities.User {
	u := &entities.User{Username: username, PasswordHash: strPtr("hash")}
	require.NoError(t, s.CreateUser(ctx, u))
	return u
}

func createShare(t *testing.T, owner uint64, title, content string) *entities.Share {
	sh := &entities.Share{Title: title, Content: content, ChainTxID: strPtr("0xabc"), UserID: owner}
	require.NoError(t, s.CreateShare(ctx, sh))
	return sh
}

func TestPg_CreateUser(t *testing.T) {
	defer cleanup(t)

	u := createUser(t, "alice")
	require.NotZero(t, u.ID)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.HasPassword())
	assert.Nil(t, got.WalletAddress)

	require.ErrorIs(t, s.CreateUser(ctx, &entities.User{Username: "alice", PasswordHash: strPtr("x")}), storage.ErrAlreadyExists)
}

func TestPg_CreateUser_WithoutCredentials(t *testing.T) {
	defer cleanup(t)

	require.Error(t, s.CreateUser(ctx, &entities.User{Username: "nobody"}))
}

func TestPg_GetUserByWallet(t *testing.T) {
	defer cleanup(t)

	u := &entities.User{Username: "sui_0x123456", WalletAddress: strPtr("0x1234567890")}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByWallet(ctx, "0x1234567890")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.HasPassword())

	_, err = s.GetUserByWallet(ctx, "0xdead")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, s.CreateUser(ctx, &entities.User{Username: "other", WalletAddress: strPtr("0x1234567890")}), storage.ErrAlreadyExists)
}

func TestPg_UpdateProfile(t *testing.T) {
	defer cleanup(t)

	u := createUser(t, "alice")

	got, err := s.UpdateProfile(ctx, u.ID, &storage.UpdateProfileParams{Bio: strPtr("hello")})
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Bio)
	assert.Equal(t, "", got.Avatar)

	_, err = s.UpdateProfile(ctx, u.ID+100, &storage.UpdateProfileParams{Bio: strPtr("hello")})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPg_GetShare(t *testing.T) {
	defer cleanup(t)

	alice := createUser(t, "alice")
	sh := createShare(t, alice.ID, "Hello", "World")

	got, err := s.GetShare(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "World", got.Content)
	assert.Equal(t, "0xabc", *got.ChainTxID)
	assert.Equal(t, "alice", got.Owner.Username)
	assert.Nil(t, got.Owner.PasswordHash)
	assert.EqualValues(t, 0, got.LikesCount)
	assert.EqualValues(t, 0, got.CommentsCount)

	_, err = s.GetShare(ctx, sh.ID+100)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPg_CreateShare_UnknownUser(t *testing.T) {
	defer cleanup(t)

	require.ErrorIs(t, s.CreateShare(ctx, &entities.Share{Title: "t", Content: "c", UserID: 42}), storage.ErrNotFound)
}

func TestPg_UpdateShare(t *testing.T) {
	defer cleanup(t)

	alice := createUser(t, "alice")
	sh := createShare(t, alice.ID, "Hello", "World")

	require.NoError(t, s.UpdateShare(ctx, sh.ID, &storage.UpdateShareParams{Title: strPtr("Bye")}))

	got, err := s.GetShare(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bye", got.Title)
	assert.Equal(t, "World", got.Content)

	require.ErrorIs(t, s.UpdateShare(ctx, sh.ID+100, &storage.UpdateShareParams{}), storage.ErrNotFound)
}

func TestPg_DeleteShare(t *testing.T) {
	defer cleanup(t)

	alice := createUser(t, "alice")
	bob := createUser(t, "bob")
	sh := createShare(t, alice.ID, "Hello", "World")

	require.NoError(t, s.CreateComment(ctx, &entities.Comment{Content: "nice", UserID: bob.ID, ShareID: sh.ID}))
	_, err := s.CreateLike(ctx, bob.ID, sh.ID)
	require.NoError(t, err)

	require.NoError(t, s.InTx(ctx, func(tx storage.Storage) error {
		return tx.DeleteShare(ctx, sh.ID)
	}))

	_, err = s.GetShare(ctx, sh.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	comments, err := s.ListComments(ctx, sh.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	likes, err := s.ListLikes(ctx, sh.ID)
	require.NoError(t, err)
	assert.Empty(t, likes)

	require.ErrorIs(t, s.DeleteShare(ctx, sh.ID), storage.ErrNotFound)
}

func TestPg_InTx_Rollback(t *testing.T) {
	defer cleanup(t)

	alice := createUser(t, "alice")
	sh := createShare(t, alice.ID, "Hello", "World")

	err := s.InTx(ctx, func(tx storage.Storage) error {
		require.NoError(t, tx.DeleteShare(ctx, sh.ID))
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	_, err = s.GetShare(ctx, sh.ID)
	require.NoError(t, err)
}

func TestPg_ListShares(t *testing.T) {
	defer cleanup(t)

	alice := createUser(t, "alice")
	bob := createUser(t, "bob")

	s1 := createShare(t, alice.ID, "Go tips", "use interfaces")
	s2 := createShare(t, bob.ID, "Rust", "borrow checker")
	s3 := createShare(t, alice.ID, "Cooking", "100% pasta")

	for _, u := range []uint64{alice.ID, bob.ID} {
		_, err := s.CreateLike(ctx, u, s2.ID)
		require.NoError(t, err)
	}
	_, err := s.CreateLike(ctx, bob.ID, s1.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateComment(ctx, &entities.Comment{Content: "c", UserID: bob.ID, ShareID: s3.ID}))
	}

	ids := func(list []*entities.CalculatedShare) []uint64 {
		out := make([]uint64, len(list))
		for i, v := range list {
			out[i] = v.ID
		}
		return out
	}

	tt := []struct {
		name  string
		p     storage.ListSharesParams
		ids   []uint64
		total uint64
	}{
		{
			name:  "latest",
			p:     storage.ListSharesParams{SortBy: storage.LatestSortType, Limit: 10},
			ids:   []uint64{s3.ID, s2.ID, s1.ID},
			total: 3,
		},
		{
			name:  "popular",
			p:     storage.ListSharesParams{SortBy: storage.PopularSortType, Limit: 10},
			ids:   []uint64{s2.ID, s1.ID, s3.ID},
			total: 3,
		},
		{
			name:  "comments",
			p:     storage.ListSharesParams{SortBy: storage.CommentsSortType, Limit: 10},
			ids:   []uint64{s3.ID, s2.ID, s1.ID},
			total: 3,
		},
		{
			name:  "owner",
			p:     storage.ListSharesParams{Owner: &alice.ID, Limit: 10},
			ids:   []uint64{s3.ID, s1.ID},
			total: 2,
		},
		{
			name:  "search case insensitive",
			p:     storage.ListSharesParams{Search: strPtr("BORROW"), Limit: 10},
			ids:   []uint64{s2.ID},
			total: 1,
		},
		{
			name:  "search escapes wildcard",
			p:     storage.ListSharesParams{Search: strPtr("%"), Limit: 10},
			ids:   []uint64{s3.ID},
			total: 1,
		},
		{
			name:  "pagination",
			p:     storage.ListSharesParams{Limit: 1, Offset: 1},
			ids:   []uint64{s2.ID},
			total: 3,
		},
	}

	for i := range tt {
		tc := tt[i]
		t.Run(tc.name, func(t *testing.T) {
			list, total, err := s.ListShares(ctx, &tc.p)
			require.NoError(t, err)
			assert.Equal(t, tc.ids, ids(list))
			assert.Equal(t, tc.total, total)
		})
	}
}

func TestPg_Comments(t *testing.T) {
	defer cleanup(t)

	alice := createUser(t, "alice")
	sh := createShare(t, alice.ID, "Hello", "World")

	first := &entities.Comment{Content: "first", UserID: alice.ID, ShareID: sh.ID}
	second := &entities.Comment{Content: "second", UserID: alice.ID, ShareID: sh.ID}
	require.NoError(t, s.CreateComment(ctx, first))
	require.NoError(t, s.CreateComment(ctx, second))

	list, err := s.ListComments(ctx, sh.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Content)
	assert.Equal(t, "alice", list[0].Author.Username)
	assert.Nil(t, list[0].Author.PasswordHash)

	got, err := s.GetComment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Content)

	require.NoError(t, s.DeleteComment(ctx, first.ID))
	require.ErrorIs(t, s.DeleteComment(ctx, first.ID), storage.ErrNotFound)

	require.ErrorIs(t, s.CreateComment(ctx, &entities.Comment{Content: "x", UserID: alice.ID, ShareID: sh.ID + 100}), storage.ErrNotFound)
}

func TestPg_Likes(t *testing.T) {
	defer cleanup(t)

	alice := createUser(t, "alice")
	sh := createShare(t, alice.ID, "Hello", "World")

	created, err := s.CreateLike(ctx, alice.ID, sh.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateLike(ctx, alice.ID, sh.ID)
	require.NoError(t, err)
	assert.False(t, created)

	liked, err := s.HasLike(ctx, alice.ID, sh.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	likes, err := s.ListLikes(ctx, sh.ID)
	require.NoError(t, err)
	assert.Len(t, likes, 1)

	require.NoError(t, s.DeleteLike(ctx, alice.ID, sh.ID))
	require.NoError(t, s.DeleteLike(ctx, alice.ID, sh.ID))

	liked, err = s.HasLike(ctx, alice.ID, sh.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = s.CreateLike(ctx, alice.ID, sh.ID+100)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPg_CreateLike_Concurrent(t *testing.T) {
	defer cleanup(t)

	alice := createUser(t, "alice")
	sh := createShare(t, alice.ID, "Hello", "World")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CreateLike(ctx, alice.ID, sh.ID)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)

	likes, err := s.ListLikes(ctx, sh.ID)
	require.NoError(t, err)
	assert.Len(t, likes, 1)
}

func TestPg_Notifications(t *testing.T) {
	defer cleanup(t)

	alice := createUser(t, "alice")
	bob := createUser(t, "bob")

	n1 := &entities.Notification{Type: entities.LikeNotification, Content: "1", UserID: alice.ID}
	n2 := &entities.Notification{Type: entities.CommentNotification, Content: "2", UserID: alice.ID}
	n3 := &entities.Notification{Type: entities.SystemNotification, Content: "3", UserID: alice.ID}
	for _, n := range []*entities.Notification{n1, n2, n3} {
		require.NoError(t, s.CreateNotification(ctx, n))
		assert.False(t, n.IsRead)
	}

	require.ErrorIs(t, s.MarkNotificationRead(ctx, bob.ID, n1.ID), storage.ErrNotFound)
	require.NoError(t, s.MarkNotificationRead(ctx, alice.ID, n1.ID))
	require.NoError(t, s.MarkNotificationRead(ctx, alice.ID, n1.ID))

	list, err := s.ListNotifications(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, n3.ID, list[0].ID)
	assert.False(t, list[0].IsRead)
	assert.False(t, list[1].IsRead)
	assert.True(t, list[2].IsRead)

	c, err := s.MarkAllNotificationsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c)

	c, err = s.MarkAllNotificationsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, c)

	require.Error(t, s.CreateNotification(ctx, &entities.Notification{Type: "bogus", Content: "x", UserID: alice.ID}))
}
