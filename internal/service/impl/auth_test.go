package impl

import (
	"context"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Decentr-net/sharehub/internal/entities"
	"github.com/Decentr-net/sharehub/internal/service"
	storageinterface "github.com/Decentr-net/sharehub/internal/storage"
	"github.com/Decentr-net/sharehub/internal/wallet"
)

func TestSrv_Register_Login(t *testing.T) {
	srv, m := newTestService(t)

	var stored entities.User
	m.s.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *entities.User) error {
		u.ID = 7
		stored = *u
		return nil
	})

	session, err := srv.Register(context.Background(), "alice", "pw123")
	require.NoError(t, err)
	assert.EqualValues(t, 7, session.User.ID)
	assert.Nil(t, session.User.PasswordHash)
	require.NotNil(t, stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte("pw123")))

	m.s.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(&stored, nil)

	session, err = srv.Login(context.Background(), "alice", "pw123")
	require.NoError(t, err)

	identity, err := srv.Authenticate(context.Background(), session.Token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, identity.UserID)
	assert.Equal(t, "alice", identity.Username)
}

func TestSrv_Register_Errors(t *testing.T) {
	tt := []struct {
		name     string
		username string
		password string
		stored   error
		err      error
	}{
		{name: "short username", username: "al", password: "pw1234", err: service.ErrValidation},
		{name: "long username", username: strings.Repeat("a", 65), password: "pw1234", err: service.ErrValidation},
		{name: "short password", username: "alice", password: "pw", err: service.ErrValidation},
		{name: "long password", username: "alice", password: strings.Repeat("a", 73), err: service.ErrValidation},
		{name: "taken", username: "alice", password: "pw1234", stored: storageinterface.ErrAlreadyExists, err: service.ErrUsernameTaken},
		{name: "storage failure", username: "alice", password: "pw1234", stored: errTest, err: errTest},
	}

	for i := range tt {
		tc := tt[i]
		t.Run(tc.name, func(t *testing.T) {
			srv, m := newTestService(t)

			if tc.stored != nil {
				m.s.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(tc.stored)
			}

			_, err := srv.Register(context.Background(), tc.username, tc.password)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestSrv_Login_Errors(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw1234"), bcrypt.MinCost)
	require.NoError(t, err)
	h := string(hash)

	tt := []struct {
		name     string
		user     *entities.User
		stored   error
		password string
		err      error
	}{
		{name: "unknown user", stored: storageinterface.ErrNotFound, password: "pw1234", err: service.ErrInvalidCredentials},
		{name: "wallet user", user: &entities.User{ID: 1, Username: "sui_0x12", WalletAddress: strPtr("0x12")}, password: "pw1234", err: service.ErrInvalidCredentials},
		{name: "wrong password", user: &entities.User{ID: 1, Username: "alice", PasswordHash: &h}, password: "wrong1", err: service.ErrInvalidCredentials},
		{name: "storage failure", stored: errTest, password: "pw1234", err: errTest},
	}

	for i := range tt {
		tc := tt[i]
		t.Run(tc.name, func(t *testing.T) {
			srv, m := newTestService(t)

			m.s.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(tc.user, tc.stored)

			_, err := srv.Login(context.Background(), "alice", tc.password)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestSrv_WalletLogin_Existing(t *testing.T) {
	addr := "0x" + strings.Repeat("0", 58) + "abcdef"

	for _, input := range []string{" 0xABCDEF ", "0xabcdef", addr} {
		t.Run(input, func(t *testing.T) {
			srv, m := newTestService(t)

			u := &entities.User{ID: 3, Username: "sui_0x000000", WalletAddress: strPtr(addr)}

			m.wallet.EXPECT().Verify(gomock.Any(), addr, "msg", "sig").Return(nil)
			m.s.EXPECT().GetUserByWallet(gomock.Any(), addr).Return(u, nil)

			session, err := srv.WalletLogin(context.Background(), input, "msg", "sig")
			require.NoError(t, err)
			assert.EqualValues(t, 3, session.User.ID)
		})
	}
}

func TestSrv_WalletLogin_Create(t *testing.T) {
	srv, m := newTestService(t)

	addr := "0x" + strings.Repeat("1234567890abcdef", 4)

	m.wallet.EXPECT().Verify(gomock.Any(), addr, "msg", "sig").Return(nil)
	m.s.EXPECT().GetUserByWallet(gomock.Any(), addr).Return(nil, storageinterface.ErrNotFound)
	m.s.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *entities.User) error {
		assert.Equal(t, "sui_0x123456", u.Username)
		assert.Nil(t, u.PasswordHash)
		assert.Equal(t, addr, *u.WalletAddress)
		u.ID = 9
		return nil
	})

	session, err := srv.WalletLogin(context.Background(), strings.ToUpper(addr[2:]), "msg", "sig")
	require.NoError(t, err)
	assert.EqualValues(t, 9, session.User.ID)
	assert.NotEmpty(t, session.Token)
}

func TestSrv_WalletLogin_UsernameCollision(t *testing.T) {
	srv, m := newTestService(t)

	addr := "0x" + strings.Repeat("1234567890abcdef", 4)

	m.wallet.EXPECT().Verify(gomock.Any(), addr, "msg", "sig").Return(nil)
	gomock.InOrder(
		m.s.EXPECT().GetUserByWallet(gomock.Any(), addr).Return(nil, storageinterface.ErrNotFound),
		m.s.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(storageinterface.ErrAlreadyExists),
		m.s.EXPECT().GetUserByWallet(gomock.Any(), addr).Return(nil, storageinterface.ErrNotFound),
		m.s.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *entities.User) error {
			assert.Equal(t, "sui_"+addr[2:62], u.Username)
			u.ID = 10
			return nil
		}),
	)

	session, err := srv.WalletLogin(context.Background(), addr, "msg", "sig")
	require.NoError(t, err)
	assert.EqualValues(t, 10, session.User.ID)
}

func TestSrv_WalletLogin_ConcurrentCreation(t *testing.T) {
	srv, m := newTestService(t)

	addr := "0x" + strings.Repeat("1234567890abcdef", 4)
	u := &entities.User{ID: 11, Username: "sui_0x123456", WalletAddress: &addr}

	m.wallet.EXPECT().Verify(gomock.Any(), addr, "msg", "sig").Return(nil)
	gomock.InOrder(
		m.s.EXPECT().GetUserByWallet(gomock.Any(), addr).Return(nil, storageinterface.ErrNotFound),
		m.s.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(storageinterface.ErrAlreadyExists),
		m.s.EXPECT().GetUserByWallet(gomock.Any(), addr).Return(u, nil),
	)

	session, err := srv.WalletLogin(context.Background(), addr, "msg", "sig")
	require.NoError(t, err)
	assert.EqualValues(t, 11, session.User.ID)
}

func TestSrv_WalletLogin_InvalidSignature(t *testing.T) {
	srv, m := newTestService(t)

	m.wallet.EXPECT().Verify(gomock.Any(), "0x"+strings.Repeat("0", 63)+"1", "msg", "sig").Return(wallet.ErrInvalidSignature)

	_, err := srv.WalletLogin(context.Background(), "0x1", "msg", "sig")
	require.ErrorIs(t, err, service.ErrInvalidSignature)
}

func TestSrv_WalletLogin_EmptyAddress(t *testing.T) {
	srv, _ := newTestService(t)

	for _, addr := range []string{"", " ", "0x"} {
		_, err := srv.WalletLogin(context.Background(), addr, "msg", "sig")
		require.ErrorIs(t, err, service.ErrInvalidSignature)
	}
}

func TestWalletUsernames(t *testing.T) {
	long := "0x" + strings.Repeat("ab", 32)
	names := walletUsernames(long)
	require.Len(t, names, 2)
	assert.Equal(t, "sui_0xababab", names[0])
	assert.Len(t, names[1], maxUsernameLength)
}

func TestSrv_Authenticate_Invalid(t *testing.T) {
	srv, _ := newTestService(t)

	_, err := srv.Authenticate(context.Background(), "garbage")
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestSrv_UpdateProfile(t *testing.T) {
	srv, m := newTestService(t)

	m.s.EXPECT().UpdateProfile(gomock.Any(), uint64(1), &storageinterface.UpdateProfileParams{
		Bio: strPtr("hello"),
	}).Return(&entities.User{ID: 1, Username: "alice", Bio: "hello", PasswordHash: strPtr("hash")}, nil)

	u, err := srv.UpdateProfile(context.Background(), 1, service.UpdateProfileParams{Bio: strPtr(" hello<script>x</script> ")})
	require.NoError(t, err)
	assert.Equal(t, "hello", u.Bio)
	assert.Nil(t, u.PasswordHash)
}

func TestSrv_GetProfile(t *testing.T) {
	srv, m := newTestService(t)

	m.s.EXPECT().GetUserByID(gomock.Any(), uint64(1)).Return(nil, storageinterface.ErrNotFound)
	_, err := srv.GetProfile(context.Background(), 1)
	require.ErrorIs(t, err, service.ErrNotFound)
}
