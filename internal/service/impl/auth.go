package impl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/Decentr-net/sharehub/internal/entities"
	"github.com/Decentr-net/sharehub/internal/service"
	"github.com/Decentr-net/sharehub/internal/storage"
	"github.com/Decentr-net/sharehub/internal/sui"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 64
	minPasswordLength = 5
	// bcrypt ignores everything after 72 bytes
	maxPasswordLength = 72

	walletUsernamePrefix = "sui_"
	walletUsernameLength = 8
)

func (s *srv) Register(ctx context.Context, username, password string) (*service.Session, error) {
	username = strings.TrimSpace(username)

	if l := utf8.RuneCountInString(username); l < minUsernameLength || l > maxUsernameLength {
		return nil, fmt.Errorf("%w: username should be from %d to %d characters", service.ErrValidation,
			minUsernameLength, maxUsernameLength)
	}

	if l := len(password); l < minPasswordLength || l > maxPasswordLength {
		return nil, fmt.Errorf("%w: password should be from %d to %d bytes", service.ErrValidation,
			minPasswordLength, maxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	h := string(hash)
	u := &entities.User{
		Username:     username,
		PasswordHash: &h,
	}

	if err := s.s.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, service.ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.WithField("user_id", u.ID).Info("user registered")

	return s.newSession(u)
}

func (s *srv) Login(ctx context.Context, username, password string) (*service.Session, error) {
	u, err := s.s.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !u.HasPassword() {
		return nil, service.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)); err != nil {
		return nil, service.ErrInvalidCredentials
	}

	return s.newSession(u)
}

func (s *srv) WalletLogin(ctx context.Context, address, message, signature string) (*service.Session, error) {
	if strings.TrimPrefix(strings.TrimSpace(address), "0x") == "" {
		return nil, service.ErrInvalidSignature
	}
	address = sui.NormalizeAddress(address)

	if err := s.verifier.Verify(ctx, address, message, signature); err != nil {
		log.WithError(err).WithField("address", address).Debug("wallet signature rejected")
		return nil, service.ErrInvalidSignature
	}

	u, err := s.s.GetUserByWallet(ctx, address)
	switch {
	case err == nil:
		return s.newSession(u)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u, err = s.createWalletUser(ctx, address)
	if err != nil {
		return nil, err
	}

	return s.newSession(u)
}

// createWalletUser creates a password-less user, resolving username collisions and concurrent creation.
func (s *srv) createWalletUser(ctx context.Context, address string) (*entities.User, error) {
	for _, username := range walletUsernames(address) {
		addr := address
		u := &entities.User{
			Username:      username,
			WalletAddress: &addr,
		}

		err := s.s.CreateUser(ctx, u)
		if err == nil {
			log.WithField("user_id", u.ID).WithField("address", address).Info("wallet user created")
			return u, nil
		}

		if !errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		// either the wallet was registered concurrently or the username is taken
		existing, err := s.s.GetUserByWallet(ctx, address)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
	}

	return nil, service.ErrUsernameTaken
}

func walletUsernames(address string) []string {
	short := address
	if len(short) > walletUsernameLength {
		short = short[:walletUsernameLength]
	}

	long := strings.TrimPrefix(address, "0x")
	if l := maxUsernameLength - len(walletUsernamePrefix); len(long) > l {
		long = long[:l]
	}

	return []string{walletUsernamePrefix + short, walletUsernamePrefix + long}
}

func (s *srv) Authenticate(_ context.Context, t string) (*service.Identity, error) {
	c, err := s.tokens.Verify(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", service.ErrUnauthorized, err)
	}

	id, err := c.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", service.ErrUnauthorized, err)
	}

	return &service.Identity{
		UserID:   id,
		Username: c.Username,
	}, nil
}

func (s *srv) GetProfile(ctx context.Context, userID uint64) (*entities.User, error) {
	u, err := s.s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, wrapGet(err, "user")
	}

	return publicUser(u), nil
}

func (s *srv) UpdateProfile(ctx context.Context, userID uint64, p service.UpdateProfileParams) (*entities.User, error) {
	var upd storage.UpdateProfileParams

	if p.Avatar != nil {
		avatar := strings.TrimSpace(*p.Avatar)
		upd.Avatar = &avatar
	}

	if p.Bio != nil {
		bio := s.sanitize(*p.Bio)
		upd.Bio = &bio
	}

	u, err := s.s.UpdateProfile(ctx, userID, &upd)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: user", service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return publicUser(u), nil
}

func (s *srv) newSession(u *entities.User) (*service.Session, error) {
	t, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &service.Session{
		Token: t,
		User:  publicUser(u),
	}, nil
}

// publicUser returns copy of user without password hash.
func publicUser(u *entities.User) *entities.User {
	out := *u
	out.PasswordHash = nil
	return &out
}
