package userservice

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/sushihentaime/blogspace/internal/common"
	"github.com/sushihentaime/blogspace/internal/domain"
	"github.com/sushihentaime/blogspace/internal/storage"
)

// Restore loads the persisted session pointer. A dangling pointer (the user
// record is gone) clears the session instead of failing startup.
func (s *UserService) Restore(ctx context.Context) error {
	id, err := s.store.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	if id == "" {
		return nil
	}

	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return s.store.SetCurrentUserID(ctx, "")
		default:
			return err
		}
	}

	s.setCurrent(user)
	return nil
}

// Register creates a new account and signs it in immediately. A duplicate
// email or username fails without creating a record. On success a
// user.registered event is published for the welcome mail worker.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)

	v := common.NewValidator()
	validateUsername(v, username)
	validateEmail(v, email)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, domain.NewUser{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SetCurrentUserID(ctx, user.ID); err != nil {
		return nil, err
	}
	s.setCurrent(user)

	if s.mb != nil {
		data := struct {
			Email    string
			Username string
		}{
			Email:    user.Email,
			Username: user.Username,
		}

		msg, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}

		if err := s.mb.Publish(ctx, msg, common.UserRegisteredKey, common.UserExchange); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// Login verifies the password against the stored hash. An unknown email and a
// wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)

	v := common.NewValidator()
	validateEmail(v, email)
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrAuthenticationFailure
		default:
			return nil, err
		}
	}

	ok, err := comparePassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAuthenticationFailure
	}

	if err := s.store.SetCurrentUserID(ctx, user.ID); err != nil {
		return nil, err
	}
	s.setCurrent(user)

	return user, nil
}

// Logout clears the session pointer unconditionally.
func (s *UserService) Logout(ctx context.Context) error {
	if err := s.store.SetCurrentUserID(ctx, ""); err != nil {
		return err
	}

	s.setCurrent(nil)
	return nil
}

// UpdateProfile merges the partial update into the signed-in user and
// refreshes the in-memory session copy. Fails with ErrNoSession when nobody is
// signed in.
func (s *UserService) UpdateProfile(ctx context.Context, upd domain.UserUpdate) (*domain.User, error) {
	current := s.CurrentUser()
	if current == nil {
		return nil, ErrNoSession
	}

	v := common.NewValidator()
	if upd.Username != nil {
		validateUsername(v, *upd.Username)
	}
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.store.UpdateUser(ctx, current.ID, upd)
	if err != nil {
		return nil, err
	}

	s.setCurrent(user)
	return user, nil
}

// Users lists every account in signup order. Admin-facing.
func (s *UserService) Users(ctx context.Context) ([]domain.User, error) {
	return s.store.Users(ctx)
}

// CurrentUser returns a copy of the signed-in user, or nil when the session is
// anonymous.
func (s *UserService) CurrentUser() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}

	u := *s.current
	return &u
}

func (s *UserService) setCurrent(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user == nil {
		s.current = nil
		return
	}

	u := *user
	s.current = &u
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
