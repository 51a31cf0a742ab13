package userservice

import (
	"errors"
	"sync"

	"github.com/sushihentaime/blogspace/internal/common"
	"github.com/sushihentaime/blogspace/internal/domain"
	"github.com/sushihentaime/blogspace/internal/storage"
)

var (
	ErrAuthenticationFailure = errors.New("invalid credentials")
	ErrNoSession             = errors.New("no active session")
)

// UserService is the identity and session facade. It owns the single signed-in
// session: the pointer is restored once at startup, set by login and
// registration, and cleared by logout. All persistence goes through the
// Storage interface, so the facade is identical over both backends.
type UserService struct {
	store storage.Storage
	mb    common.MessageProducer

	mu      sync.Mutex
	current *domain.User
}

func NewUserService(store storage.Storage, mb common.MessageProducer) *UserService {
	return &UserService{store: store, mb: mb}
}
