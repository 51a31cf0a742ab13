package storage

import (
	"context"
	"errors"

	"github.com/sushihentaime/blogspace/internal/domain"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrDuplicateUsername = errors.New("duplicate username")
)

// Storage is the contract both backends implement. The facade services depend
// on this interface only and never on backend field names or schemas.
type Storage interface {
	Users(ctx context.Context) ([]domain.User, error)
	UserByID(ctx context.Context, id string) (*domain.User, error)
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, u domain.NewUser) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error)

	// CurrentUserID returns the persisted session pointer, or "" when no user
	// is signed in. SetCurrentUserID("") clears it.
	CurrentUserID(ctx context.Context) (string, error)
	SetCurrentUserID(ctx context.Context, id string) error

	Blogs(ctx context.Context) ([]domain.Blog, error)
	BlogByID(ctx context.Context, id string) (*domain.Blog, error)
	CreateBlog(ctx context.Context, b domain.NewBlog) (*domain.Blog, error)
	UpdateBlog(ctx context.Context, id string, upd domain.BlogUpdate) (*domain.Blog, error)
	DeleteBlog(ctx context.Context, id string) error

	// LikeBlog toggles userID's like on the blog and reports the resulting
	// state: true when the like now exists, false when it was removed.
	LikeBlog(ctx context.Context, blogID, userID string) (bool, error)

	AddComment(ctx context.Context, c domain.NewComment) (*domain.Comment, error)

	// SearchBlogs returns an empty slice, never nil, when nothing matches.
	SearchBlogs(ctx context.Context, query string) ([]domain.Blog, error)
}
