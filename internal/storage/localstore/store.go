package localstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sushihentaime/blogspace/internal/domain"
	"github.com/sushihentaime/blogspace/internal/storage"
)

const (
	usersFile       = "users.json"
	blogsFile       = "blogs.json"
	currentUserFile = "current_user"
)

// Store is the local backend: three durable JSON slots under a data directory
// holding denormalized records, plus a plain-text slot for the session
// pointer. Every read-modify-write sequence holds the mutex so concurrent
// callers cannot interleave.
type Store struct {
	mu  sync.Mutex
	dir string
}

// userRecord, blogRecord and commentRecord are the flat shapes persisted on
// disk. Authors are raw ids here and join-assembled into the aggregate on
// read.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"password_hash,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	IsAdmin      bool      `json:"is_admin,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type blogRecord struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Excerpt    string          `json:"excerpt"`
	Category   string          `json:"category"`
	Tags       []string        `json:"tags"`
	CoverImage string          `json:"cover_image,omitempty"`
	AuthorID   string          `json:"author_id"`
	Likes      int             `json:"likes"`
	LikedBy    []string        `json:"liked_by"`
	Comments   []commentRecord `json:"comments"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type commentRecord struct {
	ID        string    `json:"id"`
	BlogID    string    `json:"blog_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &Store{dir: dir}, nil
}

// readUsers returns the stored collection. An absent or malformed file is an
// empty collection, not an error.
func (s *Store) readUsers() []userRecord {
	data, err := os.ReadFile(filepath.Join(s.dir, usersFile))
	if err != nil {
		return []userRecord{}
	}

	var users []userRecord
	if err := json.Unmarshal(data, &users); err != nil {
		return []userRecord{}
	}

	return users
}

func (s *Store) writeUsers(users []userRecord) error {
	data, err := json.Marshal(users)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(s.dir, usersFile), data, 0o644)
}

func (s *Store) readBlogs() []blogRecord {
	data, err := os.ReadFile(filepath.Join(s.dir, blogsFile))
	if err != nil {
		return []blogRecord{}
	}

	var blogs []blogRecord
	if err := json.Unmarshal(data, &blogs); err != nil {
		return []blogRecord{}
	}

	return blogs
}

func (s *Store) writeBlogs(blogs []blogRecord) error {
	data, err := json.Marshal(blogs)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(s.dir, blogsFile), data, 0o644)
}

func (s *Store) toUser(rec userRecord) domain.User {
	return domain.User{
		ID:           rec.ID,
		Username:     rec.Username,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		Bio:          rec.Bio,
		Avatar:       rec.Avatar,
		IsAdmin:      rec.IsAdmin,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

// toBlog assembles the aggregate from the flat record: author and comment
// authors are looked up by id. A dangling author reference yields an author
// carrying only its id.
func (s *Store) toBlog(rec blogRecord, usersByID map[string]userRecord) domain.Blog {
	author := domain.User{ID: rec.AuthorID}
	if u, ok := usersByID[rec.AuthorID]; ok {
		author = s.toUser(u)
	}

	comments := make([]domain.Comment, 0, len(rec.Comments))
	for _, c := range rec.Comments {
		commentAuthor := domain.User{ID: c.AuthorID}
		if u, ok := usersByID[c.AuthorID]; ok {
			commentAuthor = s.toUser(u)
		}

		comments = append(comments, domain.Comment{
			ID:        c.ID,
			BlogID:    c.BlogID,
			Content:   c.Content,
			Author:    commentAuthor,
			CreatedAt: c.CreatedAt,
		})
	}

	likedBy := rec.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}

	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}

	return domain.Blog{
		ID:         rec.ID,
		Title:      rec.Title,
		Content:    rec.Content,
		Excerpt:    rec.Excerpt,
		Category:   rec.Category,
		Tags:       tags,
		CoverImage: rec.CoverImage,
		Author:     author,
		Likes:      rec.Likes,
		LikedBy:    likedBy,
		Comments:   comments,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func (s *Store) userIndex() map[string]userRecord {
	users := s.readUsers()
	byID := make(map[string]userRecord, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	return byID
}

func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.readUsers()
	users := make([]domain.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, s.toUser(rec))
	}

	return users, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.userByID(id)
}

func (s *Store) userByID(id string) (*domain.User, error) {
	for _, rec := range s.readUsers() {
		if rec.ID == id {
			u := s.toUser(rec)
			return &u, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.readUsers() {
		if rec.Email == email {
			u := s.toUser(rec)
			return &u, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *Store) CreateUser(ctx context.Context, nu domain.NewUser) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.readUsers()
	for _, rec := range users {
		if rec.Email == nu.Email {
			return nil, storage.ErrDuplicateEmail
		}
		if rec.Username == nu.Username {
			return nil, storage.ErrDuplicateUsername
		}
	}

	now := time.Now().UTC()
	rec := userRecord{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Bio:          nu.Bio,
		Avatar:       nu.Avatar,
		IsAdmin:      nu.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	users = append(users, rec)
	if err := s.writeUsers(users); err != nil {
		return nil, err
	}

	u := s.toUser(rec)
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.readUsers()
	for i, rec := range users {
		if rec.ID != id {
			continue
		}

		if upd.Username != nil {
			for _, other := range users {
				if other.ID != id && other.Username == *upd.Username {
					return nil, storage.ErrDuplicateUsername
				}
			}
			users[i].Username = *upd.Username
		}
		if upd.Bio != nil {
			users[i].Bio = *upd.Bio
		}
		if upd.Avatar != nil {
			users[i].Avatar = *upd.Avatar
		}
		users[i].UpdatedAt = time.Now().UTC()

		if err := s.writeUsers(users); err != nil {
			return nil, err
		}

		u := s.toUser(users[i])
		return &u, nil
	}

	return nil, storage.ErrNotFound
}

func (s *Store) CurrentUserID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, currentUserFile))
	if err != nil {
		return "", nil
	}

	return strings.TrimSpace(string(data)), nil
}

func (s *Store) SetCurrentUserID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, currentUserFile)
	if id == "" {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	return os.WriteFile(path, []byte(id), 0o644)
}

func (s *Store) Blogs(ctx context.Context) ([]domain.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.readBlogs()
	byID := s.userIndex()

	blogs := make([]domain.Blog, 0, len(recs))
	for _, rec := range recs {
		blogs = append(blogs, s.toBlog(rec, byID))
	}

	return blogs, nil
}

func (s *Store) BlogByID(ctx context.Context, id string) (*domain.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.readBlogs() {
		if rec.ID == id {
			b := s.toBlog(rec, s.userIndex())
			return &b, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *Store) CreateBlog(ctx context.Context, nb domain.NewBlog) (*domain.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.userByID(nb.AuthorID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := blogRecord{
		ID:         uuid.NewString(),
		Title:      nb.Title,
		Content:    nb.Content,
		Excerpt:    nb.Excerpt,
		Category:   nb.Category,
		Tags:       nb.Tags,
		CoverImage: nb.CoverImage,
		AuthorID:   nb.AuthorID,
		Likes:      0,
		LikedBy:    []string{},
		Comments:   []commentRecord{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// New blogs land at the head: the listing is newest-first by construction.
	blogs := append([]blogRecord{rec}, s.readBlogs()...)
	if err := s.writeBlogs(blogs); err != nil {
		return nil, err
	}

	b := s.toBlog(rec, s.userIndex())
	return &b, nil
}

func (s *Store) UpdateBlog(ctx context.Context, id string, upd domain.BlogUpdate) (*domain.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blogs := s.readBlogs()
	for i, rec := range blogs {
		if rec.ID != id {
			continue
		}

		if upd.Title != nil {
			blogs[i].Title = *upd.Title
		}
		if upd.Content != nil {
			blogs[i].Content = *upd.Content
		}
		if upd.Excerpt != nil {
			blogs[i].Excerpt = *upd.Excerpt
		}
		if upd.Category != nil {
			blogs[i].Category = *upd.Category
		}
		if upd.Tags != nil {
			blogs[i].Tags = upd.Tags
		}
		if upd.CoverImage != nil {
			blogs[i].CoverImage = *upd.CoverImage
		}
		blogs[i].UpdatedAt = time.Now().UTC()

		if err := s.writeBlogs(blogs); err != nil {
			return nil, err
		}

		b := s.toBlog(blogs[i], s.userIndex())
		return &b, nil
	}

	return nil, storage.ErrNotFound
}

func (s *Store) DeleteBlog(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blogs := s.readBlogs()
	kept := blogs[:0:0]
	for _, rec := range blogs {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}

	if len(kept) == len(blogs) {
		return storage.ErrNotFound
	}

	return s.writeBlogs(kept)
}

// LikeBlog toggles the like and keeps the counter derived from the membership
// list so the two can never drift apart.
func (s *Store) LikeBlog(ctx context.Context, blogID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blogs := s.readBlogs()
	for i, rec := range blogs {
		if rec.ID != blogID {
			continue
		}

		liked := false
		for _, id := range rec.LikedBy {
			if id == userID {
				liked = true
				break
			}
		}

		if liked {
			kept := make([]string, 0, len(rec.LikedBy))
			for _, id := range rec.LikedBy {
				if id != userID {
					kept = append(kept, id)
				}
			}
			blogs[i].LikedBy = kept
		} else {
			blogs[i].LikedBy = append(rec.LikedBy, userID)
		}
		blogs[i].Likes = len(blogs[i].LikedBy)

		if err := s.writeBlogs(blogs); err != nil {
			return false, err
		}

		return !liked, nil
	}

	return false, storage.ErrNotFound
}

func (s *Store) AddComment(ctx context.Context, nc domain.NewComment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blogs := s.readBlogs()
	for i, rec := range blogs {
		if rec.ID != nc.BlogID {
			continue
		}

		c := commentRecord{
			ID:        uuid.NewString(),
			BlogID:    nc.BlogID,
			AuthorID:  nc.AuthorID,
			Content:   nc.Content,
			CreatedAt: time.Now().UTC(),
		}

		blogs[i].Comments = append(rec.Comments, c)
		if err := s.writeBlogs(blogs); err != nil {
			return nil, err
		}

		author := domain.User{ID: c.AuthorID}
		if u, ok := s.userIndex()[c.AuthorID]; ok {
			author = s.toUser(u)
		}

		return &domain.Comment{
			ID:        c.ID,
			BlogID:    c.BlogID,
			Content:   c.Content,
			Author:    author,
			CreatedAt: c.CreatedAt,
		}, nil
	}

	return nil, storage.ErrNotFound
}

// SearchBlogs matches a case-insensitive substring against title, content and
// each tag. No ranking; stored order is preserved.
func (s *Store) SearchBlogs(ctx context.Context, query string) ([]domain.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	byID := s.userIndex()

	matches := []domain.Blog{}
	for _, rec := range s.readBlogs() {
		if s.blogMatches(rec, q) {
			matches = append(matches, s.toBlog(rec, byID))
		}
	}

	return matches, nil
}

func (s *Store) blogMatches(rec blogRecord, q string) bool {
	if strings.Contains(strings.ToLower(rec.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(rec.Content), q) {
		return true
	}
	for _, tag := range rec.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}

	return false
}
