package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/lib/pq"

	"github.com/sushihentaime/blogspace/internal/domain"
	"github.com/sushihentaime/blogspace/internal/storage"
)

// Store is the remote backend: the same logical operations mapped onto the
// normalized schema (profiles, blogs, blog_likes, comments). Fetches assemble
// the aggregate by joining authors and comments; the likes count is always
// computed from the blog_likes relation, never read from the denormalized
// column.
type Store struct {
	db *sql.DB

	// The session pointer is client-local state with no relation in the
	// remote schema, so it lives in memory here.
	mu      sync.Mutex
	current string
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation reports whether err is a Postgres unique constraint error
// for the named constraint.
func uniqueViolation(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == name
	}

	return false
}

func foreignKeyViolation(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503" && pqErr.Constraint == name
	}

	return false
}

const userColumns = `id, username, email, password_hash, bio, avatar_url, is_admin, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	var avatar sql.NullString

	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Bio, &avatar, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.Avatar = avatar.String
	return &u, nil
}

func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM profiles
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	return users, rows.Err()
}

func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM profiles
		WHERE id = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, storage.ErrNotFound
		default:
			return nil, err
		}
	}

	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM profiles
		WHERE email = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, storage.ErrNotFound
		default:
			return nil, err
		}
	}

	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, nu domain.NewUser) (*domain.User, error) {
	query := `
		INSERT INTO profiles (username, email, password_hash, bio, avatar_url, is_admin)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, query, nu.Username, nu.Email, nu.PasswordHash, nu.Bio, nu.Avatar, nu.IsAdmin)

	u, err := scanUser(row)
	if err != nil {
		switch {
		case uniqueViolation(err, "profiles_email_key"):
			return nil, storage.ErrDuplicateEmail
		case uniqueViolation(err, "profiles_username_key"):
			return nil, storage.ErrDuplicateUsername
		default:
			return nil, err
		}
	}

	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	query := `
		UPDATE profiles
		SET username = COALESCE($1, username),
		    bio = COALESCE($2, bio),
		    avatar_url = COALESCE($3, avatar_url),
		    updated_at = now()
		WHERE id = $4
		RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, query, upd.Username, upd.Bio, upd.Avatar, id)

	u, err := scanUser(row)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, storage.ErrNotFound
		case uniqueViolation(err, "profiles_username_key"):
			return nil, storage.ErrDuplicateUsername
		default:
			return nil, err
		}
	}

	return u, nil
}

func (s *Store) CurrentUserID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current, nil
}

func (s *Store) SetCurrentUserID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = id
	return nil
}

// blogQuery joins the author profile and computes the likes count and the
// likedBy list from the blog_likes relation in one round trip.
const blogQuery = `
	SELECT b.id, b.title, b.content, b.excerpt, b.category, b.tags, b.cover_image_url,
	       b.created_at, b.updated_at,
	       u.id, u.username, u.email, u.bio, u.avatar_url, u.is_admin, u.created_at, u.updated_at,
	       (SELECT COUNT(*) FROM blog_likes l WHERE l.blog_id = b.id),
	       COALESCE((SELECT array_agg(l.user_id::text ORDER BY l.created_at) FROM blog_likes l WHERE l.blog_id = b.id), '{}')
	FROM blogs b
	JOIN profiles u ON b.author_id = u.id`

func scanBlog(row interface{ Scan(...any) error }) (*domain.Blog, error) {
	var b domain.Blog
	var cover, avatar sql.NullString

	err := row.Scan(
		&b.ID, &b.Title, &b.Content, &b.Excerpt, &b.Category, pq.Array(&b.Tags), &cover,
		&b.CreatedAt, &b.UpdatedAt,
		&b.Author.ID, &b.Author.Username, &b.Author.Email, &b.Author.Bio, &avatar, &b.Author.IsAdmin, &b.Author.CreatedAt, &b.Author.UpdatedAt,
		&b.Likes, pq.Array(&b.LikedBy),
	)
	if err != nil {
		return nil, err
	}

	b.CoverImage = cover.String
	b.Author.Avatar = avatar.String
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if b.LikedBy == nil {
		b.LikedBy = []string{}
	}
	b.Comments = []domain.Comment{}

	return &b, nil
}

// commentsForBlogs fetches the comments of the given blogs with their authors
// joined one level deep, oldest first, grouped by blog id.
func (s *Store) commentsForBlogs(ctx context.Context, blogIDs []string) (map[string][]domain.Comment, error) {
	query := `
		SELECT c.id, c.blog_id, c.content, c.created_at,
		       u.id, u.username, u.avatar_url, u.created_at
		FROM comments c
		JOIN profiles u ON c.author_id = u.id
		WHERE c.blog_id = ANY($1)
		ORDER BY c.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(blogIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make(map[string][]domain.Comment)
	for rows.Next() {
		var c domain.Comment
		var avatar sql.NullString

		err := rows.Scan(&c.ID, &c.BlogID, &c.Content, &c.CreatedAt, &c.Author.ID, &c.Author.Username, &avatar, &c.Author.CreatedAt)
		if err != nil {
			return nil, err
		}

		c.Author.Avatar = avatar.String
		comments[c.BlogID] = append(comments[c.BlogID], c)
	}

	return comments, rows.Err()
}

func (s *Store) Blogs(ctx context.Context) ([]domain.Blog, error) {
	query := blogQuery + `
		WHERE b.published = true
		ORDER BY b.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []domain.Blog{}
	ids := []string{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, *b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return blogs, nil
	}

	comments, err := s.commentsForBlogs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range blogs {
		if cs, ok := comments[blogs[i].ID]; ok {
			blogs[i].Comments = cs
		}
	}

	return blogs, nil
}

func (s *Store) BlogByID(ctx context.Context, id string) (*domain.Blog, error) {
	query := blogQuery + `
		WHERE b.id = $1`

	b, err := scanBlog(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, storage.ErrNotFound
		default:
			return nil, err
		}
	}

	comments, err := s.commentsForBlogs(ctx, []string{b.ID})
	if err != nil {
		return nil, err
	}
	if cs, ok := comments[b.ID]; ok {
		b.Comments = cs
	}

	return b, nil
}

func (s *Store) CreateBlog(ctx context.Context, nb domain.NewBlog) (*domain.Blog, error) {
	query := `
		INSERT INTO blogs (title, content, excerpt, category, tags, cover_image_url, author_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		RETURNING id`

	var id string
	err := s.db.QueryRowContext(ctx, query, nb.Title, nb.Content, nb.Excerpt, nb.Category, pq.Array(nb.Tags), nb.CoverImage, nb.AuthorID).Scan(&id)
	if err != nil {
		switch {
		case foreignKeyViolation(err, "blogs_author_id_fkey"):
			return nil, storage.ErrNotFound
		default:
			return nil, err
		}
	}

	return s.BlogByID(ctx, id)
}

func (s *Store) UpdateBlog(ctx context.Context, id string, upd domain.BlogUpdate) (*domain.Blog, error) {
	query := `
		UPDATE blogs
		SET title = COALESCE($1, title),
		    content = COALESCE($2, content),
		    excerpt = COALESCE($3, excerpt),
		    category = COALESCE($4, category),
		    tags = COALESCE($5, tags),
		    cover_image_url = COALESCE($6, cover_image_url),
		    updated_at = now()
		WHERE id = $7
		RETURNING id`

	var tags any
	if upd.Tags != nil {
		tags = pq.Array(upd.Tags)
	}

	err := s.db.QueryRowContext(ctx, query, upd.Title, upd.Content, upd.Excerpt, upd.Category, tags, upd.CoverImage, id).Scan(&id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, storage.ErrNotFound
		default:
			return nil, err
		}
	}

	return s.BlogByID(ctx, id)
}

func (s *Store) DeleteBlog(ctx context.Context, id string) error {
	query := `
		DELETE FROM blogs
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return storage.ErrNotFound
		default:
			return fmt.Errorf("expected 1 row to be affected, got %d", rows)
		}
	}

	return nil
}

// LikeBlog toggles in a single transaction: a conditional insert guarded by
// the unique (blog_id, user_id) constraint decides the direction, and the
// denormalized counter moves in the same transaction so concurrent togglers
// cannot leave the join table and the column inconsistent.
func (s *Store) LikeBlog(ctx context.Context, blogID, userID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO blog_likes (blog_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (blog_id, user_id) DO NOTHING`, blogID, userID)
	if err != nil {
		switch {
		case foreignKeyViolation(err, "blog_likes_blog_id_fkey"):
			return false, storage.ErrNotFound
		case foreignKeyViolation(err, "blog_likes_user_id_fkey"):
			return false, storage.ErrNotFound
		default:
			return false, err
		}
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	liked := inserted == 1
	if liked {
		_, err = tx.ExecContext(ctx, `
			UPDATE blogs
			SET likes_count = likes_count + 1
			WHERE id = $1`, blogID)
	} else {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM blog_likes
			WHERE blog_id = $1 AND user_id = $2`, blogID, userID)
		if err == nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE blogs
				SET likes_count = GREATEST(likes_count - 1, 0)
				WHERE id = $1`, blogID)
		}
	}
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	return liked, nil
}

func (s *Store) AddComment(ctx context.Context, nc domain.NewComment) (*domain.Comment, error) {
	query := `
		INSERT INTO comments (content, blog_id, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, blog_id, content, created_at`

	var c domain.Comment
	err := s.db.QueryRowContext(ctx, query, nc.Content, nc.BlogID, nc.AuthorID).Scan(&c.ID, &c.BlogID, &c.Content, &c.CreatedAt)
	if err != nil {
		switch {
		case foreignKeyViolation(err, "comments_blog_id_fkey"):
			return nil, storage.ErrNotFound
		case foreignKeyViolation(err, "comments_author_id_fkey"):
			return nil, storage.ErrNotFound
		default:
			return nil, err
		}
	}

	author, err := s.UserByID(ctx, nc.AuthorID)
	if err != nil {
		return nil, err
	}
	c.Author = *author

	return &c, nil
}

// SearchBlogs delegates matching to the database: ILIKE substring on title
// and content, exact element membership on tags. Comments are not joined into
// search results.
func (s *Store) SearchBlogs(ctx context.Context, query string) ([]domain.Blog, error) {
	q := blogQuery + `
		WHERE b.published = true
		  AND (b.title ILIKE '%' || $1 || '%' OR b.content ILIKE '%' || $1 || '%' OR b.tags @> ARRAY[$1]::text[])
		ORDER BY b.created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []domain.Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, *b)
	}

	return blogs, rows.Err()
}
