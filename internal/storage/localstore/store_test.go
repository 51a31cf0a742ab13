package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/blogspace/internal/domain"
	"github.com/sushihentaime/blogspace/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	return s
}

func createUser(t *testing.T, s *Store, username, email string) *domain.User {
	user, err := s.CreateUser(context.Background(), domain.NewUser{
		Username:     username,
		Email:        email,
		PasswordHash: []byte("not-a-real-hash"),
	})
	require.NoError(t, err)

	return user
}

func createBlog(t *testing.T, s *Store, authorID, title string, tags []string) *domain.Blog {
	blog, err := s.CreateBlog(context.Background(), domain.NewBlog{
		Title:    title,
		Content:  "<p>Some content</p>",
		Excerpt:  "Some content",
		Category: "General",
		Tags:     tags,
		AuthorID: authorID,
	})
	require.NoError(t, err)

	return blog
}

func TestCreateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createUser(t, s, "testuser", "testuser@example.com")
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "testuser", user.Username)
	assert.False(t, user.CreatedAt.IsZero())

	testCases := []struct {
		name     string
		username string
		email    string
		wantErr  error
	}{
		{
			name:     "duplicate email",
			username: "otheruser",
			email:    "testuser@example.com",
			wantErr:  storage.ErrDuplicateEmail,
		},
		{
			name:     "duplicate username",
			username: "testuser",
			email:    "other@example.com",
			wantErr:  storage.ErrDuplicateUsername,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateUser(ctx, domain.NewUser{Username: tc.username, Email: tc.email})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	// The failed writes must not have grown the collection.
	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createUser(t, s, "testuser", "testuser@example.com")

	byID, err := s.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, byID.Username)

	byEmail, err := s.UserByEmail(ctx, "testuser@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = s.UserByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createUser(t, s, "testuser", "testuser@example.com")
	other := createUser(t, s, "otheruser", "other@example.com")

	t.Run("partial update leaves other fields alone", func(t *testing.T) {
		bio := "Updated bio"
		updated, err := s.UpdateUser(ctx, user.ID, domain.UserUpdate{Bio: &bio})
		require.NoError(t, err)

		assert.Equal(t, "Updated bio", updated.Bio)
		assert.Equal(t, "testuser", updated.Username)
		assert.True(t, updated.UpdatedAt.After(user.UpdatedAt) || updated.UpdatedAt.Equal(user.UpdatedAt))
	})

	t.Run("duplicate username", func(t *testing.T) {
		username := other.Username
		_, err := s.UpdateUser(ctx, user.ID, domain.UserUpdate{Username: &username})
		assert.ErrorIs(t, err, storage.ErrDuplicateUsername)
	})

	t.Run("keeping your own username is not a duplicate", func(t *testing.T) {
		username := "testuser"
		_, err := s.UpdateUser(ctx, user.ID, domain.UserUpdate{Username: &username})
		assert.NoError(t, err)
	})

	t.Run("missing user", func(t *testing.T) {
		bio := "nope"
		_, err := s.UpdateUser(ctx, "no-such-id", domain.UserUpdate{Bio: &bio})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSessionPointer(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	ctx := context.Background()

	id, err := s.CurrentUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", id)

	require.NoError(t, s.SetCurrentUserID(ctx, "user-1"))

	// The pointer survives a restart: a fresh store over the same directory
	// reads it back.
	s2, err := New(dir)
	require.NoError(t, err)

	id, err = s2.CurrentUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	require.NoError(t, s2.SetCurrentUserID(ctx, ""))

	id, err = s2.CurrentUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", id)

	// Clearing an already-clear session is fine.
	assert.NoError(t, s2.SetCurrentUserID(ctx, ""))
}

func TestCreateBlogOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createUser(t, s, "testuser", "testuser@example.com")

	createBlog(t, s, user.ID, "First", nil)
	createBlog(t, s, user.ID, "Second", nil)
	createBlog(t, s, user.ID, "Third", nil)

	blogs, err := s.Blogs(ctx)
	require.NoError(t, err)
	require.Len(t, blogs, 3)

	// Newest first, by construction.
	assert.Equal(t, "Third", blogs[0].Title)
	assert.Equal(t, "Second", blogs[1].Title)
	assert.Equal(t, "First", blogs[2].Title)
}

func TestCreateBlogUnknownAuthor(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateBlog(context.Background(), domain.NewBlog{
		Title:    "Orphan",
		Content:  "No author",
		AuthorID: "no-such-user",
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBlogAssembly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	author := createUser(t, s, "author", "author@example.com")
	commenter := createUser(t, s, "commenter", "commenter@example.com")

	blog := createBlog(t, s, author.ID, "Test Blog", []string{"go"})

	_, err := s.AddComment(ctx, domain.NewComment{
		BlogID:   blog.ID,
		AuthorID: commenter.ID,
		Content:  "Nice one",
	})
	require.NoError(t, err)

	got, err := s.BlogByID(ctx, blog.ID)
	require.NoError(t, err)

	assert.Equal(t, "author", got.Author.Username)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "commenter", got.Comments[0].Author.Username)
	assert.Equal(t, blog.ID, got.Comments[0].BlogID)
	assert.Equal(t, []string{}, got.LikedBy)
	assert.Equal(t, 0, got.Likes)
}

func TestBlogAssemblyDanglingAuthor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createUser(t, s, "testuser", "testuser@example.com")
	blog := createBlog(t, s, user.ID, "Test Blog", nil)

	// Remove the author record behind the blog's back.
	require.NoError(t, os.Remove(filepath.Join(s.dir, usersFile)))

	got, err := s.BlogByID(ctx, blog.ID)
	require.NoError(t, err)

	// The aggregate still assembles, with an author carrying only its id.
	assert.Equal(t, user.ID, got.Author.ID)
	assert.Empty(t, got.Author.Username)
}

func TestUpdateBlog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createUser(t, s, "testuser", "testuser@example.com")
	blog := createBlog(t, s, user.ID, "Original", []string{"go"})

	title := "Updated"
	category := "Tech"
	updated, err := s.UpdateBlog(ctx, blog.ID, domain.BlogUpdate{
		Title:    &title,
		Category: &category,
	})
	require.NoError(t, err)

	assert.Equal(t, "Updated", updated.Title)
	assert.Equal(t, "Tech", updated.Category)
	assert.Equal(t, blog.Content, updated.Content)
	assert.Equal(t, []string{"go"}, updated.Tags)

	_, err = s.UpdateBlog(ctx, "no-such-id", domain.BlogUpdate{Title: &title})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteBlog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createUser(t, s, "testuser", "testuser@example.com")
	keep := createBlog(t, s, user.ID, "Keep", nil)
	drop := createBlog(t, s, user.ID, "Drop", nil)

	require.NoError(t, s.DeleteBlog(ctx, drop.ID))

	blogs, err := s.Blogs(ctx)
	require.NoError(t, err)
	require.Len(t, blogs, 1)
	assert.Equal(t, keep.ID, blogs[0].ID)

	// Deleting a missing id fails and leaves the collection untouched.
	assert.ErrorIs(t, s.DeleteBlog(ctx, drop.ID), storage.ErrNotFound)

	blogs, err = s.Blogs(ctx)
	require.NoError(t, err)
	assert.Len(t, blogs, 1)
}

func TestLikeBlogToggle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	author := createUser(t, s, "author", "author@example.com")
	fan := createUser(t, s, "fan", "fan@example.com")

	blog := createBlog(t, s, author.ID, "Test Blog", nil)

	liked, err := s.LikeBlog(ctx, blog.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	got, err := s.BlogByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)
	assert.Equal(t, []string{fan.ID}, got.LikedBy)

	// A second identical toggle restores the original state.
	liked, err = s.LikeBlog(ctx, blog.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	got, err = s.BlogByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Likes)
	assert.Equal(t, []string{}, got.LikedBy)

	// The counter always tracks the membership list.
	_, err = s.LikeBlog(ctx, blog.ID, fan.ID)
	require.NoError(t, err)
	_, err = s.LikeBlog(ctx, blog.ID, author.ID)
	require.NoError(t, err)

	got, err = s.BlogByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, len(got.LikedBy), got.Likes)
	assert.Equal(t, 2, got.Likes)

	_, err = s.LikeBlog(ctx, "no-such-id", fan.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAddCommentMissingBlog(t *testing.T) {
	s := newTestStore(t)

	user := createUser(t, s, "testuser", "testuser@example.com")

	_, err := s.AddComment(context.Background(), domain.NewComment{
		BlogID:   "no-such-id",
		AuthorID: user.ID,
		Content:  "Hello",
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSearchBlogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createUser(t, s, "testuser", "testuser@example.com")

	_, err := s.CreateBlog(ctx, domain.NewBlog{
		Title:    "Understanding Goroutines",
		Content:  "<p>Concurrency in Go</p>",
		Tags:     []string{"go", "concurrency"},
		AuthorID: user.ID,
	})
	require.NoError(t, err)

	_, err = s.CreateBlog(ctx, domain.NewBlog{
		Title:    "Gardening for Beginners",
		Content:  "<p>Plant the seeds</p>",
		Tags:     []string{"hobby"},
		AuthorID: user.ID,
	})
	require.NoError(t, err)

	testCases := []struct {
		name      string
		query     string
		wantTitle []string
	}{
		{
			name:      "title match is case-insensitive",
			query:     "GOROUTINES",
			wantTitle: []string{"Understanding Goroutines"},
		},
		{
			name:      "content match",
			query:     "seeds",
			wantTitle: []string{"Gardening for Beginners"},
		},
		{
			name:      "tag match",
			query:     "concurrency",
			wantTitle: []string{"Understanding Goroutines"},
		},
		{
			name:      "no match",
			query:     "kubernetes",
			wantTitle: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.SearchBlogs(ctx, tc.query)
			require.NoError(t, err)
			require.NotNil(t, got)

			titles := make([]string, 0, len(got))
			for _, b := range got {
				titles = append(titles, b.Title)
			}
			assert.Equal(t, tc.wantTitle, titles)
		})
	}
}

func TestMalformedFilesAreEmptyCollections(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, usersFile), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, blogsFile), []byte("{not json"), 0o644))

	ctx := context.Background()

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	blogs, err := s.Blogs(ctx)
	require.NoError(t, err)
	assert.Empty(t, blogs)

	// The store recovers: the next write replaces the malformed slot.
	createUser(t, s, "testuser", "testuser@example.com")

	users, err = s.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx))

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	blogs, err := s.Blogs(ctx)
	require.NoError(t, err)
	require.Len(t, blogs, 2)

	// Seeded content is fully assembled.
	assert.Equal(t, "Welcome to BlogSpace", blogs[0].Title)
	assert.NotEmpty(t, blogs[0].Author.Username)
	require.Len(t, blogs[0].Comments, 1)

	// Seeding again never overwrites.
	require.NoError(t, s.Seed(ctx))

	users, err = s.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	blogs, err = s.Blogs(ctx)
	require.NoError(t, err)
	assert.Len(t, blogs, 2)
}
