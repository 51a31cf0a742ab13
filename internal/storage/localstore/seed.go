package localstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Seed populates the users and blogs slots with fixture content when no prior
// data exists for that slot. It never overwrites existing data, so calling it
// on every startup is safe. The sample accounts carry no credentials and are
// browse-only.
func (s *Store) Seed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	users := s.readUsers()
	if len(users) == 0 {
		users = []userRecord{
			{
				ID:        uuid.NewString(),
				Username:  "john_doe",
				Email:     "john@example.com",
				Bio:       "Tech enthusiast and blogger",
				IsAdmin:   true,
				CreatedAt: now,
				UpdatedAt: now,
			},
			{
				ID:        uuid.NewString(),
				Username:  "jane_smith",
				Email:     "jane@example.com",
				Bio:       "Writer and designer",
				CreatedAt: now,
				UpdatedAt: now,
			},
		}

		if err := s.writeUsers(users); err != nil {
			return err
		}
	}

	blogs := s.readBlogs()
	if len(blogs) == 0 {
		welcome := blogRecord{
			ID:       uuid.NewString(),
			Title:    "Welcome to BlogSpace",
			Content:  "<p>This is a fast, reliable blogging platform.</p><ul><li>Rich text editing</li><li>Like and comment system</li><li>User profiles</li></ul>",
			Excerpt:  "A fast, reliable blogging platform",
			Category: "Technology",
			Tags:     []string{"welcome", "blogging"},
			AuthorID: users[0].ID,
			LikedBy:  []string{},
			Comments: []commentRecord{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		welcome.Comments = append(welcome.Comments, commentRecord{
			ID:        uuid.NewString(),
			BlogID:    welcome.ID,
			AuthorID:  users[len(users)-1].ID,
			Content:   "Great platform! Very fast and reliable.",
			CreatedAt: now,
		})

		performance := blogRecord{
			ID:        uuid.NewString(),
			Title:     "Building Fast Web Applications",
			Content:   "<p>Speed is crucial for user experience.</p><h3>1. Minimize Dependencies</h3><p>Use only what you need.</p><h3>2. Optimize Images</h3><p>Use compressed images and modern formats.</p>",
			Excerpt:   "Key principles for building lightning-fast web applications",
			Category:  "Development",
			Tags:      []string{"performance", "web-development", "optimization"},
			AuthorID:  users[len(users)-1].ID,
			LikedBy:   []string{},
			Comments:  []commentRecord{},
			CreatedAt: now.Add(-24 * time.Hour),
			UpdatedAt: now.Add(-24 * time.Hour),
		}

		if err := s.writeBlogs([]blogRecord{welcome, performance}); err != nil {
			return err
		}
	}

	return nil
}
