package domain

import "time"

// User is a registered account. The password hash never leaves the process
// through JSON.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Bio          string    `json:"bio,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Blog is the flattened aggregate handed to callers: the post itself with its
// author and comments already assembled, regardless of which backend produced
// it. Likes always equals len(LikedBy).
type Blog struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Excerpt    string    `json:"excerpt"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	CoverImage string    `json:"cover_image,omitempty"`
	Author     User      `json:"author"`
	Likes      int       `json:"likes"`
	LikedBy    []string  `json:"liked_by"`
	Comments   []Comment `json:"comments"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Comment belongs to exactly one blog and is only ever listed inside it.
type Comment struct {
	ID        string    `json:"id"`
	BlogID    string    `json:"blog_id"`
	Content   string    `json:"content"`
	Author    User      `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

type NewUser struct {
	Username     string
	Email        string
	PasswordHash []byte
	Bio          string
	Avatar       string
	IsAdmin      bool
}

type NewBlog struct {
	Title      string
	Content    string
	Excerpt    string
	Category   string
	Tags       []string
	CoverImage string
	AuthorID   string
}

type NewComment struct {
	BlogID   string
	AuthorID string
	Content  string
}

// UserUpdate and BlogUpdate are partial updates. A nil field means "leave
// unchanged".
type UserUpdate struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	Avatar   *string `json:"avatar"`
}

type BlogUpdate struct {
	Title      *string  `json:"title"`
	Content    *string  `json:"content"`
	Excerpt    *string  `json:"excerpt"`
	Category   *string  `json:"category"`
	Tags       []string `json:"tags"`
	CoverImage *string  `json:"cover_image"`
}
