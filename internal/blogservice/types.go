package blogservice

import (
	"sync"

	"github.com/sushihentaime/blogspace/internal/common"
	"github.com/sushihentaime/blogspace/internal/domain"
	"github.com/sushihentaime/blogspace/internal/storage"
)

// BlogService is the content facade. It keeps a newest-first in-memory mirror
// of the blog aggregates: refreshed wholesale by LoadBlogs and patched
// incrementally after each mutation the backend has confirmed, never before.
// Single-blog reads go through the cache.
type BlogService struct {
	store storage.Storage
	c     *common.Cache

	mu     sync.Mutex
	blogs  []domain.Blog
	loaded bool
}

func NewBlogService(store storage.Storage, c *common.Cache) *BlogService {
	return &BlogService{store: store, c: c}
}

type CreateBlogRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Excerpt    string   `json:"excerpt"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	CoverImage string   `json:"cover_image"`
	AuthorID   string   `json:"author_id"`
}

type UpdateBlogRequest struct {
	Title      *string  `json:"title"`
	Content    *string  `json:"content"`
	Excerpt    *string  `json:"excerpt"`
	Category   *string  `json:"category"`
	Tags       []string `json:"tags"`
	CoverImage *string  `json:"cover_image"`
}
