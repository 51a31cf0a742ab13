package blogservice

import (
	"context"

	"github.com/sushihentaime/blogspace/internal/common"
	"github.com/sushihentaime/blogspace/internal/domain"
)

// LoadBlogs refreshes the mirror wholesale from the backing store and returns
// the new listing, newest first.
func (s *BlogService) LoadBlogs(ctx context.Context) ([]domain.Blog, error) {
	blogs, err := s.store.Blogs(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.blogs = blogs
	s.loaded = true
	s.mu.Unlock()

	return s.Blogs(ctx)
}

// Blogs returns the mirrored listing, loading it on first use.
func (s *BlogService) Blogs(ctx context.Context) ([]domain.Blog, error) {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()

	if !loaded {
		return s.LoadBlogs(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Blog, len(s.blogs))
	copy(out, s.blogs)
	return out, nil
}

// GetBlog reads a single aggregate through the cache.
func (s *BlogService) GetBlog(ctx context.Context, id string) (*domain.Blog, error) {
	if cached, ok := s.c.Get(common.CacheKeyBlog(id)); ok {
		if blog, ok := cached.(*domain.Blog); ok {
			return blog, nil
		}
	}

	blog, err := s.store.BlogByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.c.Set(common.CacheKeyBlog(id), blog)
	return blog, nil
}

// CreateBlog validates and sanitizes the post, derives the excerpt when none
// was supplied, and prepends the stored aggregate to the mirror once the
// backend has confirmed the write.
func (s *BlogService) CreateBlog(ctx context.Context, req *CreateBlogRequest) (*domain.Blog, error) {
	v := common.NewValidator()
	validateTitle(v, req.Title)
	validateContent(v, req.Content)
	validateID(v, req.AuthorID, "author_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	content := sanitizeHTML(req.Content)

	excerpt := req.Excerpt
	if excerpt == "" {
		excerpt = deriveExcerpt(content)
	}

	category := req.Category
	if category == "" {
		category = "General"
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	blog, err := s.store.CreateBlog(ctx, domain.NewBlog{
		Title:      req.Title,
		Content:    content,
		Excerpt:    excerpt,
		Category:   category,
		Tags:       tags,
		CoverImage: req.CoverImage,
		AuthorID:   req.AuthorID,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.loaded {
		s.blogs = append([]domain.Blog{*blog}, s.blogs...)
	}
	s.mu.Unlock()

	return blog, nil
}

func (s *BlogService) UpdateBlog(ctx context.Context, id string, req *UpdateBlogRequest) (*domain.Blog, error) {
	v := common.NewValidator()
	validateID(v, id, "id")
	if req.Title != nil {
		validateTitle(v, *req.Title)
	}
	if req.Content != nil {
		validateContent(v, *req.Content)
	}
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if req.Content != nil {
		clean := sanitizeHTML(*req.Content)
		req.Content = &clean
	}

	blog, err := s.store.UpdateBlog(ctx, id, domain.BlogUpdate{
		Title:      req.Title,
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		Category:   req.Category,
		Tags:       req.Tags,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		return nil, err
	}

	s.patchBlog(*blog)
	s.c.Delete(common.CacheKeyBlog(id))

	return blog, nil
}

func (s *BlogService) DeleteBlog(ctx context.Context, id string) error {
	v := common.NewValidator()
	validateID(v, id, "id")
	if !v.Valid() {
		return v.ValidationError()
	}

	if err := s.store.DeleteBlog(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.blogs[:0:0]
	for _, b := range s.blogs {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	s.blogs = kept
	s.mu.Unlock()

	s.c.Delete(common.CacheKeyBlog(id))
	return nil
}

// LikeBlog toggles and then patches the one mirror entry to match the
// backend's reported result, so a second identical toggle restores the
// original count and membership.
func (s *BlogService) LikeBlog(ctx context.Context, blogID, userID string) (bool, error) {
	v := common.NewValidator()
	validateID(v, blogID, "blog_id")
	validateID(v, userID, "user_id")
	if !v.Valid() {
		return false, v.ValidationError()
	}

	liked, err := s.store.LikeBlog(ctx, blogID, userID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	for i := range s.blogs {
		if s.blogs[i].ID != blogID {
			continue
		}

		if liked {
			s.blogs[i].LikedBy = append(s.blogs[i].LikedBy, userID)
		} else {
			kept := make([]string, 0, len(s.blogs[i].LikedBy))
			for _, id := range s.blogs[i].LikedBy {
				if id != userID {
					kept = append(kept, id)
				}
			}
			s.blogs[i].LikedBy = kept
		}
		s.blogs[i].Likes = len(s.blogs[i].LikedBy)
		break
	}
	s.mu.Unlock()

	s.c.Delete(common.CacheKeyBlog(blogID))
	return liked, nil
}

// AddComment appends the backend-returned comment to the matching mirror
// entry.
func (s *BlogService) AddComment(ctx context.Context, blogID, authorID, content string) (*domain.Comment, error) {
	v := common.NewValidator()
	validateID(v, blogID, "blog_id")
	validateID(v, authorID, "author_id")
	validateCommentContent(v, content)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	comment, err := s.store.AddComment(ctx, domain.NewComment{
		BlogID:   blogID,
		AuthorID: authorID,
		Content:  content,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for i := range s.blogs {
		if s.blogs[i].ID == blogID {
			s.blogs[i].Comments = append(s.blogs[i].Comments, *comment)
			break
		}
	}
	s.mu.Unlock()

	s.c.Delete(common.CacheKeyBlog(blogID))
	return comment, nil
}

// SearchBlogs always round-trips to the backing store: the mirror may be
// stale relative to backend state.
func (s *BlogService) SearchBlogs(ctx context.Context, query string) ([]domain.Blog, error) {
	v := common.NewValidator()
	v.Check(query != "", "query", "must be provided")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	return s.store.SearchBlogs(ctx, query)
}

// FilterByCategory is a pure in-memory predicate over the mirror. An empty
// category or "All" returns the whole listing.
func (s *BlogService) FilterByCategory(category string) []domain.Blog {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category == "" || category == "All" {
		out := make([]domain.Blog, len(s.blogs))
		copy(out, s.blogs)
		return out
	}

	out := []domain.Blog{}
	for _, b := range s.blogs {
		if b.Category == category {
			out = append(out, b)
		}
	}

	return out
}

func (s *BlogService) patchBlog(blog domain.Blog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.blogs {
		if s.blogs[i].ID == blog.ID {
			s.blogs[i] = blog
			return
		}
	}
}
