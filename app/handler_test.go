package main

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/blogspace/internal/domain"
)

func registerTestUser(t *testing.T, ts *testServer, username, email string) map[string]any {
	status, _, body := ts.post(t, "/v1/users/register", map[string]any{
		"username": username,
		"email":    email,
		"password": "Test_1234!",
	})
	require.Equal(t, http.StatusCreated, status)

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)

	return user
}

func createTestBlog(t *testing.T, ts *testServer, title string) map[string]any {
	status, _, body := ts.post(t, "/v1/blogs", map[string]any{
		"title":    title,
		"content":  "<p>This is a test blog</p>",
		"category": "Tech",
		"tags":     []string{"go", "testing"},
	})
	require.Equal(t, http.StatusCreated, status)

	blog, ok := body["blog"].(map[string]any)
	require.True(t, ok)

	return blog
}

func TestRegisterUserHandler(t *testing.T) {
	testCases := []struct {
		name       string
		payload    any
		setup      func(t *testing.T, ts *testServer)
		wantStatus int
		wantBody   envelope
	}{
		{
			name: "Valid Request",
			payload: map[string]any{
				"username": "testuser",
				"email":    "testuser@example.com",
				"password": "Test_1234!",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "Invalid Email",
			payload: map[string]any{
				"username": "testuser",
				"email":    "test",
				"password": "Test_1234!",
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   envelope{"error": map[string]string{"email": "must be a valid email address"}},
		},
		{
			name: "Duplicate Email",
			payload: map[string]any{
				"username": "user1",
				"email":    "testuser@example.com",
				"password": "Test_1234!",
			},
			setup: func(t *testing.T, ts *testServer) {
				registerTestUser(t, ts, "testuser", "testuser@example.com")
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   envelope{"error": map[string]string{"email": "a user with this email address already exists"}},
		},
		{
			name: "Duplicate Username",
			payload: map[string]any{
				"username": "testuser",
				"email":    "testuser1@example.com",
				"password": "Test_1234!",
			},
			setup: func(t *testing.T, ts *testServer) {
				registerTestUser(t, ts, "testuser", "testuser@example.com")
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   envelope{"error": map[string]string{"username": "this username is already taken"}},
		},
		{
			name: "Mixed Case Email Is Normalized",
			payload: map[string]any{
				"username": "user1",
				"email":    "TestUser@Example.COM",
				"password": "Test_1234!",
			},
			setup: func(t *testing.T, ts *testServer) {
				registerTestUser(t, ts, "testuser", "testuser@example.com")
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   envelope{"error": map[string]string{"email": "a user with this email address already exists"}},
		},
		{
			name: "Invalid Password",
			payload: map[string]any{
				"username": "testuser",
				"email":    "testuser@example.com",
				"password": "password",
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   envelope{"error": map[string]string{"password": "must be between 8 and 72 characters long and contain at least one uppercase letter, one lowercase letter, one number, and one symbol"}},
		},
		{
			name:       "Empty Payload",
			payload:    map[string]any{},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   envelope{"error": map[string]string{"email": "must be provided", "password": "must be provided", "username": "must be provided"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApplication(t)
			ts := newTestServer(t, app.routes())

			if tc.setup != nil {
				tc.setup(t, ts)
			}

			status, _, gotBody := ts.post(t, "/v1/users/register", tc.payload)
			assert.Equal(t, tc.wantStatus, status)
			if tc.wantBody != nil {
				assert.JSONEq(t, tc.wantBody.JSON(), gotBody.JSON())
			}
		})
	}
}

func TestLoginUserHandler(t *testing.T) {
	testCases := []struct {
		name       string
		payload    any
		wantStatus int
		wantBody   envelope
	}{
		{
			name: "Valid Request",
			payload: map[string]any{
				"email":    "testuser@example.com",
				"password": "Test_1234!",
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Unknown Email",
			payload: map[string]any{
				"email":    "nobody@example.com",
				"password": "Test_1234!",
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   envelope{"error": "invalid authentication credentials"},
		},
		{
			name: "Wrong Password",
			payload: map[string]any{
				"email":    "testuser@example.com",
				"password": "Test1234!",
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   envelope{"error": "invalid authentication credentials"},
		},
		{
			name:       "Empty Payload",
			payload:    map[string]any{},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody: envelope{"error": map[string]string{
				"email":    "must be provided",
				"password": "must be provided",
			}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApplication(t)
			ts := newTestServer(t, app.routes())

			registerTestUser(t, ts, "testuser", "testuser@example.com")

			status, _, _ := ts.post(t, "/v1/users/logout", nil)
			require.Equal(t, http.StatusOK, status)

			status, _, gotBody := ts.post(t, "/v1/users/login", tc.payload)
			assert.Equal(t, tc.wantStatus, status)
			if tc.wantBody != nil {
				assert.JSONEq(t, tc.wantBody.JSON(), gotBody.JSON())
			}
		})
	}
}

func TestLogoutUserHandler(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	registerTestUser(t, ts, "testuser", "testuser@example.com")

	status, _, gotBody := ts.post(t, "/v1/users/logout", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, envelope{"message": "user logged out"}.JSON(), gotBody.JSON())

	// Logging out twice is fine.
	status, _, _ = ts.post(t, "/v1/users/logout", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestUpdateProfileHandler(t *testing.T) {
	t.Run("update bio and avatar", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		registerTestUser(t, ts, "testuser", "testuser@example.com")

		status, _, gotBody := ts.patch(t, "/v1/users/me", map[string]any{
			"bio":    "Gopher at large",
			"avatar": "https://example.com/avatar.png",
		})
		assert.Equal(t, http.StatusOK, status)

		user, ok := gotBody["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Gopher at large", user["bio"])
		assert.Equal(t, "https://example.com/avatar.png", user["avatar"])
		assert.Equal(t, "testuser", user["username"])
	})

	t.Run("duplicate username", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		registerTestUser(t, ts, "firstuser", "first@example.com")
		registerTestUser(t, ts, "seconduser", "second@example.com")

		status, _, gotBody := ts.patch(t, "/v1/users/me", map[string]any{
			"username": "firstuser",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.JSONEq(t, envelope{"error": map[string]string{"username": "this username is already taken"}}.JSON(), gotBody.JSON())
	})

	t.Run("anonymous", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		status, _, _ := ts.patch(t, "/v1/users/me", map[string]any{"bio": "nope"})
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestCreateBlogHandler(t *testing.T) {
	testCases := []struct {
		name       string
		payload    any
		wantStatus int
		wantBody   envelope
	}{
		{
			name: "Valid Request",
			payload: map[string]any{
				"title":   "Test Blog",
				"content": "This is a test blog",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "Invalid Title",
			payload: map[string]any{
				"title":   "",
				"content": "This is a test blog",
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   envelope{"error": map[string]string{"title": "must be provided"}},
		},
		{
			name: "Invalid Content",
			payload: map[string]any{
				"title":   "Test Blog",
				"content": "",
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   envelope{"error": map[string]string{"content": "must be provided"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApplication(t)
			ts := newTestServer(t, app.routes())

			registerTestUser(t, ts, "testuser", "testuser@example.com")

			status, _, gotBody := ts.post(t, "/v1/blogs", tc.payload)
			assert.Equal(t, tc.wantStatus, status)
			if tc.wantBody != nil {
				assert.JSONEq(t, tc.wantBody.JSON(), gotBody.JSON())
			}
		})
	}

	t.Run("No Session", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		status, _, gotBody := ts.post(t, "/v1/blogs", map[string]any{
			"title":   "Test Blog",
			"content": "This is a test blog",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.JSONEq(t, envelope{"error": "you must be signed in to access this resource"}.JSON(), gotBody.JSON())
	})

	t.Run("Defaults Applied", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		registerTestUser(t, ts, "testuser", "testuser@example.com")

		status, _, gotBody := ts.post(t, "/v1/blogs", map[string]any{
			"title":   "Test Blog",
			"content": "<p>Hello world</p><script>alert(1)</script>",
		})
		require.Equal(t, http.StatusCreated, status)

		blog, ok := gotBody["blog"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "General", blog["category"])
		assert.NotContains(t, blog["content"], "<script>")
		assert.NotEmpty(t, blog["excerpt"])
	})
}

func TestGetBlogHandler(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	registerTestUser(t, ts, "testuser", "testuser@example.com")
	blog := createTestBlog(t, ts, "Test Blog")

	t.Run("existing blog", func(t *testing.T) {
		status, _, gotBody := ts.get(t, fmt.Sprintf("/v1/blogs/%s", blog["id"]))
		assert.Equal(t, http.StatusOK, status)

		got, ok := gotBody["blog"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Test Blog", got["title"])
	})

	t.Run("missing blog", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/v1/blogs/no-such-id")
		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, envelope{"error": "resource not found"}.JSON(), gotBody.JSON())
	})

	t.Run("anonymous read", func(t *testing.T) {
		status, _, _ := ts.post(t, "/v1/users/logout", nil)
		require.Equal(t, http.StatusOK, status)

		status, _, _ = ts.get(t, fmt.Sprintf("/v1/blogs/%s", blog["id"]))
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestUpdateBlogHandler(t *testing.T) {
	t.Run("owner updates", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		registerTestUser(t, ts, "testuser", "testuser@example.com")
		blog := createTestBlog(t, ts, "Test Blog")

		status, _, gotBody := ts.patch(t, fmt.Sprintf("/v1/blogs/%s", blog["id"]), map[string]any{
			"title": "Updated Blog",
		})
		assert.Equal(t, http.StatusOK, status)

		got, ok := gotBody["blog"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Updated Blog", got["title"])
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		registerTestUser(t, ts, "author", "author@example.com")
		blog := createTestBlog(t, ts, "Test Blog")

		// Registering switches the session to the second account.
		registerTestUser(t, ts, "intruder", "intruder@example.com")

		status, _, gotBody := ts.patch(t, fmt.Sprintf("/v1/blogs/%s", blog["id"]), map[string]any{
			"title": "Hijacked",
		})
		assert.Equal(t, http.StatusForbidden, status)
		assert.JSONEq(t, envelope{"error": "you do not have permission to access this resource"}.JSON(), gotBody.JSON())
	})

	t.Run("missing blog", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		registerTestUser(t, ts, "testuser", "testuser@example.com")

		status, _, gotBody := ts.patch(t, "/v1/blogs/no-such-id", map[string]any{
			"title": "Updated Blog",
		})
		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, envelope{"error": "resource not found"}.JSON(), gotBody.JSON())
	})
}

func TestDeleteBlogHandler(t *testing.T) {
	t.Run("owner deletes", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		registerTestUser(t, ts, "testuser", "testuser@example.com")
		blog := createTestBlog(t, ts, "Test Blog")

		status, _, gotBody := ts.delete(t, fmt.Sprintf("/v1/blogs/%s", blog["id"]))
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, envelope{"message": "blog deleted"}.JSON(), gotBody.JSON())

		status, _, _ = ts.get(t, fmt.Sprintf("/v1/blogs/%s", blog["id"]))
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		registerTestUser(t, ts, "author", "author@example.com")
		blog := createTestBlog(t, ts, "Test Blog")

		registerTestUser(t, ts, "intruder", "intruder@example.com")

		status, _, _ := ts.delete(t, fmt.Sprintf("/v1/blogs/%s", blog["id"]))
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("missing blog", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		registerTestUser(t, ts, "testuser", "testuser@example.com")

		status, _, _ := ts.delete(t, "/v1/blogs/no-such-id")
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestLikeBlogHandler(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	registerTestUser(t, ts, "testuser", "testuser@example.com")
	blog := createTestBlog(t, ts, "Test Blog")

	path := fmt.Sprintf("/v1/blogs/%s/like", blog["id"])

	status, _, gotBody := ts.post(t, path, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, gotBody["liked"])

	// The same user toggling again removes the like.
	status, _, gotBody = ts.post(t, path, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, gotBody["liked"])

	status, _, gotBody = ts.get(t, fmt.Sprintf("/v1/blogs/%s", blog["id"]))
	require.Equal(t, http.StatusOK, status)
	got, ok := gotBody["blog"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), got["likes"])
}

func TestAddCommentHandler(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	registerTestUser(t, ts, "testuser", "testuser@example.com")
	blog := createTestBlog(t, ts, "Test Blog")

	status, _, gotBody := ts.post(t, fmt.Sprintf("/v1/blogs/%s/comments", blog["id"]), map[string]any{
		"content": "Great post!",
	})
	assert.Equal(t, http.StatusCreated, status)

	comment, ok := gotBody["comment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Great post!", comment["content"])

	status, _, gotBody = ts.get(t, fmt.Sprintf("/v1/blogs/%s", blog["id"]))
	require.Equal(t, http.StatusOK, status)
	got, ok := gotBody["blog"].(map[string]any)
	require.True(t, ok)
	comments, ok := got["comments"].([]any)
	require.True(t, ok)
	assert.Len(t, comments, 1)

	t.Run("empty content", func(t *testing.T) {
		status, _, gotBody := ts.post(t, fmt.Sprintf("/v1/blogs/%s/comments", blog["id"]), map[string]any{
			"content": "",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.JSONEq(t, envelope{"error": map[string]string{"content": "must be provided"}}.JSON(), gotBody.JSON())
	})
}

func TestListBlogsHandler(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	registerTestUser(t, ts, "testuser", "testuser@example.com")

	status, _, _ := ts.post(t, "/v1/blogs", map[string]any{
		"title": "Older Post", "content": "First", "category": "Tech",
	})
	require.Equal(t, http.StatusCreated, status)

	status, _, _ = ts.post(t, "/v1/blogs", map[string]any{
		"title": "Newer Post", "content": "Second", "category": "Travel",
	})
	require.Equal(t, http.StatusCreated, status)

	t.Run("newest first", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/v1/blogs")
		assert.Equal(t, http.StatusOK, status)

		blogs, ok := gotBody["blogs"].([]any)
		require.True(t, ok)
		require.Len(t, blogs, 2)

		first, ok := blogs[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Newer Post", first["title"])
	})

	t.Run("filter by category", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/v1/blogs?category=Tech")
		assert.Equal(t, http.StatusOK, status)

		blogs, ok := gotBody["blogs"].([]any)
		require.True(t, ok)
		require.Len(t, blogs, 1)

		first, ok := blogs[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Older Post", first["title"])
	})

	t.Run("category All returns everything", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/v1/blogs?category=All")
		assert.Equal(t, http.StatusOK, status)

		blogs, ok := gotBody["blogs"].([]any)
		require.True(t, ok)
		assert.Len(t, blogs, 2)
	})
}

func TestSearchBlogsHandler(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	registerTestUser(t, ts, "testuser", "testuser@example.com")
	createTestBlog(t, ts, "Understanding Goroutines")
	createTestBlog(t, ts, "Gardening for Beginners")

	t.Run("matching query", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/v1/search?q=goroutines")
		assert.Equal(t, http.StatusOK, status)

		blogs, ok := gotBody["blogs"].([]any)
		require.True(t, ok)
		assert.Len(t, blogs, 1)
	})

	t.Run("no matches", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/v1/search?q=kubernetes")
		assert.Equal(t, http.StatusOK, status)

		blogs, ok := gotBody["blogs"].([]any)
		require.True(t, ok)
		assert.Len(t, blogs, 0)
	})

	t.Run("missing query", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/v1/search")
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.JSONEq(t, envelope{"error": map[string]string{"query": "must be provided"}}.JSON(), gotBody.JSON())
	})
}

func TestListUsersHandler(t *testing.T) {
	t.Run("Admin", func(t *testing.T) {
		app, store := newTestApplicationWithStore(t)
		ts := newTestServer(t, app.routes())

		registerTestUser(t, ts, "reader", "reader@example.com")

		// Promote a directly created account and point the session at it. There
		// is no API surface for minting admins.
		admin, err := store.CreateUser(context.Background(), domain.NewUser{
			Username: "site_admin",
			Email:    "admin@example.com",
			IsAdmin:  true,
		})
		require.NoError(t, err)
		require.NoError(t, store.SetCurrentUserID(context.Background(), admin.ID))
		require.NoError(t, app.userService.Restore(context.Background()))

		status, _, gotBody := ts.get(t, "/v1/users")
		assert.Equal(t, http.StatusOK, status)

		users, ok := gotBody["users"].([]any)
		require.True(t, ok)
		assert.Len(t, users, 2)
	})

	t.Run("Non-Admin", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		registerTestUser(t, ts, "reader", "reader@example.com")

		status, _, gotBody := ts.get(t, "/v1/users")
		assert.Equal(t, http.StatusForbidden, status)
		assert.JSONEq(t, envelope{"error": "you do not have permission to access this resource"}.JSON(), gotBody.JSON())
	})

	t.Run("Anonymous", func(t *testing.T) {
		app := newTestApplication(t)
		ts := newTestServer(t, app.routes())

		status, _, _ := ts.get(t, "/v1/users")
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestHealthCheckHandler(t *testing.T) {
	app := newTestApplication(t)
	ts := newTestServer(t, app.routes())

	status, _, gotBody := ts.get(t, "/v1/healthcheck")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "available", gotBody["status"])
}
