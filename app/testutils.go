package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/blogspace/internal/blogservice"
	"github.com/sushihentaime/blogspace/internal/common"
	"github.com/sushihentaime/blogspace/internal/storage/localstore"
	"github.com/sushihentaime/blogspace/internal/userservice"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

// newTestApplication wires the handlers over the local store in a temporary
// directory. No broker: registration must work without one.
func newTestApplication(t *testing.T) *application {
	app, _ := newTestApplicationWithStore(t)
	return app
}

// newTestApplicationWithStore also hands back the backing store so tests can
// arrange state the API does not expose, such as admin accounts.
func newTestApplicationWithStore(t *testing.T) (*application, *localstore.Store) {
	local, err := localstore.New(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &Config{
		Port:           ":4000",
		Environment:    "test",
		Version:        "test",
		TrustedOrigins: []string{"http://localhost:3000"},
	}

	app := &application{
		config:      cfg,
		logger:      logger,
		userService: userservice.NewUserService(local, nil),
		blogService: blogservice.NewBlogService(local, common.NewCache(5*time.Minute, 10*time.Minute)),
	}

	return app, local
}

func readResponse(t *testing.T, res *http.Response) (int, http.Header, envelope) {
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}

	var envelope envelope
	err = json.Unmarshal(responseBody, &envelope)
	if err != nil {
		t.Fatal(err)
	}

	return res.StatusCode, res.Header, envelope
}

func (ts *testServer) do(t *testing.T, method, path string, payload any) (int, http.Header, envelope) {
	var body io.Reader
	if payload != nil {
		jsonPayload, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(jsonPayload)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}

	return readResponse(t, res)
}

func (ts *testServer) post(t *testing.T, path string, payload any) (int, http.Header, envelope) {
	return ts.do(t, http.MethodPost, path, payload)
}

func (ts *testServer) get(t *testing.T, path string) (int, http.Header, envelope) {
	return ts.do(t, http.MethodGet, path, nil)
}

func (ts *testServer) patch(t *testing.T, path string, payload any) (int, http.Header, envelope) {
	return ts.do(t, http.MethodPatch, path, payload)
}

func (ts *testServer) delete(t *testing.T, path string) (int, http.Header, envelope) {
	return ts.do(t, http.MethodDelete, path, nil)
}
