package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/cms-service/config"
	"github.com/duynhne/cms-service/internal/contentsync"
	"github.com/duynhne/cms-service/internal/core/domain"
	"github.com/duynhne/cms-service/internal/store"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Backend: config.BackendMemory, QueryTimeout: time.Second},
		Session:  config.SessionConfig{SweepInterval: time.Hour, SweepTimeout: time.Second},
		Auth:     config.AuthConfig{BcryptCost: config.MinBcryptCost},
		Content:  config.ContentConfig{BasePath: "content", LocalRoot: t.TempDir()},
	}
	stores, err := store.Open(context.Background(), cfg)
	require.NoError(t, err)

	var out bytes.Buffer
	return &app{cfg: cfg, stores: stores, out: &out}, &out
}

func execute(a *app, args ...string) error {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.out)
	cmd.SetErr(a.out)
	return cmd.Execute()
}

func TestUsersCreateAndList(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, execute(a, "users", "create",
		"--email", "admin@example.com", "--name", "Admin", "--password", "Password1!", "--role", "admin"))
	assert.Contains(t, out.String(), "Created admin user admin@example.com")

	require.NoError(t, execute(a, "users", "create",
		"--email", "viewer@example.com", "--name", "Viewer", "--password", "Password1!"))

	out.Reset()
	require.NoError(t, execute(a, "users", "list"))
	assert.Contains(t, out.String(), "admin@example.com")
	assert.Contains(t, out.String(), "viewer@example.com")
	assert.NotContains(t, out.String(), "$2")
}

func TestUsersListEmpty(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, execute(a, "users", "list"))
	assert.Contains(t, out.String(), "No users found.")
}

func TestUsersCreateRejectsBadInput(t *testing.T) {
	a, _ := newTestApp(t)

	err := execute(a, "users", "create", "--email", "x@example.com", "--name", "X", "--password", "Password1!", "--role", "owner")
	require.Error(t, err)

	err = execute(a, "users", "create", "--email", "x@example.com", "--name", "Xavier", "--password", "weak")
	require.Error(t, err)
}

func TestSessionsSweep(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.stores.Users.Create(ctx, domain.UserRow{ID: "u1", Email: "s@example.com", Name: "S", PasswordHash: "h", Role: domain.RoleViewer}))
	require.NoError(t, a.stores.Sessions.Create(ctx, domain.Session{ID: "old", UserID: "u1", ExpiresAt: time.Now().Add(-time.Second)}))
	require.NoError(t, a.stores.Sessions.Create(ctx, domain.Session{ID: "new", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, execute(a, "sessions", "sweep"))
	assert.Contains(t, out.String(), "Deleted 1 expired session(s)")
}

type fakeRemote struct {
	mock.Mock
}

func (f *fakeRemote) List(ctx context.Context, dir string) ([]contentsync.Entry, error) {
	args := f.Called(ctx, dir)
	entries, _ := args.Get(0).([]contentsync.Entry)
	return entries, args.Error(1)
}

func (f *fakeRemote) Get(ctx context.Context, path string) (*contentsync.Blob, error) {
	args := f.Called(ctx, path)
	blob, _ := args.Get(0).(*contentsync.Blob)
	return blob, args.Error(1)
}

func (f *fakeRemote) Put(ctx context.Context, path string, content []byte, message, sha string) (string, error) {
	args := f.Called(ctx, path, content, message, sha)
	return args.String(0), args.Error(1)
}

func (f *fakeRemote) History(ctx context.Context, path string) ([]contentsync.Commit, error) {
	args := f.Called(ctx, path)
	commits, _ := args.Get(0).([]contentsync.Commit)
	return commits, args.Error(1)
}

func TestContentPullAndDiff(t *testing.T) {
	a, out := newTestApp(t)
	remote := new(fakeRemote)
	a.remote = remote

	remote.On("List", mock.Anything, "content").Return([]contentsync.Entry{{Path: "content/a.md", Type: contentsync.EntryFile}}, nil)
	remote.On("Get", mock.Anything, "content/a.md").Return(&contentsync.Blob{Content: []byte("hello"), SHA: "s1"}, nil)

	require.NoError(t, execute(a, "content", "pull"))
	assert.Contains(t, out.String(), "Pulled 1 file(s)")

	b, err := os.ReadFile(filepath.Join(a.cfg.Content.LocalRoot, "content", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	out.Reset()
	require.NoError(t, execute(a, "content", "diff", "content/a.md"))
	assert.Contains(t, out.String(), "in sync")
}

func TestContentPush(t *testing.T) {
	a, out := newTestApp(t)
	remote := new(fakeRemote)
	a.remote = remote

	src := filepath.Join(t.TempDir(), "post.md")
	require.NoError(t, os.WriteFile(src, []byte("draft"), 0o644))

	remote.On("Get", mock.Anything, "content/post.md").Return(nil, contentsync.ErrNotFound)
	remote.On("Put", mock.Anything, "content/post.md", []byte("draft"), "add post", "").Return("s1", nil)

	require.NoError(t, execute(a, "content", "push", "content/post.md", src, "-m", "add post"))
	assert.Contains(t, out.String(), "Pushed content/post.md")
	remote.AssertExpectations(t)
}

func TestContentResolveRejectsUnknownResolution(t *testing.T) {
	a, _ := newTestApp(t)
	a.remote = new(fakeRemote)

	err := execute(a, "content", "resolve", "content/a.md", "--use", "theirs")
	require.ErrorIs(t, err, contentsync.ErrInvalidResolution)
}

func TestContentHistory(t *testing.T) {
	a, out := newTestApp(t)
	remote := new(fakeRemote)
	a.remote = remote

	remote.On("History", mock.Anything, "content/a.md").Return([]contentsync.Commit{{
		SHA:     "0123456789abcdef",
		Message: "Fix typo\n\nlong body",
		Author:  "Ann",
		Date:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}}, nil)

	require.NoError(t, execute(a, "content", "history", "content/a.md"))
	assert.Equal(t, "0123456 2024-03-01 Ann Fix typo\n", out.String())
}
