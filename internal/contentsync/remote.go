// Package contentsync keeps a local content tree in step with a remote
// repository: pull the tree, push single files, compare, resolve conflicts
// and read a file's commit history.
package contentsync

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Remote when the path does not exist.
var ErrNotFound = errors.New("remote path not found")

// Entry types reported by Remote.List.
const (
	EntryFile = "file"
	EntryDir  = "dir"
)

// Entry is one item of a remote directory listing.
type Entry struct {
	Name string
	Path string
	SHA  string
	Type string
}

// Blob is the decoded content of a remote file plus its blob SHA.
type Blob struct {
	Content []byte
	SHA     string
}

// Commit summarizes one commit touching a path.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	Author  string    `json:"author"`
}

// Remote is the storage the content tree is synchronised with.
type Remote interface {
	// List returns the entries of a remote directory.
	List(ctx context.Context, dir string) ([]Entry, error)
	// Get returns a remote file, or ErrNotFound.
	Get(ctx context.Context, path string) (*Blob, error)
	// Put creates the file when sha is empty and updates it otherwise. It
	// returns the new blob SHA.
	Put(ctx context.Context, path string, content []byte, message, sha string) (string, error)
	// History lists commits touching path, newest first.
	History(ctx context.Context, path string) ([]Commit, error)
}
