package contentsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// pullConcurrency bounds parallel downloads during Pull.
const pullConcurrency = 4

var (
	// ErrInvalidPath is returned for paths that would escape the local root.
	ErrInvalidPath = errors.New("invalid content path")
	// ErrMissing is returned when a file exists neither locally nor remotely.
	ErrMissing = errors.New("file does not exist locally or remotely")
	// ErrInvalidResolution is returned when a resolution cannot be applied.
	ErrInvalidResolution = errors.New("invalid conflict resolution")
)

// Resolution picks which side wins a conflict.
type Resolution string

const (
	UseLocal  Resolution = "local"
	UseRemote Resolution = "remote"
	UseMerged Resolution = "merge"
)

// ParseResolution validates s as a Resolution.
func ParseResolution(s string) (Resolution, error) {
	switch r := Resolution(strings.ToLower(s)); r {
	case UseLocal, UseRemote, UseMerged:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q (want local, remote or merge)", ErrInvalidResolution, s)
}

// Diff compares one file on both sides.
type Diff struct {
	HasChanges   bool
	LocalExists  bool
	RemoteExists bool
	Local        []byte
	Remote       []byte
}

// Service synchronises a local directory with a Remote. Remote paths are
// slash-separated and mirrored under the local root unchanged.
type Service struct {
	remote    Remote
	basePath  string
	localRoot string
}

// NewService creates a Service pulling basePath into localRoot.
func NewService(remote Remote, basePath, localRoot string) *Service {
	return &Service{
		remote:    remote,
		basePath:  strings.Trim(basePath, "/"),
		localRoot: localRoot,
	}
}

// localPath maps a remote path to a file under the local root.
func (s *Service) localPath(p string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(p, "/"))
	if p == "" || !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return filepath.Join(s.localRoot, filepath.FromSlash(clean)), nil
}

// Pull downloads every file under the base path, recursing into
// directories, and returns how many files were written.
func (s *Service) Pull(ctx context.Context) (int, error) {
	files, err := s.walk(ctx, s.basePath)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pullConcurrency)
	for _, f := range files {
		g.Go(func() error {
			blob, err := s.remote.Get(gctx, f.Path)
			if err != nil {
				return err
			}
			return s.writeLocal(f.Path, blob.Content)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("pull content: %w", err)
	}

	log.Info().Int("files", len(files)).Str("base", s.basePath).Msg("Content pulled")
	return len(files), nil
}

func (s *Service) walk(ctx context.Context, dir string) ([]Entry, error) {
	entries, err := s.remote.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	var files []Entry
	for _, e := range entries {
		switch e.Type {
		case EntryFile:
			files = append(files, e)
		case EntryDir:
			sub, err := s.walk(ctx, e.Path)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		default:
			log.Debug().Str("path", e.Path).Str("type", e.Type).Msg("Skipping remote entry")
		}
	}
	return files, nil
}

// Push creates or updates one remote file.
func (s *Service) Push(ctx context.Context, p string, content []byte, message string) error {
	if _, err := s.localPath(p); err != nil {
		return err
	}

	var sha string
	blob, err := s.remote.Get(ctx, p)
	switch {
	case err == nil:
		sha = blob.SHA
	case errors.Is(err, ErrNotFound):
	default:
		return fmt.Errorf("push %s: %w", p, err)
	}

	newSHA, err := s.remote.Put(ctx, p, content, message, sha)
	if err != nil {
		return fmt.Errorf("push %s: %w", p, err)
	}
	log.Info().Str("path", p).Str("sha", newSHA).Bool("created", sha == "").Msg("Content pushed")
	return nil
}

// CheckForChanges reads both sides of p concurrently and compares them.
func (s *Service) CheckForChanges(ctx context.Context, p string) (*Diff, error) {
	local, err := s.localPath(p)
	if err != nil {
		return nil, err
	}

	var d Diff
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := os.ReadFile(local)
		switch {
		case err == nil:
			d.Local, d.LocalExists = b, true
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("read %s: %w", local, err)
		}
		return nil
	})
	g.Go(func() error {
		blob, err := s.remote.Get(gctx, p)
		switch {
		case err == nil:
			d.Remote, d.RemoteExists = blob.Content, true
		case errors.Is(err, ErrNotFound):
		default:
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("check %s: %w", p, err)
	}

	if !d.LocalExists && !d.RemoteExists {
		return nil, fmt.Errorf("check %s: %w", p, ErrMissing)
	}
	d.HasChanges = d.LocalExists != d.RemoteExists || !bytes.Equal(d.Local, d.Remote)
	return &d, nil
}

// Resolve settles a conflict on p. UseLocal pushes the local file, UseRemote
// overwrites the local file and UseMerged pushes merged and writes it locally.
func (s *Service) Resolve(ctx context.Context, p string, res Resolution, merged []byte) error {
	d, err := s.CheckForChanges(ctx, p)
	if err != nil {
		return err
	}

	switch {
	case res == UseLocal && d.LocalExists:
		return s.Push(ctx, p, d.Local, "Resolve conflict: use local version")
	case res == UseRemote && d.RemoteExists:
		return s.writeLocal(p, d.Remote)
	case res == UseMerged && len(merged) > 0:
		if err := s.Push(ctx, p, merged, "Resolve conflict: merge changes"); err != nil {
			return err
		}
		return s.writeLocal(p, merged)
	}
	return fmt.Errorf("resolve %s with %q: %w", p, res, ErrInvalidResolution)
}

// History lists commits touching p.
func (s *Service) History(ctx context.Context, p string) ([]Commit, error) {
	if _, err := s.localPath(p); err != nil {
		return nil, err
	}
	return s.remote.History(ctx, p)
}

func (s *Service) writeLocal(p string, content []byte) error {
	local, err := s.localPath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", p, err)
	}
	if err := os.WriteFile(local, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", local, err)
	}
	return nil
}
