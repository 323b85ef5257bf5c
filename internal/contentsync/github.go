package contentsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
)

// GitHubRemote implements Remote over the GitHub contents and commits APIs.
type GitHubRemote struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

// NewGitHubClient returns a client authenticated with a personal access token.
func NewGitHubClient(token string) *github.Client {
	return github.NewClient(nil).WithAuthToken(token)
}

// NewGitHubRemote binds client to one repository. An empty branch means the
// repository's default branch.
func NewGitHubRemote(client *github.Client, owner, repo, branch string) *GitHubRemote {
	return &GitHubRemote{client: client, owner: owner, repo: repo, branch: branch}
}

func (r *GitHubRemote) getOptions() *github.RepositoryContentGetOptions {
	if r.branch == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: r.branch}
}

func (r *GitHubRemote) List(ctx context.Context, dir string) ([]Entry, error) {
	file, entries, _, err := r.client.Repositories.GetContents(ctx, r.owner, r.repo, dir, r.getOptions())
	if err != nil {
		return nil, wrapGitHubErr("list "+dir, err)
	}
	if file != nil {
		return nil, fmt.Errorf("list %s: path is a file, not a directory", dir)
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{Name: e.GetName(), Path: e.GetPath(), SHA: e.GetSHA(), Type: e.GetType()})
	}
	return out, nil
}

func (r *GitHubRemote) Get(ctx context.Context, path string) (*Blob, error) {
	file, _, _, err := r.client.Repositories.GetContents(ctx, r.owner, r.repo, path, r.getOptions())
	if err != nil {
		return nil, wrapGitHubErr("get "+path, err)
	}
	if file == nil || file.GetType() != EntryFile {
		return nil, fmt.Errorf("get %s: path is not a file", path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &Blob{Content: []byte(content), SHA: file.GetSHA()}, nil
}

func (r *GitHubRemote) Put(ctx context.Context, path string, content []byte, message, sha string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
	}
	if sha != "" {
		opts.SHA = github.String(sha)
	}
	if r.branch != "" {
		opts.Branch = github.String(r.branch)
	}

	var (
		res *github.RepositoryContentResponse
		err error
	)
	if sha == "" {
		res, _, err = r.client.Repositories.CreateFile(ctx, r.owner, r.repo, path, opts)
	} else {
		res, _, err = r.client.Repositories.UpdateFile(ctx, r.owner, r.repo, path, opts)
	}
	if err != nil {
		return "", wrapGitHubErr("put "+path, err)
	}
	if res == nil || res.Content == nil || res.Content.GetSHA() == "" {
		return "", fmt.Errorf("put %s: response carried no content sha", path)
	}
	return res.Content.GetSHA(), nil
}

func (r *GitHubRemote) History(ctx context.Context, path string) ([]Commit, error) {
	opts := &github.CommitsListOptions{Path: path, SHA: r.branch}
	commits, _, err := r.client.Repositories.ListCommits(ctx, r.owner, r.repo, opts)
	if err != nil {
		return nil, wrapGitHubErr("history "+path, err)
	}

	out := make([]Commit, 0, len(commits))
	for _, c := range commits {
		author := c.GetCommit().GetAuthor()
		name := author.GetName()
		if name == "" {
			name = "Unknown"
		}
		out = append(out, Commit{
			SHA:     c.GetSHA(),
			Message: c.GetCommit().GetMessage(),
			Date:    author.GetDate().Time,
			Author:  name,
		})
	}
	return out, nil
}

func wrapGitHubErr(op string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
