package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
)

// GitHubMirror commits the snapshot to a repository through the contents API.
type GitHubMirror struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

// NewGitHubMirror returns a mirror for owner/repo. An empty branch uses the
// repository's default branch.
func NewGitHubMirror(client *github.Client, owner, repo, branch string) *GitHubMirror {
	return &GitHubMirror{client: client, owner: owner, repo: repo, branch: branch}
}

// NewGitHubClient builds an authenticated API client.
func NewGitHubClient(token string) *github.Client {
	return github.NewClient(nil).WithAuthToken(token)
}

func (g *GitHubMirror) Publish(ctx context.Context, path string, content []byte, message string) error {
	sha, err := g.currentSHA(ctx, path)
	if err != nil {
		return err
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
	}
	if g.branch != "" {
		opts.Branch = github.String(g.branch)
	}

	if sha == "" {
		if _, _, err := g.client.Repositories.CreateFile(ctx, g.owner, g.repo, path, opts); err != nil {
			return fmt.Errorf("creating %s in %s/%s: %w", path, g.owner, g.repo, err)
		}
		return nil
	}

	opts.SHA = github.String(sha)
	if _, _, err := g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, path, opts); err != nil {
		return fmt.Errorf("updating %s in %s/%s: %w", path, g.owner, g.repo, err)
	}
	return nil
}

// currentSHA returns the blob sha of path, or "" if the file does not exist.
func (g *GitHubMirror) currentSHA(ctx context.Context, path string) (string, error) {
	var opts *github.RepositoryContentGetOptions
	if g.branch != "" {
		opts = &github.RepositoryContentGetOptions{Ref: g.branch}
	}

	file, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path, opts)
	if err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("fetching %s from %s/%s: %w", path, g.owner, g.repo, err)
	}
	if file == nil {
		return "", fmt.Errorf("%s in %s/%s is a directory", path, g.owner, g.repo)
	}
	return file.GetSHA(), nil
}
