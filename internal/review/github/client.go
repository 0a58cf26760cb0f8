// Package github implements review.RepoClient against the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"
)

// Config identifies the records repository and its credential.
type Config struct {
	Token string
	Owner string
	Repo  string

	// BaseURL overrides the API endpoint, primarily for tests.
	BaseURL string
}

// Client is a thin adapter over go-github scoped to one repository.
type Client struct {
	gh    *gh.Client
	owner string
	repo  string
}

// New builds a Client. An empty token produces an unauthenticated client,
// which is only useful against a test server.
func New(cfg Config) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}
	client := gh.NewClient(nil)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		client.BaseURL = base
	}
	return &Client{
		gh:    client,
		owner: cfg.Owner,
		repo:  cfg.Repo,
	}, nil
}

// BranchHead returns the tip commit SHA of the named branch.
func (c *Client) BranchHead(ctx context.Context, branch string) (string, error) {
	b, _, err := c.gh.Repositories.GetBranch(ctx, c.owner, c.repo, branch, 0)
	if err != nil {
		return "", wrapAPIError("get branch", err)
	}
	sha := b.GetCommit().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("branch %s has no tip commit", branch)
	}
	return sha, nil
}

// CreateBranch creates refs/heads/<name> pointed at the given SHA.
func (c *Client) CreateBranch(ctx context.Context, name, sha string) error {
	ref := &gh.Reference{
		Ref:    gh.String("refs/heads/" + name),
		Object: &gh.GitObject{SHA: gh.String(sha)},
	}
	if _, _, err := c.gh.Git.CreateRef(ctx, c.owner, c.repo, ref); err != nil {
		return wrapAPIError("create ref", err)
	}
	return nil
}

// CommitFile writes content to filePath as a new commit on branch.
// go-github handles the base64 content encoding.
func (c *Client) CommitFile(ctx context.Context, branch, filePath, message string, content []byte) error {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(message),
		Content: content,
		Branch:  gh.String(branch),
	}
	if _, _, err := c.gh.Repositories.CreateFile(ctx, c.owner, c.repo, filePath, opts); err != nil {
		return wrapAPIError("create file", err)
	}
	return nil
}

// OpenPullRequest opens a PR from head into base and returns its HTML URL.
func (c *Client) OpenPullRequest(ctx context.Context, head, base, title, body string) (string, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &gh.NewPullRequest{
		Title: gh.String(title),
		Head:  gh.String(head),
		Base:  gh.String(base),
		Body:  gh.String(body),
	})
	if err != nil {
		return "", wrapAPIError("create pull request", err)
	}
	return pr.GetHTMLURL(), nil
}

// wrapAPIError surfaces GitHub's own message when one is available, so the
// boundary can relay it to the caller.
func wrapAPIError(op string, err error) error {
	var apiErr *gh.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Errorf("%s: %s", op, apiErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
