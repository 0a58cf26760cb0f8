// Package review turns a validated submission into a reviewable pull
// request against the records repository.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/openbusinessrecord/obr-registry/internal/registry"
	"github.com/openbusinessrecord/obr-registry/internal/submission"
)

// RepoClient is the narrow view of the records repository host the
// workflow needs. A fake implementation stands in during tests.
type RepoClient interface {
	// BranchHead returns the tip commit SHA of the named branch.
	BranchHead(ctx context.Context, branch string) (string, error)
	// CreateBranch creates a new branch pointed at the given SHA.
	CreateBranch(ctx context.Context, name, sha string) error
	// CommitFile writes content to path as a new commit on branch.
	CommitFile(ctx context.Context, branch, filePath, message string, content []byte) error
	// OpenPullRequest opens a PR from head into base and returns its
	// browsable URL.
	OpenPullRequest(ctx context.Context, head, base, title, body string) (string, error)
}

// Config controls workflow targets.
type Config struct {
	BaseBranch string
	RecordsDir string
}

// Workflow performs the four remote steps in strict sequence: read the
// base tip, branch, commit the record file, open the pull request. The
// first failure aborts the rest; an already-created branch is left in
// place for human cleanup.
type Workflow struct {
	repo   RepoClient
	clock  registry.Clock
	cfg    Config
	logger *zap.Logger
}

// New builds a Workflow.
func New(repo RepoClient, clock registry.Clock, cfg Config, logger *zap.Logger) *Workflow {
	if cfg.BaseBranch == "" {
		cfg.BaseBranch = "main"
	}
	if cfg.RecordsDir == "" {
		cfg.RecordsDir = "records"
	}
	return &Workflow{
		repo:   repo,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// Submit runs the full review workflow for one submission and returns the
// opened pull request's URL.
func (w *Workflow) Submit(ctx context.Context, sub submission.Submission) (string, error) {
	sha, err := w.repo.BranchHead(ctx, w.cfg.BaseBranch)
	if err != nil {
		return "", fmt.Errorf("read %s tip: %w", w.cfg.BaseBranch, err)
	}

	// The timestamp keeps concurrent submissions with the same name from
	// colliding on a branch.
	branch := fmt.Sprintf("submission-%s-%d", sub.Slug, w.clock.Now().UnixMilli())
	if err := w.repo.CreateBranch(ctx, branch, sha); err != nil {
		return "", fmt.Errorf("create branch %s: %w", branch, err)
	}

	content, err := json.MarshalIndent(sub.Fields, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize record: %w", err)
	}
	filePath := path.Join(w.cfg.RecordsDir, sub.Slug+".json")
	message := fmt.Sprintf("OBR submission: %s", sub.Name)
	if err := w.repo.CommitFile(ctx, branch, filePath, message, content); err != nil {
		w.logger.Warn("commit failed, branch left for cleanup", zap.String("branch", branch))
		return "", fmt.Errorf("commit %s: %w", filePath, err)
	}

	prURL, err := w.repo.OpenPullRequest(ctx, branch, w.cfg.BaseBranch, w.title(sub), w.body(sub))
	if err != nil {
		w.logger.Warn("pull request failed, branch left for cleanup", zap.String("branch", branch))
		return "", fmt.Errorf("open pull request for %s: %w", branch, err)
	}

	w.logger.Info("submission pull request opened",
		zap.String("name", sub.Name),
		zap.String("branch", branch),
		zap.String("pr_url", prURL))
	return prURL, nil
}

func (w *Workflow) title(sub submission.Submission) string {
	return fmt.Sprintf("New OBR record: %s", sub.Name)
}

func (w *Workflow) body(sub submission.Submission) string {
	link := "_No URL provided_"
	if sub.URL != "" {
		link = fmt.Sprintf("[Check Website](%s)", sub.URL)
	}
	return fmt.Sprintf("Reviewing new business registration for **%s**.\n\n%s", sub.Name, link)
}
