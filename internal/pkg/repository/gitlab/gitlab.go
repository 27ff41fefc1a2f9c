package gitlab

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/xanzy/go-gitlab"

	"github.com/konflux-ci/renovate-setup/internal/pkg/repository/base"
	"github.com/konflux-ci/renovate-setup/internal/pkg/utils"
	"github.com/konflux-ci/renovate-setup/pkg/rserrors"
)

const fallbackBranch = "main"

// Client reads and writes repository files through the GitLab REST API.
// Projects in subgroups are addressed by their full path, the owner is the
// namespace path, e.g. "group/subgroup".
type Client struct {
	client *gitlab.Client
}

func NewClient(token string, baseURL string) (*Client, error) {
	client, err := gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) GetRepository(ctx context.Context, ref utils.RepositoryRef) (*base.Repository, error) {
	project, resp, err := c.client.Projects.GetProject(ref.FullName(), nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, classifyError(resp, fmt.Errorf("failed to get project information: %w", err))
	}
	if project == nil {
		return nil, fmt.Errorf("project info is empty in GitLab API response")
	}

	repository := &base.Repository{
		Name:          project.Path,
		Archived:      project.Archived,
		HTMLURL:       project.WebURL,
		DefaultBranch: project.DefaultBranch,
	}
	if project.Namespace != nil && project.Namespace.FullPath != "" {
		repository.Owner = &base.Owner{Login: project.Namespace.FullPath}
	}
	return repository, nil
}

func (c *Client) GetFile(ctx context.Context, repository *base.Repository, path string) (*base.File, error) {
	file, resp, err := c.client.RepositoryFiles.GetFile(repository.GetFullName(), path, &gitlab.GetFileOptions{
		Ref: gitlab.Ptr(branchOf(repository)),
	}, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, c.notFound(ctx, repository, path)
		}
		return nil, err
	}

	content := []byte(file.Content)
	if file.Encoding == "base64" {
		content, err = base64.StdEncoding.DecodeString(file.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	return &base.File{
		Path:    path,
		Content: content,
		SHA:     file.LastCommitID,
	}, nil
}

// notFound tells a missing file from a directory, the files API answers 404
// for both.
func (c *Client) notFound(ctx context.Context, repository *base.Repository, path string) error {
	branch := branchOf(repository)
	nodes, resp, err := c.client.Repositories.ListTree(repository.GetFullName(), &gitlab.ListTreeOptions{
		Path: gitlab.Ptr(path),
		Ref:  gitlab.Ptr(branch),
	}, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return base.ErrFileNotFound
		}
		return classifyError(resp, fmt.Errorf("failed to list %s: %w", path, err))
	}
	if len(nodes) == 0 {
		return base.ErrFileNotFound
	}
	return rserrors.NewRenovateSetupError(rserrors.ENotAFile,
		fmt.Errorf("%s/-/tree/%s/%s is not a file, but a dir",
			strings.TrimSuffix(repository.HTMLURL, "/"), branch, path))
}

// PutFile creates the file when change.SHA is empty. Otherwise the SHA is sent
// as last_commit_id so GitLab rejects the update if the file moved on meanwhile.
func (c *Client) PutFile(ctx context.Context, repository *base.Repository, path string, change *base.FileChange) (string, error) {
	branch := branchOf(repository)

	var err error
	var resp *gitlab.Response
	if change.SHA == "" {
		_, resp, err = c.client.RepositoryFiles.CreateFile(repository.GetFullName(), path, &gitlab.CreateFileOptions{
			Branch:        gitlab.Ptr(branch),
			Content:       gitlab.Ptr(string(change.Content)),
			CommitMessage: gitlab.Ptr(change.Message),
		}, gitlab.WithContext(ctx))
	} else {
		_, resp, err = c.client.RepositoryFiles.UpdateFile(repository.GetFullName(), path, &gitlab.UpdateFileOptions{
			Branch:        gitlab.Ptr(branch),
			Content:       gitlab.Ptr(string(change.Content)),
			CommitMessage: gitlab.Ptr(change.Message),
			LastCommitID:  gitlab.Ptr(change.SHA),
		}, gitlab.WithContext(ctx))
	}
	if err != nil {
		return "", classifyError(resp, fmt.Errorf("failed to commit %s: %w", path, err))
	}
	// The files API does not report the commit, link the file on the branch instead
	return fmt.Sprintf("%s/-/blob/%s/%s", strings.TrimSuffix(repository.HTMLURL, "/"), branch, path), nil
}

func branchOf(repository *base.Repository) string {
	if repository.DefaultBranch != "" {
		return repository.DefaultBranch
	}
	return fallbackBranch
}

func classifyError(resp *gitlab.Response, err error) error {
	if resp == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return rserrors.NewRenovateSetupError(rserrors.EGitLabTokenUnauthorized, err)
	case http.StatusForbidden:
		return rserrors.NewRenovateSetupError(rserrors.EGitLabTokenInsufficientScope, err)
	}
	return err
}
