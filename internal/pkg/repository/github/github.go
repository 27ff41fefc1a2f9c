package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ghinstallation "github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/go-logr/logr"
	"github.com/google/go-github/v45/github"
	"golang.org/x/oauth2"

	"github.com/konflux-ci/renovate-setup/internal/pkg/repository/base"
	"github.com/konflux-ci/renovate-setup/internal/pkg/utils"
	"github.com/konflux-ci/renovate-setup/pkg/rserrors"
)

// Client reads and writes repository files through the GitHub REST API.
// It authenticates either with a static token or as a GitHub App, in which
// case an installation client is resolved per repository owner.
type Client struct {
	apiURL string
	// used for all requests when authenticated with a token
	client *github.Client

	appsTransport *ghinstallation.AppsTransport
	appsClient    *github.Client
	installations *InstallationCache
}

// NewClient wraps an already authenticated http client. apiURL may be empty
// for github.com, otherwise it is the REST endpoint of GitHub Enterprise,
// e.g. https://github.example.com/api/v3/
func NewClient(httpClient *http.Client, apiURL string) (*Client, error) {
	client, err := newGitHubClient(httpClient, apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{apiURL: apiURL, client: client}, nil
}

func NewTokenClient(ctx context.Context, token string, apiURL string) (*Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return NewClient(oauth2.NewClient(ctx, ts), apiURL)
}

func NewAppClient(appID int64, privateKey []byte, apiURL string) (*Client, error) {
	itr, err := ghinstallation.NewAppsTransport(http.DefaultTransport, appID, privateKey)
	if err != nil {
		return nil, rserrors.NewRenovateSetupError(rserrors.EGitHubAppMalformedPrivateKey,
			fmt.Errorf("error creating GitHub App transport: %w", err))
	}
	if apiURL != "" {
		itr.BaseURL = strings.TrimSuffix(apiURL, "/")
	}
	appsClient, err := newGitHubClient(&http.Client{Transport: itr}, apiURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		apiURL:        apiURL,
		appsTransport: itr,
		appsClient:    appsClient,
		installations: NewInstallationCache(),
	}, nil
}

func newGitHubClient(httpClient *http.Client, apiURL string) (*github.Client, error) {
	client := github.NewClient(httpClient)
	if apiURL == "" {
		return client, nil
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	baseURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %s: %w", apiURL, err)
	}
	client.BaseURL = baseURL
	return client, nil
}

func (c *Client) clientFor(ctx context.Context, owner, repo string) (*github.Client, error) {
	if c.appsClient == nil {
		return c.client, nil
	}
	if client, ok := c.installations.Get(owner); ok {
		return client, nil
	}

	installation, resp, err := c.appsClient.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, rserrors.NewRenovateSetupError(rserrors.EGitHubAppNotInstalled,
				fmt.Errorf("GitHub App is not installed for %s/%s: %w", owner, repo, err))
		}
		return nil, classifyError(resp, fmt.Errorf("error getting GitHub App installation: %w", err))
	}

	itr := ghinstallation.NewFromAppsTransport(c.appsTransport, installation.GetID())
	client, err := newGitHubClient(&http.Client{Transport: itr}, c.apiURL)
	if err != nil {
		return nil, err
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("resolved GitHub App installation",
		"owner", owner, "installationID", installation.GetID())
	c.installations.Set(owner, client)
	return client, nil
}

func (c *Client) GetRepository(ctx context.Context, ref utils.RepositoryRef) (*base.Repository, error) {
	client, err := c.clientFor(ctx, ref.Owner, ref.Name)
	if err != nil {
		return nil, err
	}
	repositoryInfo, resp, err := client.Repositories.Get(ctx, ref.Owner, ref.Name)
	if err != nil {
		return nil, classifyError(resp, fmt.Errorf("failed to get repository information: %w", err))
	}

	repository := &base.Repository{
		Name:          repositoryInfo.GetName(),
		Archived:      repositoryInfo.GetArchived(),
		HTMLURL:       repositoryInfo.GetHTMLURL(),
		DefaultBranch: repositoryInfo.GetDefaultBranch(),
	}
	if login := repositoryInfo.GetOwner().GetLogin(); login != "" {
		repository.Owner = &base.Owner{Login: login}
	}
	return repository, nil
}

// GetFile returns base.ErrFileNotFound on 404. Any other failure is returned
// unchanged so callers can inspect the *github.ErrorResponse.
func (c *Client) GetFile(ctx context.Context, repository *base.Repository, path string) (*base.File, error) {
	owner := repository.GetOwnerLogin()
	client, err := c.clientFor(ctx, owner, repository.Name)
	if err != nil {
		return nil, err
	}

	fileContent, directoryContent, resp, err := client.Repositories.GetContents(ctx, owner, repository.Name, path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, base.ErrFileNotFound
		}
		return nil, err
	}

	location := fmt.Sprintf("%srepos/%s/%s/contents/%s", client.BaseURL, owner, repository.Name, path)
	if directoryContent != nil || fileContent == nil {
		return nil, rserrors.NewRenovateSetupError(rserrors.ENotAFile,
			fmt.Errorf("%s is not a file, but a dir", location))
	}
	if fileContent.GetType() != "file" {
		return nil, rserrors.NewRenovateSetupError(rserrors.ENotAFile,
			fmt.Errorf("%s is not a file, but a %s", location, fileContent.GetType()))
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", location, err)
	}
	return &base.File{
		Path:    path,
		Content: []byte(content),
		SHA:     fileContent.GetSHA(),
	}, nil
}

// PutFile creates the file when change.SHA is empty, updates it otherwise,
// and returns the URL of the resulting commit.
func (c *Client) PutFile(ctx context.Context, repository *base.Repository, path string, change *base.FileChange) (string, error) {
	owner := repository.GetOwnerLogin()
	client, err := c.clientFor(ctx, owner, repository.Name)
	if err != nil {
		return "", err
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(change.Message),
		Content: change.Content,
	}

	var response *github.RepositoryContentResponse
	var resp *github.Response
	if change.SHA == "" {
		response, resp, err = client.Repositories.CreateFile(ctx, owner, repository.Name, path, opts)
	} else {
		opts.SHA = github.String(change.SHA)
		response, resp, err = client.Repositories.UpdateFile(ctx, owner, repository.Name, path, opts)
	}
	if err != nil {
		return "", classifyError(resp, fmt.Errorf("failed to commit %s: %w", path, err))
	}
	return response.Commit.GetHTMLURL(), nil
}

func classifyError(resp *github.Response, err error) error {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rserrors.NewRenovateSetupError(rserrors.EGitHubReachRateLimit, err)
	}
	if resp != nil && resp.StatusCode == http.StatusUnauthorized {
		return rserrors.NewRenovateSetupError(rserrors.EGitHubTokenUnauthorized, err)
	}
	return err
}
