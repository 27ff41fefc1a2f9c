// Copyright 2024 Red Hat, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/konflux-ci/renovate-setup/internal/pkg/config"
	"github.com/konflux-ci/renovate-setup/internal/pkg/constant"
	"github.com/konflux-ci/renovate-setup/internal/pkg/repository/base"
	github "github.com/konflux-ci/renovate-setup/internal/pkg/repository/github"
	gitlab "github.com/konflux-ci/renovate-setup/internal/pkg/repository/gitlab"
	"github.com/konflux-ci/renovate-setup/internal/pkg/utils"
	"github.com/konflux-ci/renovate-setup/pkg/rserrors"
)

// Client is the subset of a git platform API needed to patch one file.
type Client interface {
	GetRepository(ctx context.Context, ref utils.RepositoryRef) (*base.Repository, error)
	GetFile(ctx context.Context, repository *base.Repository, path string) (*base.File, error)
	PutFile(ctx context.Context, repository *base.Repository, path string, change *base.FileChange) (string, error)
}

var (
	_ Client = (*github.Client)(nil)
	_ Client = (*gitlab.Client)(nil)
)

func NewClient(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.Platform {
	case constant.PlatformGitHub:
		c, err := newGitHubClient(ctx, cfg.GitHub)
		if err != nil {
			return nil, fmt.Errorf("error creating GitHub client: %w", err)
		}
		return c, nil
	case constant.PlatformGitLab:
		if cfg.GitLab.Token == "" {
			return nil, rserrors.NewRenovateSetupError(rserrors.ENoCredentials,
				errors.New("GitLab token is required"))
		}
		c, err := gitlab.NewClient(cfg.GitLab.Token, cfg.GitLab.URL)
		if err != nil {
			return nil, fmt.Errorf("error creating GitLab client: %w", err)
		}
		return c, nil
	default:
		return nil, rserrors.NewRenovateSetupError(rserrors.EUnsupportedPlatform,
			fmt.Errorf("unsupported platform: %s", cfg.Platform))
	}
}

func newGitHubClient(ctx context.Context, cfg config.GitHubConfig) (*github.Client, error) {
	if cfg.Token != "" {
		return github.NewTokenClient(ctx, cfg.Token, cfg.APIURL)
	}
	if cfg.AppID != 0 && cfg.AppPrivateKeyPath != "" {
		privateKey, err := os.ReadFile(cfg.AppPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read GitHub App private key: %w", err)
		}
		return github.NewAppClient(cfg.AppID, privateKey, cfg.APIURL)
	}
	return nil, rserrors.NewRenovateSetupError(rserrors.ENoCredentials,
		errors.New("either a GitHub token or GitHub App ID and private key are required"))
}

// CheckRepositoryHost fails when ref names a host other than the one the
// configured platform client talks to. References without a host pass.
func CheckRepositoryHost(cfg *config.Config, ref utils.RepositoryRef) error {
	if ref.Host == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.ToLower(ref.Host), "www.")
	expected := configuredHost(cfg)
	if host == expected {
		return nil
	}

	if platform, err := utils.GetGitPlatform(host); err == nil && platform != cfg.Platform {
		return rserrors.NewRenovateSetupError(rserrors.EInvalidRepositoryRef,
			fmt.Errorf("repository %s is hosted on %s, but the platform is %s", ref.FullName(), platform, cfg.Platform))
	}
	return rserrors.NewRenovateSetupError(rserrors.EInvalidRepositoryRef,
		fmt.Errorf("repository %s is hosted on %s, but the %s client is configured for %s", ref.FullName(), ref.Host, cfg.Platform, expected))
}

func configuredHost(cfg *config.Config) string {
	var apiURL string
	switch cfg.Platform {
	case constant.PlatformGitHub:
		if cfg.GitHub.APIURL == "" {
			return constant.DefaultGitHubHost
		}
		apiURL = cfg.GitHub.APIURL
	case constant.PlatformGitLab:
		apiURL = cfg.GitLab.URL
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return ""
	}
	// api.github.com serves github.com
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "api.")
}
