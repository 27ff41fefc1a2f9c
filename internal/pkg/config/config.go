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

package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/viper"

	"github.com/konflux-ci/renovate-setup/internal/pkg/constant"
	"github.com/konflux-ci/renovate-setup/pkg/rserrors"
)

// Configuration keys, shared by flags, environment variables and config files.
const (
	KeyConfigFile          = "config"
	KeyVerbose             = "verbose"
	KeyPlatform            = "platform"
	KeyExtends             = "extends"
	KeyPath                = "path"
	KeySkipMissing         = "skip-missing"
	KeyDryRun              = "dry-run"
	KeyMetricsFile         = "metrics-file"
	KeyGitHubToken         = "github-token"
	KeyGitHubAppID         = "github-app-id"
	KeyGitHubAppPrivateKey = "github-app-private-key"
	KeyGitHubAPIURL        = "github-api-url"
	KeyGitLabToken         = "gitlab-token"
	KeyGitLabURL           = "gitlab-url"
)

type GitHubConfig struct {
	Token string
	// GitHub App credentials, used when Token is empty
	AppID             int64
	AppPrivateKeyPath string
	// Empty for github.com
	APIURL string
}

type GitLabConfig struct {
	Token string
	URL   string
}

type SetupConfig struct {
	Extends     string
	Path        string
	SkipMissing bool
	DryRun      bool
	MetricsFile string
}

type Config struct {
	Platform string
	Verbose  bool
	GitHub   GitHubConfig
	GitLab   GitLabConfig
	Setup    SetupConfig
}

func DefaultConfig() *Config {
	return &Config{
		Platform: constant.DefaultPlatform,
		GitLab:   GitLabConfig{URL: constant.DefaultGitLabURL},
		Setup:    SetupConfig{Path: constant.DefaultConfigPath},
	}
}

// NewViper returns a viper instance reading RENOVATE_SETUP_* environment
// variables. GITHUB_TOKEN and GITLAB_TOKEN are honoured as well.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constant.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyGitHubToken, constant.EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv(KeyGitLabToken, constant.EnvPrefix+"_GITLAB_TOKEN", "GITLAB_TOKEN")
	return v
}

// LoadConfig builds the configuration from v. Optional values that are
// invalid fall back to the defaults; a bad platform or GitHub App ID is an error.
func LoadConfig(ctx context.Context, v *viper.Viper) (*Config, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("ConfigLoader")
	defaultConfig := DefaultConfig()
	config := DefaultConfig()

	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		log.V(1).Info("Loaded config file", "file", v.ConfigFileUsed())
	}

	config.Verbose = v.GetBool(KeyVerbose)

	if platform := strings.ToLower(strings.TrimSpace(v.GetString(KeyPlatform))); platform != "" {
		switch platform {
		case constant.PlatformGitHub, constant.PlatformGitLab:
			config.Platform = platform
		default:
			return nil, rserrors.NewRenovateSetupError(rserrors.EUnsupportedPlatform,
				fmt.Errorf("unsupported platform: %s", platform))
		}
	}

	config.GitHub.Token = v.GetString(KeyGitHubToken)
	config.GitHub.AppPrivateKeyPath = v.GetString(KeyGitHubAppPrivateKey)
	config.GitHub.APIURL = v.GetString(KeyGitHubAPIURL)
	if appID := strings.TrimSpace(v.GetString(KeyGitHubAppID)); appID != "" {
		parsed, err := strconv.ParseInt(appID, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, rserrors.NewRenovateSetupError(rserrors.EGitHubAppMalformedId,
				fmt.Errorf("failed to parse GitHub APP ID %q", appID))
		}
		config.GitHub.AppID = parsed
	}

	config.GitLab.Token = v.GetString(KeyGitLabToken)
	if url := strings.TrimSpace(v.GetString(KeyGitLabURL)); url != "" {
		config.GitLab.URL = url
	}

	config.Setup.Extends = v.GetString(KeyExtends)
	config.Setup.SkipMissing = v.GetBool(KeySkipMissing)
	config.Setup.DryRun = v.GetBool(KeyDryRun)
	config.Setup.MetricsFile = v.GetString(KeyMetricsFile)
	if path := strings.Trim(strings.TrimSpace(v.GetString(KeyPath)), "/"); path != "" {
		config.Setup.Path = path
	} else if v.IsSet(KeyPath) {
		log.Info("Empty path given, using default", "default", defaultConfig.Setup.Path)
	}

	return config, nil
}
