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

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/konflux-ci/renovate-setup/internal/pkg/config"
	"github.com/konflux-ci/renovate-setup/internal/pkg/constant"
	setupmetrics "github.com/konflux-ci/renovate-setup/internal/pkg/metrics"
	"github.com/konflux-ci/renovate-setup/internal/pkg/repository"
	"github.com/konflux-ci/renovate-setup/internal/pkg/setup"
	"github.com/konflux-ci/renovate-setup/internal/pkg/utils"
	"github.com/konflux-ci/renovate-setup/pkg/rserrors"
)

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var zapLogger *zap.Logger

	cmd := &cobra.Command{
		Use:   "renovate-setup [flags] REPOSITORY...",
		Short: "Make repositories extend the given Renovate presets",
		Long: `Sets "renovate.extends" in package.json, or "extends" in any other
Renovate configuration file given with --path, for every REPOSITORY.

REPOSITORY is owner/name, an https git URL or an SSH git URL. Archived
repositories are skipped and nothing is committed when the presets are
already set, in any order.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			zapConfig := zap.NewProductionConfig()
			if v.GetBool(config.KeyVerbose) {
				zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			zapLogger, err = zapConfig.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			cmd.SetContext(logr.NewContext(cmd.Context(), zapr.NewLogger(zapLogger)))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if zapLogger != nil {
				_ = zapLogger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd.Context(), v, args)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.String(config.KeyConfigFile, "", "Config file (yaml, json or toml)")
	flags.BoolP(config.KeyVerbose, "v", false, "Enable debug logging")
	flags.String(config.KeyExtends, "", `Comma separated list of presets, e.g. "github>octoherd/.github,config:base"`)
	flags.String(config.KeyPath, constant.DefaultConfigPath, "Path of the configuration file in the repository")
	flags.String(config.KeyPlatform, constant.DefaultPlatform, "Git platform: github or gitlab")
	flags.Bool(config.KeySkipMissing, false, "Skip repositories without the configuration file instead of creating it")
	flags.Bool(config.KeyDryRun, false, "Log the changes without committing them")
	flags.String(config.KeyMetricsFile, "", "Write Prometheus metrics to this textfile when done")
	flags.String(config.KeyGitHubToken, "", "GitHub token, defaults to $GITHUB_TOKEN")
	flags.String(config.KeyGitHubAppID, "", "GitHub App ID, used when no token is given")
	flags.String(config.KeyGitHubAppPrivateKey, "", "Path of the GitHub App private key")
	flags.String(config.KeyGitHubAPIURL, "", "GitHub API URL, for GitHub Enterprise")
	flags.String(config.KeyGitLabToken, "", "GitLab token, defaults to $GITLAB_TOKEN")
	flags.String(config.KeyGitLabURL, constant.DefaultGitLabURL, "GitLab URL")

	return cmd
}

func run(ctx context.Context, v *viper.Viper, args []string) error {
	log := logr.FromContextOrDiscard(ctx)

	cfg, err := config.LoadConfig(ctx, v)
	if err != nil {
		return err
	}
	opts := setup.Options{
		Extends:     cfg.Setup.Extends,
		Path:        cfg.Setup.Path,
		SkipMissing: cfg.Setup.SkipMissing,
		DryRun:      cfg.Setup.DryRun,
	}
	// Fail before creating clients or resolving any repository
	if _, err := setup.ValidateOptions(opts); err != nil {
		return err
	}

	client, err := repository.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	recorder, err := setupmetrics.NewRecorder()
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, arg := range args {
		if ctx.Err() != nil {
			result = multierror.Append(result, ctx.Err())
			break
		}
		start := time.Now()
		outcome, err := runRepository(ctx, cfg, client, arg, opts)
		if err != nil {
			recorder.CountFailure(time.Since(start))
			log.Error(err, "Failed to set up Renovate", "repository", arg)
			result = multierror.Append(result, fmt.Errorf("%s: %w", arg, err))
			continue
		}
		recorder.CountOutcome(string(outcome.Status), time.Since(start))
		log.V(1).Info("Repository processed", "repository", arg, "status", outcome.Status)
	}

	if cfg.Setup.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.Setup.MetricsFile); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func runRepository(ctx context.Context, cfg *config.Config, client repository.Client, arg string, opts setup.Options) (*setup.Outcome, error) {
	ref, err := utils.ParseRepositoryRef(arg)
	if err != nil {
		return nil, rserrors.NewRenovateSetupError(rserrors.EInvalidRepositoryRef, err)
	}
	if err := repository.CheckRepositoryHost(cfg, ref); err != nil {
		return nil, err
	}
	repo, err := client.GetRepository(ctx, ref)
	if err != nil {
		return nil, err
	}
	return setup.Run(ctx, client, repo, opts)
}
