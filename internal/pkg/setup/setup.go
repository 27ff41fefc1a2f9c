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

package setup

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/konflux-ci/renovate-setup/internal/pkg/constant"
	"github.com/konflux-ci/renovate-setup/internal/pkg/reconcile"
	"github.com/konflux-ci/renovate-setup/internal/pkg/repository"
	"github.com/konflux-ci/renovate-setup/internal/pkg/repository/base"
	"github.com/konflux-ci/renovate-setup/pkg/rserrors"
)

type Options struct {
	// Comma separated list of presets, required
	Extends string
	// Defaults to package.json
	Path string
	// Leave repositories without the file alone instead of creating it
	SkipMissing bool
	DryRun      bool
}

type Status string

const (
	StatusSkippedArchived Status = "skipped-archived"
	StatusSkippedMissing  Status = "skipped-missing"
	StatusUnchanged       Status = "unchanged"
	StatusCreated         Status = "created"
	StatusUpdated         Status = "updated"
	StatusDryRun          Status = "dry-run"
)

type Outcome struct {
	Status  Status
	Path    string
	Extends []string
	// Raw JSON of the extends field before the run, empty if it did not exist
	PreviousExtends string
	CommitURL       string
}

// ValidateOptions returns the parsed presets. It never touches the network.
func ValidateOptions(opts Options) ([]string, error) {
	return reconcile.ParseExtends(opts.Extends)
}

// Run makes the configuration file of repo extend the presets in opts.
// The file is read once and written at most once.
func Run(ctx context.Context, client repository.Client, repo *base.Repository, opts Options) (*Outcome, error) {
	desired, err := ValidateOptions(opts)
	if err != nil {
		return nil, err
	}
	if repo == nil || repo.Owner == nil || repo.Owner.Login == "" {
		return nil, rserrors.NewRenovateSetupError(rserrors.EOwnerMissing,
			errors.New("repository must have an 'owner' associated"))
	}

	path := opts.Path
	if path == "" {
		path = constant.DefaultConfigPath
	}
	owner := repo.Owner.Login
	log := logr.FromContextOrDiscard(ctx).WithName("RenovateSetup").WithValues("owner", owner, "repo", repo.Name)
	outcome := &Outcome{Path: path, Extends: desired}

	if repo.Archived {
		log.Info("Repository is archived", "url", repo.HTMLURL, "updated", false)
		outcome.Status = StatusSkippedArchived
		return outcome, nil
	}

	doc := reconcile.Document{Path: path}
	var sha string
	file, err := client.GetFile(ctx, repo, path)
	switch {
	case errors.Is(err, base.ErrFileNotFound):
		if opts.SkipMissing {
			log.Info("No configuration file in repository", "path", path, "url", repo.HTMLURL, "updated", false)
			outcome.Status = StatusSkippedMissing
			return outcome, nil
		}
	case err != nil:
		return nil, err
	default:
		doc.Exists = true
		doc.Content = file.Content
		sha = file.SHA
	}

	result, err := reconcile.Reconcile(doc, desired)
	if err != nil {
		return nil, err
	}
	outcome.PreviousExtends = result.PreviousRaw

	if !result.Changed {
		log.Info("Extends is already set", "path", path, "url", repo.HTMLURL,
			"currentExtends", result.Previous, "updated", false)
		outcome.Status = StatusUnchanged
		return outcome, nil
	}

	if opts.DryRun {
		log.Info("Dry run, extends would be set", "field", result.Field, "url", repo.HTMLURL,
			"currentExtends", result.PreviousRaw, "extends", desired, "updated", false)
		outcome.Status = StatusDryRun
		return outcome, nil
	}

	commitURL, err := client.PutFile(ctx, repo, path, &base.FileChange{
		Content: result.Content,
		SHA:     sha,
		Message: constant.CommitMessage,
	})
	if err != nil {
		return nil, err
	}
	outcome.CommitURL = commitURL

	if doc.Exists {
		outcome.Status = StatusUpdated
	} else {
		outcome.Status = StatusCreated
	}

	if result.HadPrevious {
		log.Info("Existing extends setting was changed", "commit", commitURL,
			"currentExtends", result.PreviousRaw, "extends", desired, "updated", true, "changed", true)
	} else {
		log.Info("Extends setting added", "commit", commitURL, "extends", desired, "updated", true)
	}
	return outcome, nil
}
