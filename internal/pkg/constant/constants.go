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

package constant

const (
	// File updated when no path is given
	DefaultConfigPath = "package.json"
	// Commit message used for every write
	CommitMessage = "build: renovate setup"

	// package.json keeps the Renovate configuration under this field
	PackageJSONRenovateField = "renovate"
	ExtendsField             = "extends"

	// Environment variables are read with this prefix, e.g. RENOVATE_SETUP_EXTENDS
	EnvPrefix = "RENOVATE_SETUP"

	PlatformGitHub  = "github"
	PlatformGitLab  = "gitlab"
	DefaultPlatform = PlatformGitHub

	DefaultGitLabURL  = "https://gitlab.com"
	DefaultGitHubHost = "github.com"
)
