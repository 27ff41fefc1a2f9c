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

package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// RepositoryRef identifies a repository by its owner path and name.
// Owner may contain slashes for GitLab subgroups.
type RepositoryRef struct {
	Host  string
	Owner string
	Name  string
}

func (r RepositoryRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepositoryRef accepts owner/name, https git URLs and SSH git URLs.
func ParseRepositoryRef(ref string) (RepositoryRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return RepositoryRef{}, fmt.Errorf("empty repository reference")
	}

	host := ""
	path := ref
	if strings.Contains(ref, "://") || strings.Contains(ref, "@") {
		var err error
		host, err = GetGitHost(ref)
		if err != nil {
			return RepositoryRef{}, err
		}
		path, err = GetGitPath(ref)
		if err != nil {
			return RepositoryRef{}, err
		}
	} else {
		path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	}

	idx := strings.LastIndex(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return RepositoryRef{}, fmt.Errorf("repository reference %q is not in owner/name form", ref)
	}
	return RepositoryRef{Host: host, Owner: path[:idx], Name: path[idx+1:]}, nil
}

// GetGitPlatform tells the platform from a host name such as "gitlab.com"
// or "github.example.com".
func GetGitPlatform(host string) (string, error) {
	allowedGitPlatforms := []string{"github", "gitlab"}
	host = strings.ToLower(host)

	for _, platform := range allowedGitPlatforms {
		if strings.Contains(host, platform) {
			return platform, nil
		}
	}
	return "", fmt.Errorf("unsupported git platform for host %s", host)
}

func GetGitHost(giturl string) (string, error) {
	// Handle SSH URLs (user@host:path)
	if strings.Contains(giturl, "@") && !strings.Contains(giturl, "://") {
		parts := strings.SplitN(giturl, ":", 2)
		if len(parts) != 2 {
			return "", fmt.Errorf("invalid SSH URL format: %s", giturl)
		}
		hostPart := strings.SplitN(parts[0], "@", 2)
		if len(hostPart) != 2 {
			return "", fmt.Errorf("invalid SSH URL format: %s", giturl)
		}
		return hostPart[1], nil
	}

	u, err := url.Parse(giturl)
	if err != nil {
		return "", err
	}
	host := u.Hostname()

	return host, nil
}

func GetGitPath(giturl string) (string, error) {
	giturl = strings.TrimSuffix(strings.TrimSuffix(giturl, "/"), ".git")
	// Handle SSH URLs (user@host:path)
	if strings.Contains(giturl, "@") && !strings.Contains(giturl, "://") {
		parts := strings.SplitN(giturl, ":", 2)
		if len(parts) != 2 {
			return "", fmt.Errorf("invalid SSH URL format: %s", giturl)
		}
		return strings.TrimPrefix(parts[1], "/"), nil
	}

	u, err := url.Parse(giturl)
	if err != nil {
		return "", err
	}
	path := strings.TrimPrefix(u.Path, "/")
	return path, nil
}
