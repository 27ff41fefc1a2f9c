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

package github

import (
	"strings"
	"sync"

	"github.com/google/go-github/v45/github"
)

// InstallationCache keeps one installation client per repository owner.
// A GitHub App is installed per account, so all repositories of an owner
// share the installation token.
type InstallationCache struct {
	data sync.Map
}

func NewInstallationCache() *InstallationCache {
	return &InstallationCache{}
}

func (c *InstallationCache) Get(owner string) (*github.Client, bool) {
	value, ok := c.data.Load(cacheKey(owner))
	if !ok {
		return nil, false
	}
	return value.(*github.Client), true
}

func (c *InstallationCache) Set(owner string, client *github.Client) {
	c.data.Store(cacheKey(owner), client)
}

// GitHub logins are case insensitive
func cacheKey(owner string) string {
	return "installation_" + strings.ToLower(owner)
}
