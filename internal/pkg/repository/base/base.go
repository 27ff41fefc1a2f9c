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

package base

import "errors"

// ErrFileNotFound is returned by platform clients when the path does not exist.
var ErrFileNotFound = errors.New("file not found")

type Owner struct {
	Login string
}

// Repository describes a repository as reported by the git platform.
type Repository struct {
	// Nil when the platform did not report an owner
	Owner         *Owner
	Name          string
	Archived      bool
	HTMLURL       string
	DefaultBranch string
}

func (r *Repository) GetOwnerLogin() string {
	if r.Owner == nil {
		return ""
	}
	return r.Owner.Login
}

func (r *Repository) GetFullName() string {
	return r.GetOwnerLogin() + "/" + r.Name
}

type File struct {
	Path    string
	Content []byte
	// Blob SHA on GitHub, last commit ID on GitLab. Needed to update the file.
	SHA string
}

// FileChange is the content to commit. An empty SHA creates the file.
type FileChange struct {
	Content []byte
	SHA     string
	Message string
}
